package ipfix

import "fmt"

// VarLen is the sentinel length carried by a field specifier or an IE
// declaring variable-length encoding.
const VarLen uint16 = 0xFFFF

// Type tags an IE's primitive wire representation.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeUnsigned8
	TypeUnsigned16
	TypeUnsigned32
	TypeUnsigned64
	TypeSigned8
	TypeSigned16
	TypeSigned32
	TypeSigned64
	TypeFloat32
	TypeFloat64
	TypeBoolean
	TypeMacAddress
	TypeString
	TypeOctetArray
	TypeDateTimeSeconds
	TypeDateTimeMilliseconds
	TypeDateTimeMicroseconds
	TypeDateTimeNanoseconds
	TypeIPv4Address
	TypeIPv6Address
)

func (t Type) String() string {
	switch t {
	case TypeUnsigned8:
		return "unsigned8"
	case TypeUnsigned16:
		return "unsigned16"
	case TypeUnsigned32:
		return "unsigned32"
	case TypeUnsigned64:
		return "unsigned64"
	case TypeSigned8:
		return "signed8"
	case TypeSigned16:
		return "signed16"
	case TypeSigned32:
		return "signed32"
	case TypeSigned64:
		return "signed64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeBoolean:
		return "boolean"
	case TypeMacAddress:
		return "macAddress"
	case TypeString:
		return "string"
	case TypeOctetArray:
		return "octetArray"
	case TypeDateTimeSeconds:
		return "dateTimeSeconds"
	case TypeDateTimeMilliseconds:
		return "dateTimeMilliseconds"
	case TypeDateTimeMicroseconds:
		return "dateTimeMicroseconds"
	case TypeDateTimeNanoseconds:
		return "dateTimeNanoseconds"
	case TypeIPv4Address:
		return "ipv4Address"
	case TypeIPv6Address:
		return "ipv6Address"
	default:
		return "unknown"
	}
}

// DefaultLength returns the IE's native, full-width octet length, or
// VarLen for types that are intrinsically variable-length.
func (t Type) DefaultLength() uint16 {
	switch t {
	case TypeUnsigned8, TypeSigned8, TypeBoolean:
		return 1
	case TypeUnsigned16, TypeSigned16:
		return 2
	case TypeUnsigned32, TypeSigned32, TypeFloat32, TypeDateTimeSeconds, TypeIPv4Address:
		return 4
	case TypeUnsigned64, TypeSigned64, TypeFloat64, TypeDateTimeMilliseconds, TypeDateTimeMicroseconds, TypeDateTimeNanoseconds:
		return 8
	case TypeMacAddress:
		return 6
	case TypeIPv6Address:
		return 16
	case TypeString, TypeOctetArray:
		return VarLen
	default:
		return 0
	}
}

// IsInteger reports whether t is one of the signed/unsigned integer
// types eligible for reduced-length encoding.
func (t Type) IsInteger() bool {
	switch t {
	case TypeUnsigned8, TypeUnsigned16, TypeUnsigned32, TypeUnsigned64,
		TypeSigned8, TypeSigned16, TypeSigned32, TypeSigned64:
		return true
	default:
		return false
	}
}

// IERef identifies an information element by (pen, id), ignoring
// length: the same information element can appear at different
// reduced lengths across templates and still match.
type IERef struct {
	PEN uint32
	ID  uint16
}

func (r IERef) String() string {
	if r.PEN == 0 {
		return fmt.Sprintf("ie(%d)", r.ID)
	}
	return fmt.Sprintf("ie(%d/%d)", r.PEN, r.ID)
}

// InformationElement is the immutable descriptor of a numeric
// identifier, an enterprise number (0 for the IANA registry), a
// human-readable name, a primitive type tag, and a declared length (or
// VarLen).
type InformationElement struct {
	PEN    uint32
	ID     uint16
	Name   string
	Type   Type
	Length uint16 // declared/native length, or VarLen
}

// Ref returns the (pen, id) identity of the IE, ignoring length, which is
// the key used for matching and registry lookups.
func (ie InformationElement) Ref() IERef {
	return IERef{PEN: ie.PEN, ID: ie.ID}
}

func (ie InformationElement) String() string {
	return fmt.Sprintf("%s<%s,len=%d>", ie.Name, ie.Type, ie.Length)
}
