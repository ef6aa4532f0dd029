/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import (
	"fmt"
	"reflect"
)

// DecisionKind tags the action a single decode step performs against
// the cursor positioned at the start of a wire field. A DecodePlan is a
// straight-line sequence of Decisions, one pass per record; execution
// only switches on each Decision's kind, since all type and length
// reasoning happens once, at compile time.
type DecisionKind uint8

const (
	// skipFixlen advances the cursor by a known, fixed number of
	// octets without reading them. Adjacent skipFixlen decisions are
	// coalesced into one by the compiler.
	skipFixlen DecisionKind = iota
	// skipVarlen advances the cursor past a variable-length field
	// whose length must be discovered from its runtime length prefix.
	skipVarlen
	// transferFixlenBE copies a fixed-width integer field, correcting
	// for the wire's big-endian byte order and for reduced-length
	// encoding (wireLength <= destination width).
	transferFixlenBE
	// transferBoolean copies a 1-octet boolean field, translating the
	// wire's 1=true/2=false encoding to a Go bool.
	transferBoolean
	// transferFixlenOctets copies a fixed-width field verbatim, byte
	// for byte, with no byte-order correction: MAC addresses, IPv6
	// addresses, and fixed-width string and octetArray fields.
	transferFixlenOctets
	// transferFloat32 copies a 4-octet IEEE-754 float into a float32
	// destination, correcting byte order.
	transferFloat32
	// transferFloat32ToFloat64 widens a 4-octet IEEE-754 float into a
	// float64 destination, correcting byte order and expanding
	// precision rather than reinterpreting the bits.
	transferFloat32ToFloat64
	// transferFloat64 copies an 8-octet IEEE-754 double into a
	// float64 destination, correcting byte order.
	transferFloat64
	// transferVarlen copies a variable-length field, whose length is
	// discovered at runtime, into an OctetArray or string slot.
	transferVarlen
	// transferFixlenNative reads a big-endian fixed-width integer off
	// the wire and stores it into a non-scalar destination (a fixed-
	// width byte array) as a host-native word, so that reinterpreting
	// the destination as a same-width unsigned integer on this host
	// yields the numerically correct value. This is how IPv4 addresses
	// and the DateTime integer encodings are placed when the caller
	// chooses an array destination rather than a uint32/uint64 one;
	// MAC and IPv6 addresses never use this path, since RFC 5101
	// deliberately leaves those as opaque, un-swapped octet strings.
	transferFixlenNative
)

// Decision is one compiled step of a DecodePlan.
type Decision struct {
	Kind DecisionKind

	// Length is the wire-encoded field length for fixed-length steps
	// (the number of octets to skip or transfer). Unused for the
	// varlen kinds, whose length is discovered at execution time.
	Length int

	// DestWidth is the width, in octets, of the Go destination for
	// transfer steps. For transferFixlenBE this may exceed Length
	// (reduced-length encoding), in which case the executor
	// zero-extends.
	DestWidth int

	// Slot is the destination for transfer steps; zero value for
	// skip steps.
	Slot Slot

	// Signed selects a signed Go destination (SetInt rather than
	// SetUint) for integer transfers; reduced-length values are
	// zero-filled either way, never sign-extended.
	Signed bool
}

// DecodePlan is the compiled, straight-line recipe for extracting a
// matched PlacementTemplate's fields out of a record encoded under a
// particular WireTemplate. Execute does not modify the plan, but every
// execution writes into the same placement slots, so executions of one
// plan must not overlap.
type DecodePlan struct {
	Decisions []Decision
	// RecordMinLength is the wire template's minimum record length,
	// copied here so the message parser can tell trailing set padding
	// from another record before running the plan.
	RecordMinLength int
	HasVarLen       bool
}

// CompileDecodePlan builds the decode plan that extracts placement's
// fields from records encoded under wire. Fields of wire that placement
// did not request are compiled into skip decisions; adjacent fixed-
// length skips are coalesced into a single step.
//
// The decode decision for a matched field is driven by the wire IE's
// resolved primitive Type, not by the Go representation the caller
// happened to choose for its destination; CompileDecodePlan rejects a
// destination that cannot hold that type, and rejects an IE whose type
// this package does not know how to decode at all, as a compile error
// rather than deferring the mismatch to execution time.
func CompileDecodePlan(wire *WireTemplate, placement *PlacementTemplate) (*DecodePlan, error) {
	plan := &DecodePlan{
		RecordMinLength: wire.MinLength(),
		HasVarLen:       wire.HasVarLen(),
	}

	for _, f := range wire.Fields {
		if f.Length == VarLen {
			slot, ok := placement.Lookup(f.IE)
			if !ok {
				plan.append(Decision{Kind: skipVarlen})
				continue
			}
			if err := validateVarlenTransfer(f, slot); err != nil {
				return nil, err
			}
			plan.append(Decision{Kind: transferVarlen, Slot: slot})
			continue
		}

		slot, ok := placement.Lookup(f.IE)
		if !ok {
			plan.append(Decision{Kind: skipFixlen, Length: int(f.Length)})
			continue
		}

		d, err := compileTransfer(f, slot)
		if err != nil {
			return nil, err
		}
		plan.append(d)
	}

	return plan, nil
}

// validateVarlenTransfer rejects a variable-length field matched
// against a destination that is neither a string nor an OctetArray,
// the only two slot kinds the executor knows how to grow and fill at
// a length discovered at run time.
func validateVarlenTransfer(f WireFieldSpec, slot Slot) error {
	if slot.IsString() || slot.IsOctetArray() {
		return nil
	}
	return fmt.Errorf("ipfix: %s is variable-length, but destination is %s, not a string or OctetArray", f.IE, slot.Kind())
}

// append adds d to the plan, coalescing it into the previous decision
// when both are fixed-length skips.
func (p *DecodePlan) append(d Decision) {
	if d.Kind == skipFixlen && len(p.Decisions) > 0 {
		last := &p.Decisions[len(p.Decisions)-1]
		if last.Kind == skipFixlen {
			last.Length += d.Length
			return
		}
	}
	p.Decisions = append(p.Decisions, d)
}

// compileTransfer picks the transfer Decision for a matched field. The
// decision is keyed primarily on f.Type, the wire IE's resolved
// primitive type, exactly as the wire, not the caller's choice of Go
// representation, determines how a field must be decoded; the
// destination slot only decides which of the type's compatible Go
// representations is in play (e.g. a uint32 vs. a [4]byte for an
// unsigned32 or ipv4Address field), and is rejected outright when it
// cannot hold the type at all.
func compileTransfer(f WireFieldSpec, slot Slot) (Decision, error) {
	switch f.Type {
	case TypeBoolean:
		if slot.Kind() != reflect.Bool {
			return Decision{}, fmt.Errorf("ipfix: %s is boolean, but destination is %s", f.IE, slot.Kind())
		}
		return Decision{Kind: transferBoolean, Length: int(f.Length), DestWidth: 1, Slot: slot}, nil

	case TypeUnsigned8, TypeUnsigned16, TypeUnsigned32, TypeUnsigned64,
		TypeSigned8, TypeSigned16, TypeSigned32, TypeSigned64,
		TypeDateTimeSeconds, TypeDateTimeMilliseconds, TypeDateTimeMicroseconds, TypeDateTimeNanoseconds,
		TypeIPv4Address:
		return compileIntegerTransfer(f, slot)

	case TypeFloat32:
		switch slot.Kind() {
		case reflect.Float32:
			return Decision{Kind: transferFloat32, Length: int(f.Length), DestWidth: 4, Slot: slot}, nil
		case reflect.Float64:
			return Decision{Kind: transferFloat32ToFloat64, Length: int(f.Length), DestWidth: 8, Slot: slot}, nil
		}
		return Decision{}, fmt.Errorf("ipfix: %s is float32, but destination is %s", f.IE, slot.Kind())

	case TypeFloat64:
		if slot.Kind() != reflect.Float64 {
			return Decision{}, fmt.Errorf("ipfix: %s is float64, but destination is %s", f.IE, slot.Kind())
		}
		return Decision{Kind: transferFloat64, Length: int(f.Length), DestWidth: 8, Slot: slot}, nil

	case TypeMacAddress, TypeIPv6Address, TypeString, TypeOctetArray:
		if slot.Kind() == reflect.Array && slot.Size() < uintptr(f.Length) {
			return Decision{}, fmt.Errorf("ipfix: %s is %d octets wide on the wire, but destination array is %d octets", f.IE, f.Length, slot.Size())
		}
		if slot.IsOctetArray() || slot.IsString() || slot.Kind() == reflect.Array {
			return Decision{Kind: transferFixlenOctets, Length: int(f.Length), DestWidth: int(slot.Size()), Slot: slot}, nil
		}
		return Decision{}, fmt.Errorf("ipfix: %s is %s, but destination is %s", f.IE, f.Type, slot.Kind())

	default:
		return Decision{}, fmt.Errorf("ipfix: %s declares unsupported information element type %s", f.IE, f.Type)
	}
}

// compileIntegerTransfer picks the transfer Decision for an
// integer-like IE type: the genuine signed/unsigned integer types, the
// DateTime* integer encodings, and ipv4Address, all of which share the
// same wire shape (a big-endian, possibly reduced-length word) and the
// same placement rule: reflect.Value.SetUint/SetInt already places the
// value correctly and portably into a scalar integer destination, so
// only a non-scalar (fixed-width array) destination needs the explicit
// host-native word store transferFixlenNative performs.
func compileIntegerTransfer(f WireFieldSpec, slot Slot) (Decision, error) {
	switch slot.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if uintptr(f.Length) > slot.Size() {
			return Decision{}, fmt.Errorf("ipfix: %s is %d octets wide on the wire, but destination is %d octets", f.IE, f.Length, slot.Size())
		}
		return Decision{Kind: transferFixlenBE, Length: int(f.Length), DestWidth: int(slot.Size()), Slot: slot, Signed: false}, nil

	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if uintptr(f.Length) > slot.Size() {
			return Decision{}, fmt.Errorf("ipfix: %s is %d octets wide on the wire, but destination is %d octets", f.IE, f.Length, slot.Size())
		}
		return Decision{Kind: transferFixlenBE, Length: int(f.Length), DestWidth: int(slot.Size()), Slot: slot, Signed: true}, nil

	case reflect.Array:
		if slot.Size() != uintptr(f.Length) {
			return Decision{}, fmt.Errorf("ipfix: %s is %d octets wide on the wire, but destination array is %d octets", f.IE, f.Length, slot.Size())
		}
		if f.Length != 1 && f.Length != 2 && f.Length != 4 && f.Length != 8 {
			return Decision{}, fmt.Errorf("ipfix: %s is %d octets wide, but an array destination needs a 1, 2, 4, or 8 octet word", f.IE, f.Length)
		}
		return Decision{Kind: transferFixlenNative, Length: int(f.Length), DestWidth: int(slot.Size()), Slot: slot}, nil
	}
	return Decision{}, fmt.Errorf("ipfix: %s is %s, but destination is %s", f.IE, f.Type, slot.Kind())
}
