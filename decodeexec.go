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
	"encoding/binary"
	"math"
)

// Execute runs plan against a single record's bytes, writing matched
// fields directly into their registered slots and skipping the rest.
// It returns the number of octets consumed, which the caller (the
// message parser) uses to advance past the record in the enclosing
// set.
//
// Execute performs no allocation beyond what OctetArray/string
// transfers require to grow their destination, and makes no extra
// copy of fields it skips or of fixed-length fields it transfers.
func (p *DecodePlan) Execute(record []byte) (int, error) {
	cursor := 0

	for i := range p.Decisions {
		d := &p.Decisions[i]

		switch d.Kind {
		case skipFixlen:
			if cursor+d.Length > len(record) {
				return cursor, NewErrorContext(KindFormatError, int64(cursor), "record too short to skip %d octets", d.Length)
			}
			cursor += d.Length

		case skipVarlen:
			n, consumed, err := readVarlenHeader(record[cursor:])
			if err != nil {
				return cursor, err
			}
			cursor += consumed + n

		case transferFixlenBE:
			if cursor+d.Length > len(record) {
				return cursor, NewErrorContext(KindFormatError, int64(cursor), "record too short to transfer %d octets", d.Length)
			}
			transferInteger(record[cursor:cursor+d.Length], d)
			cursor += d.Length

		case transferBoolean:
			if cursor+d.Length > len(record) {
				return cursor, NewErrorContext(KindFormatError, int64(cursor), "record too short for boolean field")
			}
			switch record[cursor] {
			case 1:
				d.Slot.value.SetBool(true)
			case 2:
				d.Slot.value.SetBool(false)
			default:
				return cursor, NewErrorContext(KindFormatError, int64(cursor), "boolean field encoded as %d, want 1 (true) or 2 (false)", record[cursor])
			}
			cursor += d.Length

		case transferFixlenOctets:
			if cursor+d.Length > len(record) {
				return cursor, NewErrorContext(KindFormatError, int64(cursor), "record too short to transfer %d octets", d.Length)
			}
			transferOctets(record[cursor:cursor+d.Length], d.Slot)
			cursor += d.Length

		case transferFloat32:
			if cursor+4 > len(record) {
				return cursor, NewErrorContext(KindFormatError, int64(cursor), "record too short for float32 field")
			}
			bits := binary.BigEndian.Uint32(record[cursor : cursor+4])
			d.Slot.value.SetFloat(float64(math.Float32frombits(bits)))
			cursor += 4

		case transferFloat32ToFloat64:
			if cursor+4 > len(record) {
				return cursor, NewErrorContext(KindFormatError, int64(cursor), "record too short for float32 field")
			}
			bits := binary.BigEndian.Uint32(record[cursor : cursor+4])
			d.Slot.value.SetFloat(float64(math.Float32frombits(bits)))
			cursor += 4

		case transferFloat64:
			if cursor+8 > len(record) {
				return cursor, NewErrorContext(KindFormatError, int64(cursor), "record too short for float64 field")
			}
			bits := binary.BigEndian.Uint64(record[cursor : cursor+8])
			d.Slot.value.SetFloat(math.Float64frombits(bits))
			cursor += 8

		case transferFixlenNative:
			if cursor+d.Length > len(record) {
				return cursor, NewErrorContext(KindFormatError, int64(cursor), "record too short to transfer %d octets", d.Length)
			}
			transferNativeWord(record[cursor:cursor+d.Length], d.Slot)
			cursor += d.Length

		case transferVarlen:
			n, consumed, err := readVarlenHeader(record[cursor:])
			if err != nil {
				return cursor, err
			}
			start := cursor + consumed
			if start+n > len(record) {
				return cursor, NewErrorContext(KindFormatError, int64(cursor), "record too short for varlen field of %d octets", n)
			}
			transferVarlenContent(record[start:start+n], d.Slot)
			cursor += consumed + n
		}
	}

	return cursor, nil
}

// readVarlenHeader parses the 1- or 3-octet variable-length prefix at
// the start of b: a single 0xFF octet signals that a 2-octet
// big-endian length follows; any other single octet value is the
// length itself.
func readVarlenHeader(b []byte) (length int, headerLength int, err error) {
	if len(b) < 1 {
		return 0, 0, NewErrorContext(KindFormatError, 0, "record too short for varlen length prefix")
	}
	if b[0] != varLenShortFormMax {
		return int(b[0]), 1, nil
	}
	if len(b) < 3 {
		return 0, 0, NewErrorContext(KindFormatError, 0, "record too short for three-octet varlen length prefix")
	}
	return int(binary.BigEndian.Uint16(b[1:3])), 3, nil
}

// transferInteger reads a big-endian, possibly reduced-length integer
// out of src and right-justifies it, zero-filled, into d.Slot: a
// reduced-length signed16 carrying wire octet 0xFF decodes to 255, not
// -1, matching how every integer-like IE type is placed regardless of
// signedness. d.Signed only selects SetInt over SetUint so the value
// lands in the destination's actual Go type.
func transferInteger(src []byte, d *Decision) {
	var v uint64
	for _, b := range src {
		v = v<<8 | uint64(b)
	}
	if d.Signed {
		d.Slot.value.SetInt(int64(v))
		return
	}
	d.Slot.value.SetUint(v)
}

// transferNativeWord reads a big-endian fixed-width integer out of src
// and stores it into the slot's backing memory as a host-native word,
// rather than copying the wire bytes verbatim: on a little-endian host
// this reverses the byte order, on a big-endian host it is equivalent
// to a plain copy. This is how an ipv4Address (or a DateTime integer
// encoding) lands correctly in an array destination like [4]byte,
// where a direct reinterpretation of the memory as a uint32 must yield
// the numerically correct address.
func transferNativeWord(src []byte, slot Slot) {
	var v uint64
	for _, b := range src {
		v = v<<8 | uint64(b)
	}
	dst := slot.bytes(len(src))
	switch len(src) {
	case 1:
		dst[0] = byte(v)
	case 2:
		binary.NativeEndian.PutUint16(dst, uint16(v))
	case 4:
		binary.NativeEndian.PutUint32(dst, uint32(v))
	case 8:
		binary.NativeEndian.PutUint64(dst, v)
	default:
		panic("ipfix: transferFixlenNative only supports 1, 2, 4, or 8 octet words")
	}
}

// transferOctets copies src verbatim into the slot's backing memory
// (fixed-width array), or assigns it into a string/OctetArray
// destination.
func transferOctets(src []byte, slot Slot) {
	switch {
	case slot.IsOctetArray():
		slot.octetArray().CopyContent(src, len(src))
	case slot.IsString():
		slot.setString(string(src))
	default:
		copy(slot.bytes(len(src)), src)
	}
}

// transferVarlenContent assigns a variable-length field's content into
// a string or OctetArray destination.
func transferVarlenContent(src []byte, slot Slot) {
	if slot.IsString() {
		slot.setString(string(src))
		return
	}
	slot.octetArray().CopyContent(src, len(src))
}
