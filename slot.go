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
	"reflect"
	"unsafe"
)

// Slot is a typed destination for a single placed field: an address in
// caller-owned memory, the Go type expected to live there, and its
// size. Placement templates are built out of Slots rather than bare
// unsafe.Pointer values so that the decode plan compiler can check a
// destination's width and kind against the matched IE, and so the
// executor can write straight into it via reflect.Value without an
// intermediate boxed allocation.
type Slot struct {
	addr  unsafe.Pointer
	typ   reflect.Type
	value reflect.Value
}

// SlotFor builds a Slot bound to the memory behind ptr, which must be a
// non-nil pointer to one of the scalar, array, or slice-header types
// this package knows how to place: the unsigned/signed integer types,
// float32/float64, bool, [4]byte/[16]byte/[6]byte, string, or
// OctetArray.
//
// The caller must keep ptr alive and not move the pointee for as long
// as any DecodePlan referencing the resulting Slot may execute.
func SlotFor(ptr interface{}) Slot {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		panic("ipfix: SlotFor requires a non-nil pointer")
	}
	elem := v.Elem()
	return Slot{
		addr:  unsafe.Pointer(v.Pointer()),
		typ:   elem.Type(),
		value: elem,
	}
}

// Kind returns the reflect.Kind of the Go value the slot points at.
func (s Slot) Kind() reflect.Kind {
	return s.typ.Kind()
}

// Size returns the width, in octets, of the Go value the slot points
// at.
func (s Slot) Size() uintptr {
	return s.typ.Size()
}

// IsOctetArray reports whether the slot points at an OctetArray,
// which the executor grows and fills via CopyContent rather than
// writing through its raw bytes.
func (s Slot) IsOctetArray() bool {
	return s.typ == reflect.TypeOf(OctetArray{})
}

// IsString reports whether the slot points at a Go string, which the
// executor assigns directly rather than writing through raw bytes.
func (s Slot) IsString() bool {
	return s.typ.Kind() == reflect.String
}

// octetArray returns the *OctetArray the slot points at. Only valid
// when IsOctetArray reports true.
func (s Slot) octetArray() *OctetArray {
	return (*OctetArray)(s.addr)
}

// setString assigns a copy of v to the string the slot points at.
// Only valid when IsString reports true.
func (s Slot) setString(v string) {
	s.value.SetString(v)
}

// bytes returns a []byte view over the slot's memory, width bytes wide,
// for direct writes by the decode plan executor.
func (s Slot) bytes(width int) []byte {
	return unsafe.Slice((*byte)(s.addr), width)
}
