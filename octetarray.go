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

// OctetArray is the caller-owned destination for a variable-length or
// opaque fixed-length field: a buffer that grows to fit the
// current record's content but never shrinks its underlying capacity,
// so that repeated placement into the same OctetArray across many
// records settles into steady-state without per-record allocation.
type OctetArray struct {
	buf []byte
}

// NewOctetArray returns an empty OctetArray. Callers that know a
// representative upper bound on field length can pre-size it with
// Grow to avoid early reallocation.
func NewOctetArray() *OctetArray {
	return &OctetArray{}
}

// Grow ensures the backing capacity is at least n octets without
// changing the current content length.
func (o *OctetArray) Grow(n int) {
	if cap(o.buf) >= n {
		return
	}
	grown := make([]byte, len(o.buf), n)
	copy(grown, o.buf)
	o.buf = grown
}

// CopyContent replaces the array's content with the first n octets of
// src, growing the backing buffer if needed but never releasing
// previously acquired capacity.
func (o *OctetArray) CopyContent(src []byte, n int) {
	if cap(o.buf) < n {
		o.buf = make([]byte, n)
	} else {
		o.buf = o.buf[:n]
	}
	copy(o.buf, src[:n])
}

// Bytes returns the current content. The slice is only valid until the
// next call to CopyContent or Grow.
func (o *OctetArray) Bytes() []byte {
	return o.buf
}

// Len returns the current content length.
func (o *OctetArray) Len() int {
	return len(o.buf)
}

// String renders the content as a string, for string-typed IEs.
func (o *OctetArray) String() string {
	return string(o.buf)
}
