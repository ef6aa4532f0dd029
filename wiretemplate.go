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

import "fmt"

// TemplateKey identifies a wire template within a session: the
// observation domain it was announced in, combined with its 16-bit
// template id. Template ids are only unique within an observation
// domain, so the two halves are combined into a single comparable value
// for use as a map key.
type TemplateKey uint64

// NewTemplateKey combines an observation domain id and a template id
// into a single TemplateKey.
func NewTemplateKey(observationDomainID uint32, templateID uint16) TemplateKey {
	return TemplateKey(uint64(observationDomainID)<<16 | uint64(templateID))
}

func (k TemplateKey) ObservationDomainID() uint32 {
	return uint32(k >> 16)
}

func (k TemplateKey) TemplateID() uint16 {
	return uint16(k & 0xFFFF)
}

func (k TemplateKey) String() string {
	return fmt.Sprintf("template(domain=%d,id=%d)", k.ObservationDomainID(), k.TemplateID())
}

// WireFieldSpec is one field specifier of a wire template: the IE it
// refers to, the encoded length carried on the wire for this template
// (which may differ from the IE's native length, for reduced-length
// integers, or may be VarLen), and the primitive type the information
// model resolved for that IE, which drives the decode decision
// independently of whatever Go representation a caller's placement
// template chooses for it.
type WireFieldSpec struct {
	IE     IERef
	Length uint16
	Type   Type
}

// WireTemplate is the decoded form of a template record or options
// template record: an ordered field list as announced by the
// exporter, plus the bookkeeping needed to detect supersedence and to
// compute a record's minimum length.
type WireTemplate struct {
	Key    TemplateKey
	Fields []WireFieldSpec

	// IsOptions marks this as having been learned from an options
	// template record rather than a plain template record. A handful of
	// its leading fields are "scope" fields; ScopeFieldCount records how
	// many, and is zero for a plain template.
	IsOptions       bool
	ScopeFieldCount int

	// minLength is the sum of each field's encoded length, with VarLen
	// fields contributing their 1-octet minimum length. It lower-bounds
	// the size of a conforming data record under this template.
	minLength int
}

// NewWireTemplate builds a WireTemplate from a decoded field list,
// computing its minimum record length.
func NewWireTemplate(key TemplateKey, fields []WireFieldSpec, isOptions bool, scopeFieldCount int) *WireTemplate {
	wt := &WireTemplate{
		Key:             key,
		Fields:          fields,
		IsOptions:       isOptions,
		ScopeFieldCount: scopeFieldCount,
	}
	for _, f := range fields {
		if f.Length == VarLen {
			wt.minLength++
		} else {
			wt.minLength += int(f.Length)
		}
	}
	return wt
}

// MinLength returns the smallest possible encoded length of a data
// record conforming to this template.
func (wt *WireTemplate) MinLength() int {
	return wt.minLength
}

// HasVarLen reports whether any field of the template is variable
// length, which forces record-by-record length discovery rather than a
// fixed stride.
func (wt *WireTemplate) HasVarLen() bool {
	for _, f := range wt.Fields {
		if f.Length == VarLen {
			return true
		}
	}
	return false
}

// Equal reports whether two wire templates declare the same fields in
// the same order with the same lengths. A template record that re-uses
// an already-active template id with a field list that is Equal to the
// one on file is a no-op re-announcement, not a supersedence; any
// other field list for the same key is a supersedence and invalidates
// cached placement matches for that key.
func (wt *WireTemplate) Equal(other *WireTemplate) bool {
	if other == nil || len(wt.Fields) != len(other.Fields) || wt.IsOptions != other.IsOptions {
		return false
	}
	for i, f := range wt.Fields {
		if f != other.Fields[i] {
			return false
		}
	}
	return true
}
