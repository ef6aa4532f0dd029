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

// PlacementField is one entry of a PlacementTemplate: the IE the caller
// wants to receive, and the memory slot it should be written into.
type PlacementField struct {
	IE   IERef
	Slot Slot
}

// PlacementTemplate is a caller-declared wish list of information
// elements and the memory they should land in, expressed as typed
// Slots. It carries no knowledge of any particular wire template; the
// registry matches it against whichever wire templates the exporter
// announces.
type PlacementTemplate struct {
	Name   string
	fields []PlacementField
	byIE   map[IERef]int
}

// NewPlacementTemplate creates an empty, named PlacementTemplate. The
// name is used only for diagnostics (error messages, logs).
func NewPlacementTemplate(name string) *PlacementTemplate {
	return &PlacementTemplate{
		Name: name,
		byIE: make(map[IERef]int),
	}
}

// Add registers a destination slot for the given IE. Adding the same
// IE twice replaces the previous slot for it.
func (pt *PlacementTemplate) Add(ie IERef, slot Slot) *PlacementTemplate {
	if idx, ok := pt.byIE[ie]; ok {
		pt.fields[idx].Slot = slot
		return pt
	}
	pt.byIE[ie] = len(pt.fields)
	pt.fields = append(pt.fields, PlacementField{IE: ie, Slot: slot})
	return pt
}

// Fields returns the registered (IE, slot) pairs in registration order.
func (pt *PlacementTemplate) Fields() []PlacementField {
	return pt.fields
}

// Lookup returns the slot registered for ie, if any.
func (pt *PlacementTemplate) Lookup(ie IERef) (Slot, bool) {
	idx, ok := pt.byIE[ie]
	if !ok {
		return Slot{}, false
	}
	return pt.fields[idx].Slot, true
}

// Len returns the number of fields registered.
func (pt *PlacementTemplate) Len() int {
	return len(pt.fields)
}

func (pt *PlacementTemplate) String() string {
	return fmt.Sprintf("placement(%s,fields=%d)", pt.Name, len(pt.fields))
}
