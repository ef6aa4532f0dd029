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
	"sync"
)

// InfoModel is the canonical IE database: LookupIE resolves a wire
// field specifier to its IE definition, and AddUnknown registers an
// opaque placeholder for an IE the model has never seen, so that a
// template referencing it can still be used.
//
// InfoModel is an explicit value passed by reference to the parser
// and the template registry, rather than a process-wide
// singleton, so independent streams can carry divergent IE registries
// without hidden global state.
type InfoModel interface {
	// LookupIE resolves (pen, id) to its canonical definition. length is
	// informational only, used to distinguish a reduced-length view from
	// the canonical IE when the model carries several length variants;
	// implementations are free to ignore it.
	LookupIE(pen uint32, id uint16, length uint16) (InformationElement, bool)

	// AddUnknown registers (pen, id) as an opaque octet array of the
	// wire-declared length, an escape hatch letting a template
	// referencing a field this model has never seen still be used, and
	// returns the resulting definition.
	AddUnknown(pen uint32, id uint16, length uint16) InformationElement
}

// DefaultInfoModel is a simple in-memory InfoModel, safe for concurrent
// lookups but not intended to be shared across independently-driven
// parser instances; construct a dedicated instance per stream when
// streams should not see each other's unknown-IE registrations.
type DefaultInfoModel struct {
	mu  sync.RWMutex
	ies map[IERef]InformationElement

	warnedUnknown map[IERef]bool
}

var _ InfoModel = &DefaultInfoModel{}

// NewInfoModel creates an InfoModel seeded with a practical subset of the
// IANA IPFIX information element registry. Callers needing the full
// registry can bulk-load one with LoadCSV or LoadYAML.
func NewInfoModel() *DefaultInfoModel {
	im := &DefaultInfoModel{
		ies:           make(map[IERef]InformationElement, len(ianaSeed)),
		warnedUnknown: make(map[IERef]bool),
	}
	for _, ie := range ianaSeed {
		im.ies[ie.Ref()] = ie
	}
	return im
}

func (im *DefaultInfoModel) LookupIE(pen uint32, id uint16, _ uint16) (InformationElement, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	ie, ok := im.ies[IERef{PEN: pen, ID: id}]
	return ie, ok
}

func (im *DefaultInfoModel) AddUnknown(pen uint32, id uint16, length uint16) InformationElement {
	ref := IERef{PEN: pen, ID: id}

	im.mu.Lock()
	defer im.mu.Unlock()

	if ie, ok := im.ies[ref]; ok {
		return ie
	}

	ie := InformationElement{
		PEN:    pen,
		ID:     id,
		Name:   unknownIEName(pen, id),
		Type:   TypeOctetArray,
		Length: length,
	}
	im.ies[ref] = ie

	if !im.warnedUnknown[ref] {
		im.warnedUnknown[ref] = true
		Log.V(1).Info("registered unknown information element as opaque octet array", "pen", pen, "id", id, "length", length)
	}

	return ie
}

// Register adds or replaces an IE definition directly, for callers that
// maintain their own registry source of truth rather than going through
// LoadCSV/LoadYAML.
func (im *DefaultInfoModel) Register(ie InformationElement) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.ies[ie.Ref()] = ie
}

func unknownIEName(pen uint32, id uint16) string {
	if pen == 0 {
		return "unassigned"
	}
	return "enterprise-unassigned"
}

// ianaSeed is a small, practical subset of the IANA IPFIX information
// element registry, enough to exercise common flow-export fields
// without requiring a bundled copy of the full registry. Bulk
// registries can be layered on top via LoadCSV/LoadYAML.
var ianaSeed = []InformationElement{
	{PEN: 0, ID: 1, Name: "octetDeltaCount", Type: TypeUnsigned64, Length: 8},
	{PEN: 0, ID: 2, Name: "packetDeltaCount", Type: TypeUnsigned64, Length: 8},
	{PEN: 0, ID: 4, Name: "protocolIdentifier", Type: TypeUnsigned8, Length: 1},
	{PEN: 0, ID: 6, Name: "tcpControlBits", Type: TypeUnsigned16, Length: 2},
	{PEN: 0, ID: 7, Name: "sourceTransportPort", Type: TypeUnsigned16, Length: 2},
	{PEN: 0, ID: 8, Name: "sourceIPv4Address", Type: TypeIPv4Address, Length: 4},
	{PEN: 0, ID: 10, Name: "ingressInterface", Type: TypeUnsigned32, Length: 4},
	{PEN: 0, ID: 11, Name: "destinationTransportPort", Type: TypeUnsigned16, Length: 2},
	{PEN: 0, ID: 12, Name: "destinationIPv4Address", Type: TypeIPv4Address, Length: 4},
	{PEN: 0, ID: 14, Name: "egressInterface", Type: TypeUnsigned32, Length: 4},
	{PEN: 0, ID: 21, Name: "flowEndSysUpTime", Type: TypeUnsigned32, Length: 4},
	{PEN: 0, ID: 22, Name: "flowStartSysUpTime", Type: TypeUnsigned32, Length: 4},
	{PEN: 0, ID: 27, Name: "sourceIPv6Address", Type: TypeIPv6Address, Length: 16},
	{PEN: 0, ID: 28, Name: "destinationIPv6Address", Type: TypeIPv6Address, Length: 16},
	{PEN: 0, ID: 56, Name: "sourceMacAddress", Type: TypeMacAddress, Length: 6},
	{PEN: 0, ID: 80, Name: "destinationMacAddress", Type: TypeMacAddress, Length: 6},
	{PEN: 0, ID: 94, Name: "applicationDescription", Type: TypeString, Length: VarLen},
	{PEN: 0, ID: 95, Name: "applicationId", Type: TypeOctetArray, Length: VarLen},
	{PEN: 0, ID: 96, Name: "applicationName", Type: TypeString, Length: VarLen},
	{PEN: 0, ID: 110, Name: "exportingProcessId", Type: TypeUnsigned32, Length: 4},
	{PEN: 0, ID: 111, Name: "flowId", Type: TypeUnsigned64, Length: 8},
	{PEN: 0, ID: 130, Name: "exporterIPv4Address", Type: TypeIPv4Address, Length: 4},
	{PEN: 0, ID: 131, Name: "exporterIPv6Address", Type: TypeIPv6Address, Length: 16},
	{PEN: 0, ID: 136, Name: "flowEndReason", Type: TypeUnsigned8, Length: 1},
	{PEN: 0, ID: 150, Name: "flowStartSeconds", Type: TypeDateTimeSeconds, Length: 4},
	{PEN: 0, ID: 151, Name: "flowEndSeconds", Type: TypeDateTimeSeconds, Length: 4},
	{PEN: 0, ID: 152, Name: "flowStartMilliseconds", Type: TypeDateTimeMilliseconds, Length: 8},
	{PEN: 0, ID: 153, Name: "flowEndMilliseconds", Type: TypeDateTimeMilliseconds, Length: 8},
	{PEN: 0, ID: 154, Name: "flowStartMicroseconds", Type: TypeDateTimeMicroseconds, Length: 8},
	{PEN: 0, ID: 155, Name: "flowEndMicroseconds", Type: TypeDateTimeMicroseconds, Length: 8},
	{PEN: 0, ID: 156, Name: "flowStartNanoseconds", Type: TypeDateTimeNanoseconds, Length: 8},
	{PEN: 0, ID: 157, Name: "flowEndNanoseconds", Type: TypeDateTimeNanoseconds, Length: 8},
	{PEN: 0, ID: 182, Name: "observationDomainName", Type: TypeString, Length: VarLen},
	{PEN: 0, ID: 236, Name: "dataRecordsReliability", Type: TypeBoolean, Length: 1},
	{PEN: 0, ID: 352, Name: "layer2SegmentId", Type: TypeUnsigned64, Length: 8},
}

// Well-known IE references for the seeded subset, convenient for callers
// building placement templates without hand-writing (pen, id) pairs.
const (
	IEOctetDeltaCount           uint16 = 1
	IEPacketDeltaCount          uint16 = 2
	IEProtocolIdentifier        uint16 = 4
	IESourceTransportPort       uint16 = 7
	IESourceIPv4Address         uint16 = 8
	IEDestinationTransportPort  uint16 = 11
	IEDestinationIPv4Address    uint16 = 12
	IESourceIPv6Address         uint16 = 27
	IEDestinationIPv6Address    uint16 = 28
	IESourceMacAddress          uint16 = 56
	IEDestinationMacAddress     uint16 = 80
	IEApplicationName           uint16 = 96
	IEFlowStartMilliseconds     uint16 = 152
	IEFlowEndMilliseconds       uint16 = 153
)

