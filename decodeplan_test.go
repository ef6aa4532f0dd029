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
	"bytes"
	"encoding/binary"
	"testing"
)

var (
	ieSource = IERef{ID: IESourceIPv4Address}
	ieDest   = IERef{ID: IEDestinationIPv4Address}
	ieSPort  = IERef{ID: IESourceTransportPort}
	ieDPort  = IERef{ID: IEDestinationTransportPort}
	iePkts   = IERef{ID: IEPacketDeltaCount}
	ieApp    = IERef{ID: IEApplicationName}
)

func TestCompileDecodePlanSkipsUnrequestedFields(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 256), []WireFieldSpec{
		{IE: ieSource, Length: 4, Type: TypeIPv4Address},
		{IE: ieDest, Length: 4, Type: TypeIPv4Address}, // unrequested
		{IE: ieSPort, Length: 2, Type: TypeUnsigned16},  // unrequested, adjacent to the previous skip
		{IE: ieDPort, Length: 2, Type: TypeUnsigned16},
	}, false, 0)

	var src [4]byte
	var dportPort uint16
	placement := NewPlacementTemplate("source-and-dport")
	placement.Add(ieSource, SlotFor(&src))
	placement.Add(ieDPort, SlotFor(&dportPort))

	plan, err := CompileDecodePlan(wire, placement)
	if err != nil {
		t.Fatalf("CompileDecodePlan() error = %v", err)
	}

	// transfer(source), skip(dest+sport coalesced = 6), transfer(dport).
	if len(plan.Decisions) != 3 {
		t.Fatalf("got %d decisions, want 3", len(plan.Decisions))
	}
	if plan.Decisions[1].Kind != skipFixlen || plan.Decisions[1].Length != 6 {
		t.Errorf("decision[1] = %+v, want coalesced skip of length 6", plan.Decisions[1])
	}
}

func TestCompileDecodePlanCoalescesAdjacentSkips(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 256), []WireFieldSpec{
		{IE: ieSource, Length: 4, Type: TypeIPv4Address}, // unrequested
		{IE: ieDest, Length: 4, Type: TypeIPv4Address},   // unrequested, adjacent skip, should coalesce
		{IE: iePkts, Length: 8, Type: TypeUnsigned64},
	}, false, 0)

	var pkts uint64
	placement := NewPlacementTemplate("pkts-only")
	placement.Add(iePkts, SlotFor(&pkts))

	plan, err := CompileDecodePlan(wire, placement)
	if err != nil {
		t.Fatalf("CompileDecodePlan() error = %v", err)
	}

	if len(plan.Decisions) != 2 {
		t.Fatalf("got %d decisions, want 2 (one coalesced 8-byte skip, one transfer)", len(plan.Decisions))
	}
	if plan.Decisions[0].Kind != skipFixlen || plan.Decisions[0].Length != 8 {
		t.Errorf("first decision = %+v, want coalesced skip of length 8", plan.Decisions[0])
	}
}

func TestDecodePlanExecuteFixedFields(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 256), []WireFieldSpec{
		{IE: ieSource, Length: 4, Type: TypeIPv4Address},
		{IE: ieDest, Length: 4, Type: TypeIPv4Address},
		{IE: ieSPort, Length: 2, Type: TypeUnsigned16},
		{IE: ieDPort, Length: 2, Type: TypeUnsigned16},
	}, false, 0)

	var src, dst [4]byte
	var sport, dport uint16
	placement := NewPlacementTemplate("5-tuple")
	placement.Add(ieSource, SlotFor(&src))
	placement.Add(ieDest, SlotFor(&dst))
	placement.Add(ieSPort, SlotFor(&sport))
	placement.Add(ieDPort, SlotFor(&dport))

	plan, err := CompileDecodePlan(wire, placement)
	if err != nil {
		t.Fatalf("CompileDecodePlan() error = %v", err)
	}

	record := []byte{10, 0, 0, 1, 10, 0, 0, 2, 0xC3, 0x50, 0x01, 0xBB}
	n, err := plan.Execute(record)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if n != len(record) {
		t.Errorf("Execute() consumed %d, want %d", n, len(record))
	}

	// An ipv4Address lands in a [4]byte destination as a host-native
	// 32-bit word, not as a verbatim copy of the wire bytes: on a
	// little-endian host this reverses the byte order, mirroring how
	// the same field would land in a uint32 destination.
	var wantSrc, wantDst [4]byte
	binary.NativeEndian.PutUint32(wantSrc[:], 0x0A000001)
	binary.NativeEndian.PutUint32(wantDst[:], 0x0A000002)
	if src != wantSrc {
		t.Errorf("src = %v, want %v (10.0.0.1 as a host-native word)", src, wantSrc)
	}
	if dst != wantDst {
		t.Errorf("dst = %v, want %v (10.0.0.2 as a host-native word)", dst, wantDst)
	}
	if sport != 0xC350 {
		t.Errorf("sport = %#x, want 0xC350", sport)
	}
	if dport != 0x01BB {
		t.Errorf("dport = %#x, want 0x01BB", dport)
	}
}

func TestDecodePlanExecuteIPv4IntoUint32(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 262), []WireFieldSpec{
		{IE: ieSource, Length: 4, Type: TypeIPv4Address},
	}, false, 0)

	var src uint32
	placement := NewPlacementTemplate("src-as-uint32")
	placement.Add(ieSource, SlotFor(&src))

	plan, err := CompileDecodePlan(wire, placement)
	if err != nil {
		t.Fatalf("CompileDecodePlan() error = %v", err)
	}

	if _, err := plan.Execute([]byte{10, 0, 0, 1}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if src != 0x0A000001 {
		t.Errorf("src = %#x, want 0x0a000001", src)
	}
}

func TestDecodePlanExecuteReducedLengthInteger(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 257), []WireFieldSpec{
		{IE: iePkts, Length: 4, Type: TypeUnsigned64}, // reduced-length: native is 8 octets
	}, false, 0)

	var pkts uint64
	placement := NewPlacementTemplate("pkts")
	placement.Add(iePkts, SlotFor(&pkts))

	plan, err := CompileDecodePlan(wire, placement)
	if err != nil {
		t.Fatalf("CompileDecodePlan() error = %v", err)
	}

	record := make([]byte, 4)
	binary.BigEndian.PutUint32(record, 0x01020304)

	if _, err := plan.Execute(record); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if pkts != 0x01020304 {
		t.Errorf("pkts = %#x, want 0x01020304", pkts)
	}
}

func TestDecodePlanExecuteShortFormVarlen(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 258), []WireFieldSpec{
		{IE: ieApp, Length: VarLen, Type: TypeString},
	}, false, 0)

	var app string
	placement := NewPlacementTemplate("app")
	placement.Add(ieApp, SlotFor(&app))

	plan, err := CompileDecodePlan(wire, placement)
	if err != nil {
		t.Fatalf("CompileDecodePlan() error = %v", err)
	}

	record := append([]byte{5}, []byte("HTTPS")...)
	n, err := plan.Execute(record)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if n != len(record) {
		t.Errorf("Execute() consumed %d, want %d", n, len(record))
	}
	if app != "HTTPS" {
		t.Errorf("app = %q, want HTTPS", app)
	}
}

func TestDecodePlanExecuteLongFormVarlen(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 259), []WireFieldSpec{
		{IE: ieApp, Length: VarLen, Type: TypeString},
	}, false, 0)

	var app OctetArray
	placement := NewPlacementTemplate("app-octets")
	placement.Add(ieApp, SlotFor(&app))

	plan, err := CompileDecodePlan(wire, placement)
	if err != nil {
		t.Fatalf("CompileDecodePlan() error = %v", err)
	}

	payload := bytes.Repeat([]byte("x"), 300)
	header := []byte{0xFF, 0x01, 0x2C} // long form: 0xFF then a 2-octet length of 300
	record := append(header, payload...)

	n, err := plan.Execute(record)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if n != len(record) {
		t.Errorf("Execute() consumed %d, want %d", n, len(record))
	}
	if app.Len() != 300 || !bytes.Equal(app.Bytes(), payload) {
		t.Errorf("app octets mismatch: len=%d", app.Len())
	}
}

func TestDecodePlanExecuteBoolean(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 260), []WireFieldSpec{
		{IE: IERef{ID: 236}, Length: 1, Type: TypeBoolean},
	}, false, 0)

	var reliable bool
	placement := NewPlacementTemplate("reliable")
	placement.Add(IERef{ID: 236}, SlotFor(&reliable))

	plan, err := CompileDecodePlan(wire, placement)
	if err != nil {
		t.Fatalf("CompileDecodePlan() error = %v", err)
	}

	if _, err := plan.Execute([]byte{1}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !reliable {
		t.Errorf("expected wire value 1 to decode to true")
	}

	if _, err := plan.Execute([]byte{2}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if reliable {
		t.Errorf("expected wire value 2 to decode to false")
	}
}

func TestDecodePlanExecuteBooleanRejectsInvalidEncoding(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 265), []WireFieldSpec{
		{IE: IERef{ID: 236}, Length: 1, Type: TypeBoolean},
	}, false, 0)

	var reliable bool
	placement := NewPlacementTemplate("reliable")
	placement.Add(IERef{ID: 236}, SlotFor(&reliable))

	plan, err := CompileDecodePlan(wire, placement)
	if err != nil {
		t.Fatalf("CompileDecodePlan() error = %v", err)
	}

	_, err = plan.Execute([]byte{0})
	if err == nil {
		t.Fatalf("expected an error for a boolean field encoded as 0")
	}
	ec, ok := err.(*ErrorContext)
	if !ok || ec.Kind != KindFormatError {
		t.Errorf("got error %v, want a format_error ErrorContext", err)
	}
}

func TestDecodePlanExecuteReducedLengthSignedIntegerIsZeroFilled(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 266), []WireFieldSpec{
		{IE: IERef{ID: 9001}, Length: 1, Type: TypeSigned16}, // reduced-length: native is 2 octets
	}, false, 0)

	var v int16
	placement := NewPlacementTemplate("v")
	placement.Add(IERef{ID: 9001}, SlotFor(&v))

	plan, err := CompileDecodePlan(wire, placement)
	if err != nil {
		t.Fatalf("CompileDecodePlan() error = %v", err)
	}

	if _, err := plan.Execute([]byte{0xFF}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if v != 255 {
		t.Errorf("v = %d, want 255 (right-justified and zero-filled, not sign-extended)", v)
	}
}

func TestDecodePlanExecuteTooShortRecordIsFormatError(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 261), []WireFieldSpec{
		{IE: ieSource, Length: 4, Type: TypeIPv4Address},
	}, false, 0)

	var src [4]byte
	placement := NewPlacementTemplate("src")
	placement.Add(ieSource, SlotFor(&src))
	plan, err := CompileDecodePlan(wire, placement)
	if err != nil {
		t.Fatalf("CompileDecodePlan() error = %v", err)
	}

	_, err = plan.Execute([]byte{1, 2})
	if err == nil {
		t.Fatalf("expected an error for a truncated record")
	}
	var ec *ErrorContext
	if ec, _ = err.(*ErrorContext); ec == nil || ec.Kind != KindFormatError {
		t.Errorf("got error %v, want a format_error ErrorContext", err)
	}
}

func TestCompileDecodePlanRejectsIncompatibleDestination(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 263), []WireFieldSpec{
		{IE: ieSource, Length: 4, Type: TypeIPv4Address},
	}, false, 0)

	var src bool
	placement := NewPlacementTemplate("bad-dest")
	placement.Add(ieSource, SlotFor(&src))

	if _, err := CompileDecodePlan(wire, placement); err == nil {
		t.Fatalf("expected an error compiling an ipv4Address into a bool destination")
	}
}

func TestCompileDecodePlanRejectsUnsupportedIEType(t *testing.T) {
	wire := NewWireTemplate(NewTemplateKey(0, 264), []WireFieldSpec{
		{IE: ieSource, Length: 4, Type: TypeUnknown},
	}, false, 0)

	var src [4]byte
	placement := NewPlacementTemplate("unknown-type")
	placement.Add(ieSource, SlotFor(&src))

	if _, err := CompileDecodePlan(wire, placement); err == nil {
		t.Fatalf("expected an error compiling a field whose IE type this package does not decode")
	}
}
