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
	"context"
	"testing"
)

type recordingSink struct {
	BasePlacementSink
	started int
}

func (s *recordingSink) StartPlacement(ctx context.Context, key TemplateKey) error {
	s.started++
	return nil
}

func TestTemplateRegistryFirstMatchWins(t *testing.T) {
	im := NewInfoModel()
	r := NewTemplateRegistry(im)

	var src [4]byte
	narrow := NewPlacementTemplate("narrow")
	narrow.Add(ieSource, SlotFor(&src))

	var src2, dst2 [4]byte
	wide := NewPlacementTemplate("wide")
	wide.Add(ieSource, SlotFor(&src2))
	wide.Add(ieDest, SlotFor(&dst2))

	sinkA := &recordingSink{}
	sinkB := &recordingSink{}
	r.RegisterPlacement(narrow, sinkA)
	r.RegisterPlacement(wide, sinkB)

	key := NewTemplateKey(0, 256)
	wt := NewWireTemplate(key, []WireFieldSpec{
		{IE: ieSource, Length: 4, Type: TypeIPv4Address},
		{IE: ieDest, Length: 4, Type: TypeIPv4Address},
	}, false, 0)
	r.LearnWire(wt)

	pt, sink, plan, ok, err := r.Match(key)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if !ok {
		t.Fatalf("expected a match")
	}
	if pt != narrow {
		t.Errorf("expected the first-registered matching template to win, got %s", pt.Name)
	}
	if sink != sinkA {
		t.Errorf("expected sinkA to be resolved for the winning template")
	}
	if plan == nil {
		t.Errorf("expected a compiled plan")
	}
}

func TestTemplateRegistryNoMatch(t *testing.T) {
	im := NewInfoModel()
	r := NewTemplateRegistry(im)

	var src, dst [4]byte
	needsBoth := NewPlacementTemplate("needs-both")
	needsBoth.Add(ieSource, SlotFor(&src))
	needsBoth.Add(ieDest, SlotFor(&dst))
	r.RegisterPlacement(needsBoth, &recordingSink{})

	key := NewTemplateKey(0, 300)
	r.LearnWire(NewWireTemplate(key, []WireFieldSpec{
		{IE: ieSource, Length: 4, Type: TypeIPv4Address},
	}, false, 0))

	if _, _, _, ok, err := r.Match(key); ok || err != nil {
		t.Errorf("expected no match when the wire template lacks a requested field, got ok=%v err=%v", ok, err)
	}
}

func TestTemplateRegistryMatchPropagatesCompileError(t *testing.T) {
	im := NewInfoModel()
	r := NewTemplateRegistry(im)

	var src bool
	pt := NewPlacementTemplate("bad-dest")
	pt.Add(ieSource, SlotFor(&src))
	r.RegisterPlacement(pt, &recordingSink{})

	key := NewTemplateKey(0, 301)
	r.LearnWire(NewWireTemplate(key, []WireFieldSpec{
		{IE: ieSource, Length: 4, Type: TypeIPv4Address},
	}, false, 0))

	if _, _, _, ok, err := r.Match(key); ok || err == nil {
		t.Fatalf("expected a compile error matching an ipv4Address against a bool destination, got ok=%v err=%v", ok, err)
	}

	// The failed compile is cached too: a second call must not panic or
	// recompile, and must keep reporting the same error.
	if _, _, _, ok, err := r.Match(key); ok || err == nil {
		t.Errorf("expected the cached compile error to be reported again, got ok=%v err=%v", ok, err)
	}
}

func TestTemplateRegistrySupersedenceInvalidatesCache(t *testing.T) {
	im := NewInfoModel()
	r := NewTemplateRegistry(im)

	var src [4]byte
	pt := NewPlacementTemplate("src")
	pt.Add(ieSource, SlotFor(&src))
	r.RegisterPlacement(pt, &recordingSink{})

	key := NewTemplateKey(0, 256)
	r.LearnWire(NewWireTemplate(key, []WireFieldSpec{
		{IE: ieSource, Length: 4, Type: TypeIPv4Address},
	}, false, 0))

	_, _, plan1, ok, err := r.Match(key)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if !ok {
		t.Fatalf("expected initial match")
	}

	changed := r.LearnWire(NewWireTemplate(key, []WireFieldSpec{
		{IE: ieSource, Length: 4, Type: TypeIPv4Address},
		{IE: ieDest, Length: 4, Type: TypeIPv4Address},
	}, false, 0))
	if !changed {
		t.Fatalf("expected a structurally different re-announcement to report a change")
	}

	_, _, plan2, ok, err := r.Match(key)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if !ok {
		t.Fatalf("expected a match after supersedence")
	}
	if plan1 == plan2 {
		t.Errorf("expected supersedence to invalidate the cached decode plan")
	}
}

func TestTemplateRegistryReannouncementIsNotSupersedence(t *testing.T) {
	im := NewInfoModel()
	r := NewTemplateRegistry(im)

	key := NewTemplateKey(0, 256)
	fields := []WireFieldSpec{{IE: ieSource, Length: 4}}

	if changed := r.LearnWire(NewWireTemplate(key, fields, false, 0)); !changed {
		t.Fatalf("expected the first announcement to report a change")
	}
	if changed := r.LearnWire(NewWireTemplate(key, fields, false, 0)); changed {
		t.Errorf("expected an identical re-announcement to report no change")
	}
}

func TestTemplateRegistryWithdraw(t *testing.T) {
	im := NewInfoModel()
	r := NewTemplateRegistry(im)

	key := NewTemplateKey(0, 256)
	r.LearnWire(NewWireTemplate(key, []WireFieldSpec{{IE: ieSource, Length: 4}}, false, 0))

	r.Withdraw(key)

	if _, ok := r.LookupWire(key); ok {
		t.Errorf("expected withdrawal to remove the wire template")
	}
}
