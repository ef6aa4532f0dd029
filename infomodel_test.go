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

import "testing"

func TestDefaultInfoModelLookupSeeded(t *testing.T) {
	im := NewInfoModel()

	ie, ok := im.LookupIE(0, IESourceIPv4Address, 4)
	if !ok {
		t.Fatalf("expected sourceIPv4Address to be seeded")
	}
	if ie.Name != "sourceIPv4Address" {
		t.Errorf("got name %q, want sourceIPv4Address", ie.Name)
	}
	if ie.Type != TypeIPv4Address {
		t.Errorf("got type %v, want %v", ie.Type, TypeIPv4Address)
	}
}

func TestDefaultInfoModelLookupMiss(t *testing.T) {
	im := NewInfoModel()

	if _, ok := im.LookupIE(32473, 9999, 4); ok {
		t.Fatalf("expected lookup of unregistered enterprise IE to miss")
	}
}

func TestDefaultInfoModelAddUnknownIsIdempotent(t *testing.T) {
	im := NewInfoModel()

	first := im.AddUnknown(32473, 100, 8)
	second := im.AddUnknown(32473, 100, 8)

	if first != second {
		t.Fatalf("expected repeated AddUnknown for the same (pen,id) to return the same definition, got %+v and %+v", first, second)
	}
	if first.Type != TypeOctetArray {
		t.Errorf("expected unknown IE to default to octetArray, got %v", first.Type)
	}

	if _, ok := im.LookupIE(32473, 100, 8); !ok {
		t.Errorf("expected AddUnknown to register the IE for subsequent lookups")
	}
}

func TestDefaultInfoModelRegisterOverrides(t *testing.T) {
	im := NewInfoModel()

	im.Register(InformationElement{PEN: 0, ID: IESourceIPv4Address, Name: "custom", Type: TypeOctetArray, Length: 4})

	ie, ok := im.LookupIE(0, IESourceIPv4Address, 4)
	if !ok || ie.Name != "custom" {
		t.Fatalf("expected Register to override the seeded definition, got %+v, ok=%v", ie, ok)
	}
}
