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

import "sync"

// match is the cached outcome of matching one wire template against the
// registered placement templates: which placement template won (if
// any), and the compiled plan for extracting it.
type match struct {
	placement *PlacementTemplate
	plan      *DecodePlan
	err       error
}

// TemplateRegistry tracks the wire templates an exporter has announced
// and matches each against the placement templates a caller has
// registered, following a first-registered-wins policy: the
// first PlacementTemplate, in registration order, all of whose fields
// are present in a wire template, wins that wire template's match. The
// match is cached per TemplateKey and invalidated whenever the
// exporter supersedes that key with a structurally different template.
//
// A TemplateRegistry keeps the InfoModel it was created with but does
// not consult it: field specifiers, including unknown ones, are
// resolved by the MessageParser before the resulting WireTemplate
// reaches LearnWire. It is safe for concurrent use.
type TemplateRegistry struct {
	im InfoModel

	mu           sync.RWMutex
	placements   []*PlacementTemplate
	sinks        map[*PlacementTemplate]PlacementSink
	wire         map[TemplateKey]*WireTemplate
	cache        map[TemplateKey]*match
	warnedSubset map[TemplateKey]bool
}

// NewTemplateRegistry creates an empty TemplateRegistry holding im.
func NewTemplateRegistry(im InfoModel) *TemplateRegistry {
	return &TemplateRegistry{
		im:           im,
		sinks:        make(map[*PlacementTemplate]PlacementSink),
		wire:         make(map[TemplateKey]*WireTemplate),
		cache:        make(map[TemplateKey]*match),
		warnedSubset: make(map[TemplateKey]bool),
	}
}

// RegisterPlacement adds pt to the set of placement templates this
// registry will try to match against incoming wire templates, and
// binds sink to receive the records matched against it. Registration
// order is significant: earlier-registered templates are preferred
// over later ones when more than one could match the same wire
// template.
func (r *TemplateRegistry) RegisterPlacement(pt *PlacementTemplate, sink PlacementSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placements = append(r.placements, pt)
	r.sinks[pt] = sink
}

// LearnWire records a newly parsed template record under key,
// superseding any prior template announced under the same key. It
// returns true if this changes the template set (a new key, or a
// structurally different field list for an existing key), in which
// case any cached match for key is invalidated.
func (r *TemplateRegistry) LearnWire(wt *WireTemplate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, had := r.wire[wt.Key]
	if had && existing.Equal(wt) {
		return false
	}

	r.wire[wt.Key] = wt
	delete(r.cache, wt.Key)
	return true
}

// Withdraw removes a wire template, e.g. on a template withdrawal
// record (field count zero).
func (r *TemplateRegistry) Withdraw(key TemplateKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.wire, key)
	delete(r.cache, key)
}

// LookupWire returns the wire template currently on file for key.
func (r *TemplateRegistry) LookupWire(key TemplateKey) (*WireTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wt, ok := r.wire[key]
	return wt, ok
}

// Match resolves key to a (placement template, sink, decode plan)
// triple, matching and compiling lazily on first use and caching the
// result until the underlying wire template is superseded. It returns
// ok=false if no wire template is on file for key, or if none of the
// registered placement templates match it. A non-nil error means a
// placement template did structurally match key's wire template but
// could not be compiled against it (an incompatible destination, or an
// IE type this package cannot decode at all); that outcome is cached
// too, so a persistently bad match is not recompiled on every record.
func (r *TemplateRegistry) Match(key TemplateKey) (*PlacementTemplate, PlacementSink, *DecodePlan, bool, error) {
	r.mu.RLock()
	if m, ok := r.cache[key]; ok {
		sink := r.sinks[m.placement]
		r.mu.RUnlock()
		if m.err != nil {
			return nil, nil, nil, false, m.err
		}
		return m.placement, sink, m.plan, true, nil
	}
	wt, ok := r.wire[key]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, nil, false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check the cache: another goroutine may have matched key while
	// this one waited for the write lock.
	if m, ok := r.cache[key]; ok {
		if m.err != nil {
			return nil, nil, nil, false, m.err
		}
		return m.placement, r.sinks[m.placement], m.plan, true, nil
	}

	pt := r.firstMatch(wt)
	if pt == nil {
		return nil, nil, nil, false, nil
	}

	plan, err := CompileDecodePlan(wt, pt)
	if err != nil {
		r.cache[key] = &match{placement: pt, err: err}
		return nil, nil, nil, false, err
	}
	DecodePlansCompiledTotal.Inc()
	r.cache[key] = &match{placement: pt, plan: plan}

	if pt.Len() < len(wt.Fields) && !r.warnedSubset[key] {
		r.warnedSubset[key] = true
		Log.V(1).Info("placement template requests a strict subset of the wire template's fields",
			"placement", pt.Name, "template", key.String())
	}

	return pt, r.sinks[pt], plan, true, nil
}

// firstMatch returns the first registered placement template, in
// registration order, all of whose fields are present in wt, or nil if
// none match.
func (r *TemplateRegistry) firstMatch(wt *WireTemplate) *PlacementTemplate {
	present := make(map[IERef]bool, len(wt.Fields))
	for _, f := range wt.Fields {
		present[f.IE] = true
	}

	for _, pt := range r.placements {
		matches := true
		for _, f := range pt.Fields() {
			if !present[f.IE] {
				matches = false
				break
			}
		}
		if matches {
			return pt
		}
	}
	return nil
}
