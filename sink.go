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

import "context"

// PlacementSink receives the lifecycle callbacks of a parsed IPFIX
// session, with StartPlacement/EndPlacement bracketing each data
// record dispatched against this sink's placement template:
// StartPlacement is called first, then the record's fields are decoded
// directly into the template's slots, then EndPlacement is called. A
// sink must read a slot's value only between its StartPlacement and
// EndPlacement, since the same memory is overwritten by every record
// matching the template.
type PlacementSink interface {
	// StartSession is called once, before any message of the session
	// is parsed.
	StartSession(ctx context.Context) error
	// EndSession is called once, after the session's input is
	// exhausted or parsing is aborted. err is the error that ended the
	// session, or nil on a clean end-of-input.
	EndSession(ctx context.Context, err error)

	// StartMessage is called once per message, before any of its sets
	// are processed.
	StartMessage(ctx context.Context, header MessageHeader) error
	// EndMessage is called once per message, after all of its sets
	// have been processed.
	EndMessage(ctx context.Context, header MessageHeader) error

	// StartPlacement is called once per data record matched against
	// this sink's placement template, before the record's fields are
	// decoded into the template's slots. Any non-nil error aborts the
	// session immediately.
	StartPlacement(ctx context.Context, key TemplateKey) error
	// EndPlacement is called once per record, after the record's fields
	// have been decoded into the template's slots and the sink has
	// consumed them, giving the sink a chance to release resources
	// before the next record overwrites those slots.
	EndPlacement(ctx context.Context, key TemplateKey)
}

// UnhandledDataSetHandler is an optional extension a PlacementSink (or
// a MessageParser caller) may implement to observe data sets for which
// no placement template matched, rather than having them silently
// skipped. Returning ErrAgain tells the parser the handler has learned
// something new since the set was last offered (e.g. it registered a
// placement template on the fly) and the same data set should be
// matched again; the parser retries a bounded number of times before
// giving up and returning the error. Any other non-nil error aborts
// the session.
type UnhandledDataSetHandler interface {
	UnhandledDataSet(ctx context.Context, key TemplateKey, recordCount int) error
}

// BasePlacementSink is an embeddable no-op implementation of
// PlacementSink, so callers that only care about a subset of the
// lifecycle can embed it and override what they need.
type BasePlacementSink struct{}

func (BasePlacementSink) StartSession(context.Context) error { return nil }
func (BasePlacementSink) EndSession(context.Context, error)  {}

func (BasePlacementSink) StartMessage(context.Context, MessageHeader) error { return nil }
func (BasePlacementSink) EndMessage(context.Context, MessageHeader) error   { return nil }

func (BasePlacementSink) StartPlacement(context.Context, TemplateKey) error { return nil }
func (BasePlacementSink) EndPlacement(context.Context, TemplateKey)         {}
