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

/*
Package ipfix decodes IPFIX (RFC 5101/7011) message streams directly into
caller-owned memory.

Unlike a general-purpose decoder that materializes a tree of typed field
objects per record, this package compiles a placement template — the
subset of information elements a caller cares about, each bound to a
destination address — against a learned wire template into a straight-line
decode plan, and executes that plan against each data record with a single
pass over the wire bytes.

# Historical background

This library was factored out of a 2023 master's thesis codebase for
working with IPFIX flow records (zoomoid/go-ipfix), and reworked around a
placement-style decode path closer to the netsa-extra PlacementCollector
lineage: a MessageParser walks message and set framing, a TemplateRegistry
learns wire templates and matches them against registered placement
templates, and a DecodePlan executes against each matched data record
without building an intermediate object graph, dispatching straight into a
PlacementSink.

# Basic usage

	im := ipfix.NewInfoModel()
	registry := ipfix.NewTemplateRegistry(im)

	var srcAddr [4]byte
	pt := ipfix.NewPlacementTemplate("source-addr")
	pt.Add(ipfix.IERef{PEN: 0, ID: ipfix.IESourceIPv4Address}, ipfix.SlotFor(&srcAddr))
	registry.RegisterPlacement(pt, sink)

	parser := ipfix.NewMessageParser(im, registry)
	err := parser.Parse(ctx, source, sink)
*/
package ipfix
