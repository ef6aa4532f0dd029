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
	"encoding/binary"
	"errors"
	"io"
	"strconv"
	"time"
)

// MessageParser drives a session's octet stream through message and
// set framing, learns wire templates, and dispatches matched data
// records to the sinks registered with its TemplateRegistry.
// Each MessageParser owns a single reusable message buffer and is not
// safe for concurrent use by more than one goroutine at a time; parse
// independent sessions with independent MessageParsers.
type MessageParser struct {
	im       InfoModel
	registry *TemplateRegistry

	buf []byte
}

// NewMessageParser creates a MessageParser resolving field specifiers
// against im and matching/dispatching data records through registry.
func NewMessageParser(im InfoModel, registry *TemplateRegistry) *MessageParser {
	return &MessageParser{
		im:       im,
		registry: registry,
		buf:      make([]byte, maxMessageLength),
	}
}

// Parse drains source message by message until it reports io.EOF,
// calling sink's lifecycle methods as it goes. It returns nil on a
// clean end of input, or the error that ended the session otherwise
// (already passed to sink.EndSession before Parse returns).
func (p *MessageParser) Parse(ctx context.Context, source OctetSource, sink PlacementSink) error {
	if err := sink.StartSession(ctx); err != nil {
		return err
	}

	err := p.run(ctx, source, sink)
	sink.EndSession(ctx, err)
	return err
}

func (p *MessageParser) run(ctx context.Context, source OctetSource, sink PlacementSink) error {
	for {
		if err := ctx.Err(); err != nil {
			return NewErrorContext(KindAbortedByUser, source.Offset(), "context canceled").WithCause(err)
		}

		err := p.ParseMessage(ctx, source, sink)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// ParseMessage reads and dispatches exactly one message from source,
// without touching sink's StartSession/EndSession lifecycle. It
// returns io.EOF when source has no further message to offer.
//
// This is the primitive Parse loops on; callers that drive a session
// across more than one independently-obtained OctetSource (e.g. one
// UDP socket read per incoming datagram, each carrying one or more
// complete messages from the same exporter) call ParseMessage directly
// and manage StartSession/EndSession themselves.
func (p *MessageParser) ParseMessage(ctx context.Context, source OctetSource, sink PlacementSink) error {
	header, body, err := p.readMessage(source)
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		ParseErrorsTotal.Inc()
		return err
	}

	start := timeNow()
	if err := p.handleMessage(ctx, header, body, sink); err != nil {
		return err
	}
	MessagesTotal.Inc()
	MessageDurationMicroseconds.Observe(float64(timeNow().Sub(start).Microseconds()))
	return nil
}

// timeNow is a seam over time.Now for latency instrumentation; broken
// out so tests can substitute a deterministic clock if ever needed.
var timeNow = time.Now

// readMessage reads one complete message (header plus body) off
// source into p.buf, validating the header and the overall framing
// bounds, and returns the decoded header plus a slice over the body.
func (p *MessageParser) readMessage(source OctetSource) (MessageHeader, []byte, error) {
	n, err := readFull(source, p.buf[:messageHeaderLength])
	if err != nil {
		if err == io.EOF && n == 0 {
			return MessageHeader{}, nil, io.EOF
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return MessageHeader{}, nil, NewErrorContext(KindShortHeader, source.Offset(), "short read of message header: got %d of %d octets", n, messageHeaderLength)
		}
		return MessageHeader{}, nil, NewErrorContext(KindReadError, source.Offset(), "reading message header").WithCause(err)
	}

	header, herr := decodeMessageHeader(p.buf[:messageHeaderLength])
	if herr != nil {
		return header, nil, herr
	}

	if header.Length < kIpfixMinMessageLen {
		return header, nil, NewErrorContext(KindShortMessage, source.Offset(), "message length %d is shorter than the minimum header size", header.Length)
	}
	if int(header.Length) > len(p.buf) {
		return header, nil, NewErrorContext(KindShortMessage, source.Offset(), "message length %d exceeds the maximum message size", header.Length)
	}

	bodyLen := int(header.Length) - messageHeaderLength
	n, err = readFull(source, p.buf[messageHeaderLength:messageHeaderLength+bodyLen])
	if err != nil {
		return header, nil, NewErrorContext(KindShortBody, source.Offset(), "short read of message body: got %d of %d octets", n, bodyLen).WithCause(err)
	}

	return header, p.buf[messageHeaderLength : messageHeaderLength+bodyLen], nil
}

// readFull reads exactly len(buf) octets from source, translating a
// clean zero-length EOF on the first read into io.EOF and any other
// short read into io.ErrUnexpectedEOF, mirroring io.ReadFull's contract
// over the OctetSource interface.
func readFull(source OctetSource, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := source.Read(buf[total:])
		total += n
		if total == len(buf) {
			return total, nil
		}
		if err != nil {
			if err == io.EOF {
				if total == 0 {
					return total, io.EOF
				}
				return total, io.ErrUnexpectedEOF
			}
			return total, err
		}
		if n == 0 {
			return total, NewErrorContext(KindAgain, source.Offset(), "source made no progress")
		}
	}
	return total, nil
}

// handleMessage walks a message's set list, learning templates and
// dispatching data records.
func (p *MessageParser) handleMessage(ctx context.Context, header MessageHeader, body []byte, sink PlacementSink) error {
	if err := sink.StartMessage(ctx, header); err != nil {
		return err
	}

	offset := 0
	for offset < len(body) {
		if offset+setHeaderLength > len(body) {
			return NewErrorContext(KindLongSet, 0, "set header truncated at end of message")
		}
		sh := decodeSetHeader(body[offset:])
		if int(sh.Length) < setHeaderLength || offset+int(sh.Length) > len(body) {
			return NewErrorContext(KindLongSet, 0, "set of length %d at offset %d overruns the message body", sh.Length, offset)
		}
		setBody := body[offset+setHeaderLength : offset+int(sh.Length)]

		if err := p.handleSet(ctx, header, sh.ID, setBody, sink); err != nil {
			if ec, ok := err.(*ErrorContext); ok && ec.Recoverable() {
				RecordsDroppedTotal.WithLabelValues("format_error").Inc()
			} else {
				return err
			}
		}

		offset += int(sh.Length)
	}

	return sink.EndMessage(ctx, header)
}

// handleSet dispatches one set's body by set id: template sets and
// options template sets update the registry; data sets are decoded and
// dispatched through whatever placement template currently matches
// their template id.
func (p *MessageParser) handleSet(ctx context.Context, header MessageHeader, setID uint16, setBody []byte, sink PlacementSink) error {
	switch {
	case setID == SetIDTemplate:
		SetsTotal.WithLabelValues("template").Inc()
		return p.learnTemplateSet(header.ObservationDomainID, setBody, false)

	case setID == SetIDOptionsTemplate:
		SetsTotal.WithLabelValues("options_template").Inc()
		return p.learnTemplateSet(header.ObservationDomainID, setBody, true)

	case setID < SetIDDataMin:
		// Reserved set id; these are skipped, not treated
		// as an error.
		SetsTotal.WithLabelValues("reserved").Inc()
		return nil

	default:
		SetsTotal.WithLabelValues("data").Inc()
		return p.handleDataSet(ctx, header, setID, setBody, sink)
	}
}

// learnTemplateSet parses one or more template (or options template)
// records packed back-to-back in a template set's body.
func (p *MessageParser) learnTemplateSet(observationDomainID uint32, body []byte, isOptions bool) error {
	offset := 0
	for offset < len(body) {
		wt, consumed, err := p.decodeTemplateRecord(observationDomainID, body[offset:], isOptions)
		if err != nil {
			return err
		}
		if consumed == 0 {
			break
		}

		if wt == nil {
			// Field count (and, for options templates, scope field
			// count) of zero is a template withdrawal.
			key := NewTemplateKey(observationDomainID, decodeTemplateID(body[offset:]))
			p.registry.Withdraw(key)
		} else if p.registry.LearnWire(wt) {
			kind := "template"
			if isOptions {
				kind = "options_template"
			}
			TemplatesLearnedTotal.WithLabelValues(kind).Inc()
		}

		offset += consumed
	}
	return nil
}

func decodeTemplateID(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf[0:2])
}

// decodeTemplateRecord parses a single template record (or options
// template record) at the start of buf, returning the resulting
// WireTemplate (nil for a withdrawal) and the number of octets
// consumed.
func (p *MessageParser) decodeTemplateRecord(observationDomainID uint32, buf []byte, isOptions bool) (*WireTemplate, int, error) {
	headerLen := 4
	if isOptions {
		headerLen = 6
	}
	if len(buf) < headerLen {
		return nil, 0, NewErrorContext(KindLongFieldSpec, 0, "template record header truncated")
	}

	templateID := binary.BigEndian.Uint16(buf[0:2])
	fieldCount := int(binary.BigEndian.Uint16(buf[2:4]))

	scopeFieldCount := 0
	offset := 4
	if isOptions {
		scopeFieldCount = int(binary.BigEndian.Uint16(buf[4:6]))
		offset = 6
	}

	if fieldCount == 0 {
		return nil, offset, nil
	}

	fields := make([]WireFieldSpec, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		if offset+fieldSpecifierLength > len(buf) {
			return nil, 0, NewErrorContext(KindLongFieldSpec, 0, "field specifier %d of %d truncated", i, fieldCount)
		}
		ieID := binary.BigEndian.Uint16(buf[offset : offset+2])
		length := binary.BigEndian.Uint16(buf[offset+2 : offset+4])
		offset += fieldSpecifierLength

		pen := uint32(0)
		if ieID&enterpriseBit != 0 {
			ieID &= ieIDMask
			if offset+enterpriseNumberLength > len(buf) {
				return nil, 0, NewErrorContext(KindLongFieldSpec, 0, "enterprise number of field specifier %d truncated", i)
			}
			pen = binary.BigEndian.Uint32(buf[offset : offset+4])
			offset += enterpriseNumberLength
		}

		ie, ok := p.im.LookupIE(pen, ieID, length)
		if !ok {
			ie = p.im.AddUnknown(pen, ieID, length)
		}

		fields = append(fields, WireFieldSpec{IE: IERef{PEN: pen, ID: ieID}, Length: length, Type: ie.Type})
	}

	key := NewTemplateKey(observationDomainID, templateID)
	return NewWireTemplate(key, fields, isOptions, scopeFieldCount), offset, nil
}

// handleDataSet walks one data set's packed records under setID,
// dispatching each through whatever placement template currently
// matches it, or skipping it entirely when nothing matches or when the
// template itself is unknown.
func (p *MessageParser) handleDataSet(ctx context.Context, header MessageHeader, setID uint16, body []byte, sink PlacementSink) error {
	key := NewTemplateKey(header.ObservationDomainID, setID)

	for attempt := 0; ; attempt++ {
		wt, ok := p.registry.LookupWire(key)
		if !ok {
			again, err := p.notifyUnhandled(ctx, sink, key, attempt)
			if err != nil {
				return err
			}
			if again {
				continue
			}
			RecordsDroppedTotal.WithLabelValues("unknown_template").Inc()
			return nil
		}

		_, placementSink, plan, matched, err := p.registry.Match(key)
		if err != nil {
			RecordsDroppedTotal.WithLabelValues("compile_error").Inc()
			return NewErrorContext(KindFormatError, 0, "compiling decode plan for template").WithTemplate(header.ObservationDomainID, wt.Key.TemplateID()).WithCause(err)
		}
		if !matched {
			again, err := p.notifyUnhandled(ctx, sink, key, attempt)
			if err != nil {
				return err
			}
			if again {
				continue
			}
			RecordsDroppedTotal.WithLabelValues("no_placement").Inc()
			return nil
		}

		return p.dispatchDataRecords(ctx, header, key, placementSink, plan, body)
	}
}

// notifyUnhandled reports a data set that nothing matched to sink's
// optional UnhandledDataSetHandler, if it implements one. A nil error
// (or a sink with no such handler) leaves the set permanently skipped;
// ErrAgain tells the caller the handler learned something new and the
// same set should be matched again, bounded by maxAgainRetries; any
// other error aborts the session.
func (p *MessageParser) notifyUnhandled(ctx context.Context, sink PlacementSink, key TemplateKey, attempt int) (again bool, err error) {
	h, ok := sink.(UnhandledDataSetHandler)
	if !ok {
		return false, nil
	}
	if err = h.UnhandledDataSet(ctx, key, -1); err == nil {
		return false, nil
	}
	if errors.Is(err, ErrAgain) && attempt < maxAgainRetries {
		return true, nil
	}
	return false, err
}

// dispatchDataRecords runs plan against each record packed into body,
// bracketing every record with placementSink's StartPlacement and
// EndPlacement: StartPlacement is called first, then plan.Execute
// decodes the record's fields into the placement template's slots,
// then EndPlacement is called, matching the order the sink's fields
// are actually written in.
func (p *MessageParser) dispatchDataRecords(ctx context.Context, header MessageHeader, key TemplateKey, placementSink PlacementSink, plan *DecodePlan, body []byte) error {
	offset := 0
	for offset < len(body) {
		// A set is padded to whatever alignment the exporter chose;
		// trailing bytes too short to hold one more record, fixed- or
		// variable-length, are padding, not a framing error.
		if offset+plan.RecordMinLength > len(body) {
			break
		}

		if err := placementSink.StartPlacement(ctx, key); err != nil {
			return err
		}

		consumed, err := plan.Execute(body[offset:])
		if err != nil {
			return err
		}
		if consumed == 0 {
			break
		}

		placementSink.EndPlacement(ctx, key)
		RecordsDispatchedTotal.WithLabelValues(observationDomainLabel(header.ObservationDomainID)).Inc()

		offset += consumed
	}

	return nil
}

func observationDomainLabel(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

// maxAgainRetries bounds how many times handleDataSet re-offers an
// unhandled data set to UnhandledDataSetHandler after it reports
// ErrAgain before giving up. A handler is expected to use ErrAgain for
// a condition that clears quickly (e.g. it just registered a placement
// template in response), not one that never will, so a small bounded
// spin is enough to ride out the common case without risking a
// livelocked parser.
const maxAgainRetries = 3
