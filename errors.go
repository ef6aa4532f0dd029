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
	"errors"
	"fmt"
)

// Kind identifies a class of error in the parser's error taxonomy.
// ErrorContext values compare equal (via errors.Is)
// to the matching sentinel Err* value below, while additionally carrying
// the byte offset and, where known, the offending template id and
// observation domain.
type Kind int

const (
	KindUnspecified Kind = iota
	KindShortHeader
	KindShortBody
	KindMessageVersionNumber
	KindLongSet
	KindLongFieldSpec
	KindShortMessage
	KindIPFIXBaseTime
	KindFormatError
	KindReadError
	KindAgain
	KindAbortedByUser
)

func (k Kind) String() string {
	switch k {
	case KindShortHeader:
		return "short_header"
	case KindShortBody:
		return "short_body"
	case KindMessageVersionNumber:
		return "message_version_number"
	case KindLongSet:
		return "long_set"
	case KindLongFieldSpec:
		return "long_fieldspec"
	case KindShortMessage:
		return "short_message"
	case KindIPFIXBaseTime:
		return "ipfix_basetime"
	case KindFormatError:
		return "format_error"
	case KindReadError:
		return "read_error"
	case KindAgain:
		return "again"
	case KindAbortedByUser:
		return "aborted_by_user"
	default:
		return "unspecified"
	}
}

var (
	ErrShortHeader            error = errors.New("short_header")
	ErrShortBody              error = errors.New("short_body")
	ErrMessageVersionNumber   error = errors.New("message_version_number")
	ErrLongSet                error = errors.New("long_set")
	ErrLongFieldSpec          error = errors.New("long_fieldspec")
	ErrShortMessage           error = errors.New("short_message")
	ErrIPFIXBaseTime          error = errors.New("ipfix_basetime")
	ErrFormatError            error = errors.New("format_error")
	ErrReadError              error = errors.New("read_error")
	ErrAgain                  error = errors.New("again")
	ErrAbortedByUser          error = errors.New("aborted_by_user")
	ErrTemplateNotFound       error = errors.New("template not found")
	ErrPlacementNotRegistered error = errors.New("no placement template registered")
)

func sentinelFor(k Kind) error {
	switch k {
	case KindShortHeader:
		return ErrShortHeader
	case KindShortBody:
		return ErrShortBody
	case KindMessageVersionNumber:
		return ErrMessageVersionNumber
	case KindLongSet:
		return ErrLongSet
	case KindLongFieldSpec:
		return ErrLongFieldSpec
	case KindShortMessage:
		return ErrShortMessage
	case KindIPFIXBaseTime:
		return ErrIPFIXBaseTime
	case KindFormatError:
		return ErrFormatError
	case KindReadError:
		return ErrReadError
	case KindAgain:
		return ErrAgain
	case KindAbortedByUser:
		return ErrAbortedByUser
	default:
		return errors.New("unspecified error")
	}
}

// ErrorContext is the user-visible failure type: a kind, a human-readable
// message, a byte offset, and optionally the offending template id /
// observation domain. Offset is the source's running byte count for
// errors raised while reading from the source (short_header,
// short_body, short_message, read_error, cancellation); format errors
// from DecodePlan.Execute carry the octet position within the record,
// except a truncated varlen length prefix, which carries 0; the
// remaining errors raised while walking a message already in memory
// (version, long_set, long_fieldspec, compile errors) carry 0. It wraps a lower-level cause where one exists so that
// errors.Is/errors.As keep working against both the sentinel Kind and
// the original cause.
type ErrorContext struct {
	Kind   Kind
	Offset int64

	TemplateID          uint16
	ObservationDomainID uint32
	hasTemplate         bool

	msg   string
	cause error
}

func (e *ErrorContext) Error() string {
	if e.hasTemplate {
		return fmt.Sprintf("%s at offset %d (template=%d, domain=%d): %s", e.Kind, e.Offset, e.TemplateID, e.ObservationDomainID, e.msg)
	}
	return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.msg)
}

func (e *ErrorContext) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return sentinelFor(e.Kind)
}

// Is allows errors.Is(err, ErrFormatError) to succeed against an
// *ErrorContext without the caller needing to unwrap to the sentinel
// explicitly.
func (e *ErrorContext) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

// NewErrorContext builds an ErrorContext not bound to any particular
// template.
func NewErrorContext(kind Kind, offset int64, format string, args ...interface{}) *ErrorContext {
	return &ErrorContext{
		Kind:   kind,
		Offset: offset,
		msg:    fmt.Sprintf(format, args...),
	}
}

// WithTemplate attaches the offending template id / observation domain to
// the ErrorContext.
func (e *ErrorContext) WithTemplate(observationDomainID uint32, templateID uint16) *ErrorContext {
	e.ObservationDomainID = observationDomainID
	e.TemplateID = templateID
	e.hasTemplate = true
	return e
}

// WithCause wraps a lower-level error as the contributing cause.
func (e *ErrorContext) WithCause(cause error) *ErrorContext {
	e.cause = cause
	return e
}

// Recoverable reports whether the parser should abandon the current
// record/set and continue (true), or whether the session must end
// (false). Framing errors (short_*, long_*, version) and sink-returned
// errors other than again are fatal; format_error is recoverable.
func (e *ErrorContext) Recoverable() bool {
	return e.Kind == KindFormatError
}

func templateNotFound(observationDomainID uint32, templateID uint16) error {
	return fmt.Errorf("%w for template %d in observation domain %d", ErrTemplateNotFound, templateID, observationDomainID)
}
