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
	"encoding/binary"
	"time"

	"github.com/netsa-extra/go-ipfix-placement/iana/version"
)

// MessageHeader is the fixed 16-octet header every IPFIX message
// starts with.
type MessageHeader struct {
	Version             version.ProtocolVersion
	Length              uint16
	ExportTime          time.Time
	SequenceNumber      uint32
	ObservationDomainID uint32
}

// decodeMessageHeader parses the 16-octet message header out of buf,
// which must be at least messageHeaderLength octets.
//
// KindIPFIXBaseTime exists in the error taxonomy for a base_time field
// distinct from ExportTime: a NetFlow v9 concept, carried as a
// separate start_message parameter by a handler shared with a NetFlow
// v9 decoder, rejected when non-zero on the IPFIX path. This package
// decodes IPFIX only, never produces a non-zero base_time, and so
// never raises KindIPFIXBaseTime; the wire header carries no such
// field to check.
func decodeMessageHeader(buf []byte) (MessageHeader, error) {
	h := MessageHeader{
		Version:             version.ProtocolVersion(binary.BigEndian.Uint16(buf[0:2])),
		Length:              binary.BigEndian.Uint16(buf[2:4]),
		ExportTime:          time.Unix(int64(binary.BigEndian.Uint32(buf[4:8])), 0).UTC(),
		SequenceNumber:      binary.BigEndian.Uint32(buf[8:12]),
		ObservationDomainID: binary.BigEndian.Uint32(buf[12:16]),
	}
	if h.Version != version.IPFIX {
		return h, NewErrorContext(KindMessageVersionNumber, 0, "unsupported message version %#04x", uint16(h.Version))
	}
	return h, nil
}

// setHeader is the fixed 4-octet header preceding every template,
// options template, and data set.
type setHeader struct {
	ID     uint16
	Length uint16
}

func decodeSetHeader(buf []byte) setHeader {
	return setHeader{
		ID:     binary.BigEndian.Uint16(buf[0:2]),
		Length: binary.BigEndian.Uint16(buf[2:4]),
	}
}
