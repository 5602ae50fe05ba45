// File: core/codec/decoder.go
// Package codec implements the inotify record wire format.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Records are variable-length: a 16-byte header (wd, mask, cookie, name
// length) followed by a NUL-padded name. One read(2) never guarantees a
// whole number of records, so decoding is greedy with suffix carry: the
// caller prepends the unconsumed tail to the next read.

package codec

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/momentics/hioload-inotify/api"
)

// HeaderSize is the fixed record header length in bytes.
const HeaderSize = 16

// MaxNameLen caps the declared name field. The kernel pads names to a
// small multiple of the filename limit; a length beyond one full read
// buffer can never be completed by suffix carry, so the stream is
// desynchronized.
const MaxNameLen = 4096

// ErrMalformedRecord marks a desynchronized channel. Fatal: the reader
// cannot resynchronize on a self-describing variable-length stream.
var ErrMalformedRecord = errors.New("codec: malformed notification record")

// Records are emitted by the kernel in host byte order.
var hostOrder = binary.NativeEndian

// Decode consumes complete records greedily from the front of buf and
// returns them together with the unconsumed suffix. A trailing partial
// record (short header or short name) is not an error; it is returned as
// the suffix for the caller to carry into the next read. A header whose
// declared name length exceeds MaxNameLen yields ErrMalformedRecord.
func Decode(buf []byte) ([]api.RawEvent, []byte, error) {
	var events []api.RawEvent
	rest := buf
	for len(rest) >= HeaderSize {
		nameLen := hostOrder.Uint32(rest[12:16])
		if nameLen > MaxNameLen {
			return events, nil, ErrMalformedRecord
		}
		total := HeaderSize + int(nameLen)
		if len(rest) < total {
			break
		}
		events = append(events, api.RawEvent{
			WD:     int32(hostOrder.Uint32(rest[0:4])),
			Mask:   api.Mask(hostOrder.Uint32(rest[4:8])),
			Cookie: hostOrder.Uint32(rest[8:12]),
			Name:   trimName(rest[HeaderSize:total]),
		})
		rest = rest[total:]
	}
	return events, rest, nil
}

// trimName strips the kernel's trailing NUL padding.
func trimName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Encode serializes one record in wire format. Names are NUL-terminated
// and padded to a 4-byte boundary the way the kernel pads them. Used by
// fakes and tests; the kernel is the producer in production.
func Encode(ev api.RawEvent) []byte {
	nameLen := 0
	if ev.Name != "" {
		nameLen = (len(ev.Name) + 1 + 3) &^ 3
	}
	out := make([]byte, HeaderSize+nameLen)
	hostOrder.PutUint32(out[0:4], uint32(ev.WD))
	hostOrder.PutUint32(out[4:8], uint32(ev.Mask))
	hostOrder.PutUint32(out[8:12], ev.Cookie)
	hostOrder.PutUint32(out[12:16], uint32(nameLen))
	copy(out[HeaderSize:], ev.Name)
	return out
}
