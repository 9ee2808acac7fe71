// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package wire implements the frame codec of spec.md section 6.1: every
// frame begins with a fixed 8-byte header (payload length, frame type,
// shard, a reserved alignment field) followed by a type-specific,
// length-prefixed payload. Flatbuffers is spec.md's reference
// byte-layout (opaque to callers); this codec is a concrete, equally
// zero-copy-on-read Go encoding of the same fields, built with the same
// technique as the teacher's WebSocket codec (protocol/frame.go):
// fixed header first, then a payload read whose length the header
// already carries.
package wire

import "encoding/binary"

// Frame type tags (spec.md section 6.1's RKV frame set plus its small
// control set).
const (
	TypeHeartbeat        uint8 = 1
	TypeRecord           uint8 = 2
	TypeCommit           uint8 = 3
	TypeLogin            uint8 = 4
	TypeHeartbeatControl uint8 = 5 // app-level keepalive, distinct from the RKV Heartbeat frame
	TypeEndOfSnapshot    uint8 = 6
	TypeResendReq        uint8 = 7
	TypeWake             uint8 = 8
)

// HdrSize is the fixed header every frame begins with.
const HdrSize = 8

// Hdr is the fixed frame header: length is the byte size of the payload
// that follows it.
type Hdr struct {
	Length   uint32
	Type     uint8
	Shard    uint8
	Reserved uint16
}

func putHdr(buf []byte, h Hdr) {
	binary.BigEndian.PutUint32(buf[0:4], h.Length)
	buf[4] = h.Type
	buf[5] = h.Shard
	binary.BigEndian.PutUint16(buf[6:8], h.Reserved)
}

// DecodeHdr reads the fixed header from the front of buf. It is the
// first stage of the two-stage inbound verification spec.md section 4.5
// calls for: callers check len(buf) >= HdrSize and h.Length against the
// bytes actually available before reading the payload.
func DecodeHdr(buf []byte) (Hdr, error) {
	if len(buf) < HdrSize {
		return Hdr{}, ErrShortHeader
	}
	return Hdr{
		Length:   binary.BigEndian.Uint32(buf[0:4]),
		Type:     buf[4],
		Shard:    buf[5],
		Reserved: binary.BigEndian.Uint16(buf[6:8]),
	}, nil
}
