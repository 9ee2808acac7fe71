// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Control frames: a small set accepted by the framing layer and either
// routed to a handler or ignored outright (spec.md section 6.1). Login,
// the app-level HeartbeatControl, EndOfSnapshot and Wake carry no
// payload beyond the header; ResendReq carries the gap a receiver wants
// replayed.
package wire

import "encoding/binary"

// EncodeControl builds a payload-less control frame of the given type.
func EncodeControl(typ uint8, shard uint8) []byte {
	out := make([]byte, HdrSize)
	putHdr(out, Hdr{Length: 0, Type: typ, Shard: shard})
	return out
}

// ResendReqFrame asks the peer to replay the half-open interval
// [From, To) of a table's shard sequence, mirroring pq.RequestFunc's
// parameters on the wire.
type ResendReqFrame struct {
	TableID string
	Shard   uint8
	From    uint64
	To      uint64
}

func EncodeResendReq(f ResendReqFrame) []byte {
	payload := make([]byte, 0, 2+len(f.TableID)+1+16)
	payload = putString(payload, f.TableID)
	payload = append(payload, f.Shard)
	payload = binary.BigEndian.AppendUint64(payload, f.From)
	payload = binary.BigEndian.AppendUint64(payload, f.To)

	out := make([]byte, HdrSize+len(payload))
	putHdr(out, Hdr{Length: uint32(len(payload)), Type: TypeResendReq, Shard: f.Shard})
	copy(out[HdrSize:], payload)
	return out
}

func DecodeResendReq(buf []byte) (ResendReqFrame, error) {
	h, err := DecodeHdr(buf)
	if err != nil {
		return ResendReqFrame{}, err
	}
	if h.Type != TypeResendReq {
		return ResendReqFrame{}, ErrWrongType
	}
	body := buf[HdrSize:]
	if uint32(len(body)) < h.Length {
		return ResendReqFrame{}, ErrShortPayload
	}
	body = body[:h.Length]

	tableID, rest, err := getString(body)
	if err != nil {
		return ResendReqFrame{}, err
	}
	if len(rest) < 1+16 {
		return ResendReqFrame{}, ErrMalformed
	}
	return ResendReqFrame{
		TableID: tableID,
		Shard:   rest[0],
		From:    binary.BigEndian.Uint64(rest[1:9]),
		To:      binary.BigEndian.Uint64(rest[9:17]),
	}, nil
}
