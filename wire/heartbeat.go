// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wire

import "encoding/binary"

// DBStateEntry is one (tableId, shard) -> nextUN watermark carried in a
// Heartbeat's dbState vector (spec.md section 3.3).
type DBStateEntry struct {
	TableID string
	Shard   uint8
	UN      uint64
}

// HeartbeatFrame is the election/replication-progress beacon every host
// broadcasts at heartbeatFreq (spec.md section 4.4.2). NextSN carries the
// same u128-on-the-wire/low-64-bits-meaningful convention as
// RecordFrame.SN; see record.go's doc comment.
type HeartbeatFrame struct {
	HostID  ID
	State   uint8
	DBState []DBStateEntry
	NextSN  uint64
}

func EncodeHeartbeat(f HeartbeatFrame) []byte {
	payload := make([]byte, 0, 8+1+2+16+64*len(f.DBState))
	payload = append(payload, f.HostID[:]...)
	payload = append(payload, f.State)
	payload = binary.BigEndian.AppendUint16(payload, uint16(len(f.DBState)))
	for _, e := range f.DBState {
		payload = putString(payload, e.TableID)
		payload = append(payload, e.Shard)
		payload = binary.BigEndian.AppendUint64(payload, e.UN)
	}
	payload = append(payload, make([]byte, 8)...) // nextSN high word, always zero
	payload = binary.BigEndian.AppendUint64(payload, f.NextSN)

	out := make([]byte, HdrSize+len(payload))
	putHdr(out, Hdr{Length: uint32(len(payload)), Type: TypeHeartbeat})
	copy(out[HdrSize:], payload)
	return out
}

func DecodeHeartbeat(buf []byte) (HeartbeatFrame, error) {
	h, err := DecodeHdr(buf)
	if err != nil {
		return HeartbeatFrame{}, err
	}
	if h.Type != TypeHeartbeat {
		return HeartbeatFrame{}, ErrWrongType
	}
	body := buf[HdrSize:]
	if uint32(len(body)) < h.Length {
		return HeartbeatFrame{}, ErrShortPayload
	}
	body = body[:h.Length]

	if len(body) < 8+1+2 {
		return HeartbeatFrame{}, ErrMalformed
	}
	var f HeartbeatFrame
	copy(f.HostID[:], body[0:8])
	f.State = body[8]
	n := int(binary.BigEndian.Uint16(body[9:11]))
	rest := body[11:]

	f.DBState = make([]DBStateEntry, 0, n)
	for i := 0; i < n; i++ {
		var e DBStateEntry
		var err error
		e.TableID, rest, err = getString(rest)
		if err != nil {
			return HeartbeatFrame{}, err
		}
		if len(rest) < 1+8 {
			return HeartbeatFrame{}, ErrMalformed
		}
		e.Shard = rest[0]
		e.UN = binary.BigEndian.Uint64(rest[1:9])
		rest = rest[9:]
		f.DBState = append(f.DBState, e)
	}

	if len(rest) < 16 {
		return HeartbeatFrame{}, ErrMalformed
	}
	if binary.BigEndian.Uint64(rest[0:8]) != 0 {
		return HeartbeatFrame{}, ErrMalformed
	}
	f.NextSN = binary.BigEndian.Uint64(rest[8:16])
	return f, nil
}
