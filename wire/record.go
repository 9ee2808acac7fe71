// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wire

import "encoding/binary"

// RecordFrame carries one row of a table, either as a live replication
// write or as a tail-catch-up recovery row (spec.md section 6.1); the
// two share a wire shape and are distinguished by the transport context
// they arrive in, not by a field.
//
// SN is carried on the wire as 16 bytes (spec.md's u128) for headroom,
// but only the low 64 bits are meaningful here: a cluster committing
// 2^64 records has run far longer than any deployment this core targets,
// and Go has no native 128-bit integer to hold the rest. EncodeRecord
// always writes zero into the high 8 bytes; DecodeRecord rejects a
// nonzero high word with ErrMalformed rather than silently truncating it.
type RecordFrame struct {
	TableID string
	UN      uint64
	SN      uint64
	VN      int32
	Shard   uint8
	Data    []byte
}

// EncodeRecord serializes f as a complete frame (header plus payload).
func EncodeRecord(f RecordFrame) []byte {
	payload := make([]byte, 0, 2+len(f.TableID)+8+16+4+1+len(f.Data))
	payload = putString(payload, f.TableID)
	payload = binary.BigEndian.AppendUint64(payload, f.UN)
	payload = append(payload, make([]byte, 8)...) // SN high word, always zero
	payload = binary.BigEndian.AppendUint64(payload, f.SN)
	payload = binary.BigEndian.AppendUint32(payload, uint32(f.VN))
	payload = append(payload, f.Shard)
	payload = append(payload, f.Data...)

	out := make([]byte, HdrSize+len(payload))
	putHdr(out, Hdr{Length: uint32(len(payload)), Type: TypeRecord, Shard: f.Shard})
	copy(out[HdrSize:], payload)
	return out
}

// DecodeRecord parses a complete frame (header included) produced by
// EncodeRecord. The returned Data aliases buf.
func DecodeRecord(buf []byte) (RecordFrame, error) {
	h, err := DecodeHdr(buf)
	if err != nil {
		return RecordFrame{}, err
	}
	if h.Type != TypeRecord {
		return RecordFrame{}, ErrWrongType
	}
	body := buf[HdrSize:]
	if uint32(len(body)) < h.Length {
		return RecordFrame{}, ErrShortPayload
	}
	body = body[:h.Length]

	tableID, rest, err := getString(body)
	if err != nil {
		return RecordFrame{}, err
	}
	if len(rest) < 8+16+4+1 {
		return RecordFrame{}, ErrMalformed
	}
	un := binary.BigEndian.Uint64(rest[0:8])
	snHi := binary.BigEndian.Uint64(rest[8:16])
	if snHi != 0 {
		return RecordFrame{}, ErrMalformed
	}
	sn := binary.BigEndian.Uint64(rest[16:24])
	vn := int32(binary.BigEndian.Uint32(rest[24:28]))
	shard := rest[28]
	data := rest[29:]

	return RecordFrame{
		TableID: tableID,
		UN:      un,
		SN:      sn,
		VN:      vn,
		Shard:   shard,
		Data:    data,
	}, nil
}
