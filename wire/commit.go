// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wire

import "encoding/binary"

// CommitFrame tells a follower it may evict its mirror cache for one
// (tableId, un, shard) write that the leader has just committed
// (spec.md section 4.4.3).
type CommitFrame struct {
	TableID string
	UN      uint64
	Shard   uint8
}

func EncodeCommit(f CommitFrame) []byte {
	payload := make([]byte, 0, 2+len(f.TableID)+8+1)
	payload = putString(payload, f.TableID)
	payload = binary.BigEndian.AppendUint64(payload, f.UN)
	payload = append(payload, f.Shard)

	out := make([]byte, HdrSize+len(payload))
	putHdr(out, Hdr{Length: uint32(len(payload)), Type: TypeCommit, Shard: f.Shard})
	copy(out[HdrSize:], payload)
	return out
}

func DecodeCommit(buf []byte) (CommitFrame, error) {
	h, err := DecodeHdr(buf)
	if err != nil {
		return CommitFrame{}, err
	}
	if h.Type != TypeCommit {
		return CommitFrame{}, ErrWrongType
	}
	body := buf[HdrSize:]
	if uint32(len(body)) < h.Length {
		return CommitFrame{}, ErrShortPayload
	}
	body = body[:h.Length]

	tableID, rest, err := getString(body)
	if err != nil {
		return CommitFrame{}, err
	}
	if len(rest) < 9 {
		return CommitFrame{}, ErrMalformed
	}
	return CommitFrame{
		TableID: tableID,
		UN:      binary.BigEndian.Uint64(rest[0:8]),
		Shard:   rest[8],
	}, nil
}
