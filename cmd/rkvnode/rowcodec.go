// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A table's tuple is opaque bytes to store/ and rkv/ (spec.md section
// 4.3); here it is a length-prefixed key followed by the value, the
// simplest shape a single-key KV table needs. keyOf and decodeFrame are
// the store.TableConfig hooks MemStore uses to build its key-ordered
// index and to materialize a Row out of a wire.EncodeRecord frame.
package main

import (
	"encoding/binary"
	"errors"

	"github.com/momentics/rkv/store"
	"github.com/momentics/rkv/wire"
)

var errShortTuple = errors.New("rkvnode: tuple too short for key length")

// encodeTuple packs key and value into the row tuple RKV stores.
func encodeTuple(key, value []byte) []byte {
	out := make([]byte, 0, 4+len(key)+len(value))
	out = binary.BigEndian.AppendUint32(out, uint32(len(key)))
	out = append(out, key...)
	out = append(out, value...)
	return out
}

// splitTuple recovers the key and value encodeTuple packed.
func splitTuple(tuple []byte) (key, value []byte, err error) {
	if len(tuple) < 4 {
		return nil, nil, errShortTuple
	}
	n := binary.BigEndian.Uint32(tuple[0:4])
	if uint32(len(tuple)-4) < n {
		return nil, nil, errShortTuple
	}
	return tuple[4 : 4+n], tuple[4+n:], nil
}

// keyOf extracts the single "key" field from a row's tuple for the
// key-ordered index's comparator.
func keyOf(tuple []byte) (store.Key, error) {
	key, _, err := splitTuple(tuple)
	if err != nil {
		return nil, err
	}
	return store.Key{string(key)}, nil
}

// decodeFrame materializes a store.Row from a wire.EncodeRecord frame.
func decodeFrame(buf []byte) (*store.Row, error) {
	f, err := wire.DecodeRecord(buf)
	if err != nil {
		return nil, err
	}
	return &store.Row{
		UN:    f.UN,
		SN:    f.SN,
		VN:    int64(f.VN),
		Shard: int(f.Shard),
		Tuple: f.Data,
	}, nil
}

// kvKeyFields is the one-field ascending key-ordered index every KV
// table in this node uses.
var kvKeyFields = []store.KeyField{{Name: "key", Descending: false}}
