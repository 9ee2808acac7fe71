// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package store

import (
	"encoding/binary"
	"testing"

	"github.com/momentics/rkv/api"
)

// testFrame packs {un,sn,vn,shard,keyInt64} into a fixed-width buffer so
// DecodeFrame/KeyOf below don't need a real wire codec for this test.
func encodeTestFrame(un, sn uint64, vn int64, shard int, key int64) []byte {
	buf := make([]byte, 8+8+8+8+8)
	binary.BigEndian.PutUint64(buf[0:8], un)
	binary.BigEndian.PutUint64(buf[8:16], sn)
	binary.BigEndian.PutUint64(buf[16:24], uint64(vn))
	binary.BigEndian.PutUint64(buf[24:32], uint64(shard))
	binary.BigEndian.PutUint64(buf[32:40], uint64(key))
	return buf
}

func testTableConfig(id string, nShards int) TableConfig {
	return TableConfig{
		ID:        id,
		NShards:   nShards,
		ObjFields: []string{"key"},
		KeyFields: []KeyField{{Name: "key"}},
		DecodeFrame: func(buf []byte) (*Row, error) {
			un := binary.BigEndian.Uint64(buf[0:8])
			sn := binary.BigEndian.Uint64(buf[8:16])
			vn := int64(binary.BigEndian.Uint64(buf[16:24]))
			shard := int(binary.BigEndian.Uint64(buf[24:32]))
			return &Row{UN: un, SN: sn, VN: vn, Shard: shard, Tuple: buf[32:40]}, nil
		},
		KeyOf: func(tuple []byte) (Key, error) {
			return Key{int64(binary.BigEndian.Uint64(tuple[0:8]))}, nil
		},
	}
}

func openTestTable(t *testing.T, s *MemStore, id string, nShards int) Table {
	t.Helper()
	var tbl Table
	var openErr error
	s.Open(testTableConfig(id, nShards), func(r api.Result[Table]) {
		tbl, openErr = r.Value, r.Err
	})
	if openErr != nil {
		t.Fatalf("Open: %v", openErr)
	}
	return tbl
}

func TestWriteFindRoundTrip(t *testing.T) {
	tbl := openTestTable(t, NewMemStore(), "t1", 2)

	var writeErr error
	tbl.Write(encodeTestFrame(0, 0, 0, 0, 42), func(err error) { writeErr = err })
	if writeErr != nil {
		t.Fatalf("Write: %v", writeErr)
	}

	var found *Row
	var findErr error
	tbl.Find(Key{int64(42)}, func(r api.Result[*Row]) { found, findErr = r.Value, r.Err })
	if findErr != nil {
		t.Fatalf("Find: %v", findErr)
	}
	if found == nil || found.UN != 0 {
		t.Fatalf("Find = %+v, want UN=0", found)
	}
}

func TestRecoverByShardAndUN(t *testing.T) {
	tbl := openTestTable(t, NewMemStore(), "t1", 2)

	tbl.Write(encodeTestFrame(0, 0, 0, 0, 1), func(error) {})
	tbl.Write(encodeTestFrame(1, 1, 0, 0, 2), func(error) {})
	tbl.Write(encodeTestFrame(0, 2, 0, 1, 3), func(error) {})

	var row *Row
	var recErr error
	tbl.Recover(0, 1, func(r api.Result[*Row]) { row, recErr = r.Value, r.Err })
	if recErr != nil {
		t.Fatalf("Recover: %v", recErr)
	}
	if row == nil || row.SN != 1 {
		t.Fatalf("Recover(shard=0,un=1) = %+v, want SN=1", row)
	}

	var missErr error
	tbl.Recover(0, 99, func(r api.Result[*Row]) { missErr = r.Err })
	if missErr != ErrNotFound {
		t.Fatalf("Recover(missing) = %v, want ErrNotFound", missErr)
	}
}

func TestSelectForwardAndBackward(t *testing.T) {
	tbl := openTestTable(t, NewMemStore(), "t1", 1)
	for i, k := range []int64{30, 10, 20} {
		tbl.Write(encodeTestFrame(uint64(i), uint64(i), 0, 0, k), func(error) {})
	}

	var forward []*Row
	tbl.Select(nil, true, true, 0, func(r api.Result[[]*Row]) { forward = r.Value })
	if len(forward) != 3 {
		t.Fatalf("Select forward len = %d, want 3", len(forward))
	}
	wantAsc := []int64{10, 20, 30}
	for i, row := range forward {
		key, err := tbl.(*memTable).cfg.KeyOf(row.Tuple)
		if err != nil {
			t.Fatalf("KeyOf: %v", err)
		}
		if key[0].(int64) != wantAsc[i] {
			t.Fatalf("forward[%d] key = %v, want %d", i, key[0], wantAsc[i])
		}
	}

	var backward []*Row
	tbl.Select(nil, false, true, 0, func(r api.Result[[]*Row]) { backward = r.Value })
	if len(backward) != 3 {
		t.Fatalf("Select backward len = %d, want 3", len(backward))
	}
	wantDesc := []int64{30, 20, 10}
	for i, row := range backward {
		key, _ := tbl.(*memTable).cfg.KeyOf(row.Tuple)
		if key[0].(int64) != wantDesc[i] {
			t.Fatalf("backward[%d] key = %v, want %d", i, key[0], wantDesc[i])
		}
	}
}

func TestCountMatchingKey(t *testing.T) {
	tbl := openTestTable(t, NewMemStore(), "t1", 1)
	tbl.Write(encodeTestFrame(0, 0, 0, 0, 7), func(error) {})

	var n int
	tbl.Count(Key{int64(7)}, func(r api.Result[int]) { n = r.Value })
	if n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}

	var zero int
	tbl.Count(Key{int64(999)}, func(r api.Result[int]) { zero = r.Value })
	if zero != 0 {
		t.Fatalf("Count(missing) = %d, want 0", zero)
	}
}
