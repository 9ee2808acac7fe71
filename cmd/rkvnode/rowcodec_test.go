// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package main

import (
	"bytes"
	"testing"

	"github.com/momentics/rkv/wire"
)

func TestEncodeSplitTupleRoundTrip(t *testing.T) {
	tuple := encodeTuple([]byte("user:42"), []byte("alice"))
	key, value, err := splitTuple(tuple)
	if err != nil {
		t.Fatalf("splitTuple: %v", err)
	}
	if !bytes.Equal(key, []byte("user:42")) {
		t.Fatalf("key = %q, want user:42", key)
	}
	if !bytes.Equal(value, []byte("alice")) {
		t.Fatalf("value = %q, want alice", value)
	}
}

func TestSplitTupleRejectsTruncated(t *testing.T) {
	if _, _, err := splitTuple([]byte{0, 0, 0, 5, 'a'}); err != errShortTuple {
		t.Fatalf("err = %v, want errShortTuple", err)
	}
	if _, _, err := splitTuple([]byte{0, 0}); err != errShortTuple {
		t.Fatalf("err = %v, want errShortTuple", err)
	}
}

func TestKeyOfExtractsKeyField(t *testing.T) {
	tuple := encodeTuple([]byte("k1"), []byte("v1"))
	key, err := keyOf(tuple)
	if err != nil {
		t.Fatalf("keyOf: %v", err)
	}
	if len(key) != 1 || key[0] != "k1" {
		t.Fatalf("key = %+v, want [k1]", key)
	}
}

func TestDecodeFrameMaterializesRow(t *testing.T) {
	tuple := encodeTuple([]byte("k1"), []byte("v1"))
	buf := wire.EncodeRecord(wire.RecordFrame{TableID: "kv", UN: 3, SN: 7, VN: 0, Shard: 2, Data: tuple})

	row, err := decodeFrame(buf)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if row.UN != 3 || row.SN != 7 || row.Shard != 2 {
		t.Fatalf("row = %+v, want UN=3 SN=7 Shard=2", row)
	}
	key, value, err := splitTuple(row.Tuple)
	if err != nil {
		t.Fatalf("splitTuple(row.Tuple): %v", err)
	}
	if string(key) != "k1" || string(value) != "v1" {
		t.Fatalf("key/value = %q/%q, want k1/v1", key, value)
	}
}
