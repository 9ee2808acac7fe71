// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package store defines the storage-plugin contract of spec.md section
// 4.3: a per-table backing engine that RKV writes committed rows to and
// recovers catch-up rows from. Row payloads are opaque bytes to every
// caller in this package; only the key-field comparators configured at
// Open need to look inside a row's tuple.
//
// Grounded on z/zdb/src/Zdb.cc and z/zdb/src/ZdbMemStore.hh
// (original_source/_INDEX.md) for the open/write/recover/count/find/
// select operation set and the {un, sn, vn, tuple} row shape.
package store

import "github.com/momentics/rkv/api"

// KeyField names one field of a row's tuple and whether it orders
// ascending or descending within its index.
type KeyField struct {
	Name       string
	Descending bool
}

// TableConfig mirrors spec.md section 4.3's open() parameters. DecodeFrame
// and KeyOf are used by the in-memory reference store only: spec.md
// section 4.3 notes that reflection-based decoding belongs to the
// reference store, while the RKV core and any other backing engine
// treat a record frame as opaque bytes.
type TableConfig struct {
	ID        string
	NShards   int
	ObjFields []string
	KeyFields []KeyField

	// DecodeFrame materializes a Row from a serialized record frame
	// (wire.EncodeRecord's output: tableId/un/sn/vn/shard/payload).
	DecodeFrame func(buf []byte) (*Row, error)

	// KeyOf extracts the fields named by KeyFields, in order, from a
	// row's tuple, for the key-ordered index's comparator.
	KeyOf func(tuple []byte) (Key, error)
}

// Row is a single versioned record: vn >= 0 for a live version, vn < 0
// encodes a deletion generation as -vn-1 (spec.md section 3.3).
type Row struct {
	UN    uint64
	SN    uint64
	VN    int64
	Shard int
	Tuple []byte
}

// Opened is the result of Open(): the table's current watermarks, read
// back so RKV can compute how far a recovering follower is behind.
type Opened struct {
	Count int
	UN    []uint64 // per shard
	SN    uint64
}

// Key is an ordered tuple of field values used to probe a table's
// key-ordered index for Count/Find/Select.
type Key []any

// Store is the storage-plugin contract. An implementation backs zero or
// more tables; MemStore in this package is the in-memory reference
// engine spec.md section 4.3 calls out as part of the core.
type Store interface {
	// Open creates or attaches to a table under cfg, invoking fn with the
	// table's current state once ready (or with an error event on
	// failure, per spec.md's structured-result convention).
	Open(cfg TableConfig, fn func(api.Result[Table]))

	// Close releases every table this Store holds open.
	Close(fn func(error))
}

// Table is the per-table handle returned by Store.Open; all of a
// table's operations are expressed against it rather than re-addressed
// by table ID on every call, mirroring spec.md's storeTbl handle.
type Table interface {
	ID() string
	Opened() Opened

	// Write durably applies buf (a serialized record frame produced by
	// wire.EncodeRecord) and invokes commitFn with nil on success or an
	// error event on failure. On success RKV evicts its cached buffer
	// for this row and broadcasts a Commit frame.
	Write(buf []byte, commitFn func(error))

	// Recover reads a single versioned row by shard and UN, for
	// tail-catch-up replication.
	Recover(shard int, un uint64, fn func(api.Result[*Row]))

	// Count reports how many rows match key under the table's
	// key-ordered index.
	Count(key Key, fn func(api.Result[int]))

	// Find returns the row exactly matching key, if any.
	Find(key Key, fn func(api.Result[*Row]))

	// Select walks the key-ordered index from key (or from the first/last
	// row when key is empty), forward or backward, including key itself
	// when inclusive, up to limit rows (0 meaning unbounded).
	Select(key Key, forward, inclusive bool, limit int, fn func(api.Result[[]*Row]))

	Close(fn func(error))
}
