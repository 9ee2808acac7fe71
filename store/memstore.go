// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MemStore is the in-memory reference Store of spec.md section 4.3: rows
// are kept in a UN-ordered index per shard (an append-mostly sorted
// slice, since UN only ever grows) and a single key-ordered index built
// from TableConfig.KeyFields. Grounded on z/zdb/src/ZdbMemStore.hh's
// MemRow/IndexUN/StoreTbl shape, and on
// other_examples/...edirooss-zmux-server__internal-repo-store-store.go.go's
// StringStore concurrency discipline: reads take an RWMutex read lock,
// writes are fully serialized and apply their in-memory mutation only
// after the write itself has "succeeded" (here: been appended), so a
// reader never observes a partial mutation.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/momentics/rkv/api"
)

var (
	ErrUnknownTable = errors.New("store: unknown table id")
	ErrNoCodec      = errors.New("store: table has no DecodeFrame/KeyOf configured")
	ErrNotFound     = errors.New("store: row not found")
)

// MemStore is a Store backed entirely by process memory.
type MemStore struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]*memTable)}
}

func (s *MemStore) Open(cfg TableConfig, fn func(api.Result[Table])) {
	if cfg.DecodeFrame == nil || cfg.KeyOf == nil {
		fn(api.Result[Table]{Err: ErrNoCodec})
		return
	}
	s.mu.Lock()
	t, ok := s.tables[cfg.ID]
	if !ok {
		t = newMemTable(cfg)
		s.tables[cfg.ID] = t
	}
	s.mu.Unlock()

	fn(api.Result[Table]{Value: t})
}

func (s *MemStore) Close(fn func(error)) {
	s.mu.Lock()
	s.tables = make(map[string]*memTable)
	s.mu.Unlock()
	fn(nil)
}

// keyedRow pairs a decoded sort key with its row, so the key-ordered
// index can be a plain sorted slice instead of a tree: writes to this
// reference store are not so frequent that O(log n) insertion position
// plus O(n) shift is a real cost, and it avoids pulling in a tree
// library the teacher never uses.
type keyedRow struct {
	key Key
	row *Row
}

type memTable struct {
	cfg TableConfig

	mu      sync.RWMutex
	nextUN  []uint64          // per shard
	sn      uint64
	byUN    map[int][]*Row    // shard -> rows sorted by UN ascending
	byKey   []keyedRow        // sorted by decoded key, ascending on KeyFields
	count   int
}

func newMemTable(cfg TableConfig) *memTable {
	return &memTable{
		cfg:    cfg,
		nextUN: make([]uint64, cfg.NShards),
		byUN:   make(map[int][]*Row),
	}
}

func (t *memTable) ID() string { return t.cfg.ID }

func (t *memTable) Opened() Opened {
	t.mu.RLock()
	defer t.mu.RUnlock()
	un := make([]uint64, len(t.nextUN))
	copy(un, t.nextUN)
	return Opened{Count: t.count, UN: un, SN: t.sn}
}

func (t *memTable) Write(buf []byte, commitFn func(error)) {
	row, err := t.cfg.DecodeFrame(buf)
	if err != nil {
		commitFn(err)
		return
	}
	key, err := t.cfg.KeyOf(row.Tuple)
	if err != nil {
		commitFn(err)
		return
	}

	t.mu.Lock()
	if row.Shard < 0 || row.Shard >= len(t.nextUN) {
		t.mu.Unlock()
		commitFn(errors.New("store: shard out of range"))
		return
	}
	if row.UN >= t.nextUN[row.Shard] {
		t.nextUN[row.Shard] = row.UN + 1
	}
	if row.SN >= t.sn {
		t.sn = row.SN + 1
	}

	t.byUN[row.Shard] = append(t.byUN[row.Shard], row)
	t.upsertKeyLocked(key, row)
	if row.VN >= 0 {
		t.count++
	}
	t.mu.Unlock()

	commitFn(nil)
}

// upsertKeyLocked inserts row into the key-ordered index at key's sorted
// position, replacing any existing entry with an identical key (an
// update or delete of the same logical row, distinguished by VN).
func (t *memTable) upsertKeyLocked(key Key, row *Row) {
	i := sort.Search(len(t.byKey), func(i int) bool {
		return compareKeys(t.byKey[i].key, key, t.cfg.KeyFields) >= 0
	})
	if i < len(t.byKey) && compareKeys(t.byKey[i].key, key, t.cfg.KeyFields) == 0 {
		t.byKey[i] = keyedRow{key: key, row: row}
		return
	}
	t.byKey = append(t.byKey, keyedRow{})
	copy(t.byKey[i+1:], t.byKey[i:])
	t.byKey[i] = keyedRow{key: key, row: row}
}

func (t *memTable) Recover(shard int, un uint64, fn func(api.Result[*Row])) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if shard < 0 || shard >= len(t.nextUN) {
		fn(api.Result[*Row]{Err: errors.New("store: shard out of range")})
		return
	}
	rows := t.byUN[shard]
	i := sort.Search(len(rows), func(i int) bool { return rows[i].UN >= un })
	if i < len(rows) && rows[i].UN == un {
		fn(api.Result[*Row]{Value: rows[i]})
		return
	}
	fn(api.Result[*Row]{Err: ErrNotFound})
}

func (t *memTable) Count(key Key, fn func(api.Result[int])) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, kr := range t.byKey {
		if compareKeys(kr.key, key, t.cfg.KeyFields) == 0 && kr.row.VN >= 0 {
			n++
		}
	}
	fn(api.Result[int]{Value: n})
}

func (t *memTable) Find(key Key, fn func(api.Result[*Row])) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := sort.Search(len(t.byKey), func(i int) bool {
		return compareKeys(t.byKey[i].key, key, t.cfg.KeyFields) >= 0
	})
	if i < len(t.byKey) && compareKeys(t.byKey[i].key, key, t.cfg.KeyFields) == 0 && t.byKey[i].row.VN >= 0 {
		fn(api.Result[*Row]{Value: t.byKey[i].row})
		return
	}
	fn(api.Result[*Row]{Err: ErrNotFound})
}

// Select walks the key-ordered index from key, forward or backward,
// including key itself when inclusive, stopping after limit rows
// (limit <= 0 means unbounded).
func (t *memTable) Select(key Key, forward, inclusive bool, limit int, fn func(api.Result[[]*Row])) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*Row

	if len(key) == 0 {
		// No key given: walk the whole index from either end.
		if forward {
			for i := 0; i < len(t.byKey); i++ {
				if t.byKey[i].row.VN >= 0 {
					out = append(out, t.byKey[i].row)
				}
				if limit > 0 && len(out) >= limit {
					break
				}
			}
		} else {
			for i := len(t.byKey) - 1; i >= 0; i-- {
				if t.byKey[i].row.VN >= 0 {
					out = append(out, t.byKey[i].row)
				}
				if limit > 0 && len(out) >= limit {
					break
				}
			}
		}
		fn(api.Result[[]*Row]{Value: out})
		return
	}

	start := sort.Search(len(t.byKey), func(i int) bool {
		return compareKeys(t.byKey[i].key, key, t.cfg.KeyFields) >= 0
	})

	if forward {
		for i := start; i < len(t.byKey); i++ {
			cmp := compareKeys(t.byKey[i].key, key, t.cfg.KeyFields)
			if cmp == 0 && !inclusive {
				continue
			}
			if t.byKey[i].row.VN >= 0 {
				out = append(out, t.byKey[i].row)
			}
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	} else {
		from := start - 1
		if start < len(t.byKey) && inclusive && compareKeys(t.byKey[start].key, key, t.cfg.KeyFields) == 0 {
			from = start
		}
		for i := from; i >= 0; i-- {
			if t.byKey[i].row.VN >= 0 {
				out = append(out, t.byKey[i].row)
			}
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}

	fn(api.Result[[]*Row]{Value: out})
}

func (t *memTable) Close(fn func(error)) { fn(nil) }

// compareKeys orders two key tuples field by field per fields' ascending/
// descending configuration. An empty b acts as the low sentinel so
// Select with no key starts from the first row.
func compareKeys(a, b Key, fields []KeyField) int {
	if len(b) == 0 {
		return 1
	}
	for i := 0; i < len(a) && i < len(b) && i < len(fields); i++ {
		c := compareAny(a[i], b[i])
		if fields[i].Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func compareAny(a, b any) int {
	switch av := a.(type) {
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case uint64:
		bv := b.(uint64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	default:
		return 0
	}
}
