// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rkv

import (
	"testing"

	"github.com/momentics/rkv/api"
	"github.com/momentics/rkv/store"
)

type fakeTable struct {
	id      string
	writes  [][]byte
	opened  store.Opened
	closeFn func(error)
}

func (f *fakeTable) ID() string      { return f.id }
func (f *fakeTable) Opened() store.Opened { return f.opened }
func (f *fakeTable) Write(buf []byte, commitFn func(error)) {
	f.writes = append(f.writes, buf)
	commitFn(nil)
}
func (f *fakeTable) Recover(shard int, un uint64, fn func(api.Result[*store.Row])) {
	fn(api.Result[*store.Row]{Err: store.ErrNotFound})
}
func (f *fakeTable) Count(key store.Key, fn func(api.Result[int])) { fn(api.Result[int]{}) }
func (f *fakeTable) Find(key store.Key, fn func(api.Result[*store.Row])) {
	fn(api.Result[*store.Row]{Err: store.ErrNotFound})
}
func (f *fakeTable) Select(key store.Key, forward, inclusive bool, limit int, fn func(api.Result[[]*store.Row])) {
	fn(api.Result[[]*store.Row]{})
}
func (f *fakeTable) Close(fn func(error)) { fn(nil) }

// TestShardUNIsolationAcrossShards covers S6: per-shard UN sequences
// advance independently, so writes to shard 0 never perturb shard 1's
// next UN.
func TestShardUNIsolationAcrossShards(t *testing.T) {
	mgr := NewManager(nil)
	tbl := newShardTable(mgr, TableCfg{ID: "orders", NShards: 2}, &fakeTable{id: "orders"}, store.Opened{})

	un0a := tbl.AllocUN(0)
	un0b := tbl.AllocUN(0)
	un1a := tbl.AllocUN(1)

	if un0a != 0 || un0b != 1 {
		t.Fatalf("shard 0 UNs = %d,%d, want 0,1", un0a, un0b)
	}
	if un1a != 0 {
		t.Fatalf("shard 1 first UN = %d, want 0 (independent of shard 0)", un1a)
	}
}

func TestShardUNResumesFromOpenedWatermark(t *testing.T) {
	mgr := NewManager(nil)
	opened := store.Opened{UN: []uint64{9, 3}}
	tbl := newShardTable(mgr, TableCfg{ID: "orders", NShards: 2}, &fakeTable{id: "orders"}, opened)

	if got := tbl.AllocUN(0); got != 10 {
		t.Fatalf("shard 0 first UN after reopen = %d, want 10", got)
	}
	if got := tbl.AllocUN(1); got != 4 {
		t.Fatalf("shard 1 first UN after reopen = %d, want 4", got)
	}
}

func TestShardAbortRestoresUN(t *testing.T) {
	mgr := NewManager(nil)
	tbl := newShardTable(mgr, TableCfg{ID: "orders", NShards: 1}, &fakeTable{id: "orders"}, store.Opened{})

	un := tbl.AllocUN(0)
	tbl.AllocUN(0) // advances nextUN to 2
	tbl.RestoreUN(0, un)

	if got := tbl.AllocUN(0); got != un {
		t.Fatalf("UN after RestoreUN = %d, want reissued %d", got, un)
	}
}

func TestManagerGlobalSNMonotonic(t *testing.T) {
	mgr := NewManager(nil)
	a := mgr.NextSN()
	b := mgr.NextSN()
	c := mgr.NextSN()
	if !(a < b && b < c) {
		t.Fatalf("SN sequence %d,%d,%d is not strictly increasing", a, b, c)
	}
}

func TestShardCommitAssignsGlobalSNAndEvictsBuf(t *testing.T) {
	mgr := NewManager(nil)
	ft := &fakeTable{id: "orders"}
	tbl := newShardTable(mgr, TableCfg{ID: "orders", NShards: 1}, ft, store.Opened{})

	un := tbl.AllocUN(0)
	obj := NewObject()
	must(t, obj.Insert_([]byte("v1"), un))

	done := false
	tbl.Commit(0, un, obj, []byte("frame-bytes"), func(err error) {
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		done = true
	})
	if !done {
		t.Fatalf("commitFn never invoked")
	}
	if obj.State() != ObjCommitted {
		t.Fatalf("State = %v, want Committed", obj.State())
	}
	if obj.SN() == 0 {
		t.Fatalf("SN not assigned on commit")
	}
	if _, ok := tbl.Buf(0, un); ok {
		t.Fatalf("buffer cache should be evicted after commit under CacheModeNormal")
	}
	if len(ft.writes) != 1 {
		t.Fatalf("backing table wrote %d frames, want 1", len(ft.writes))
	}
}

func TestShardCommitRetainsBufUnderCacheModeAll(t *testing.T) {
	mgr := NewManager(nil)
	ft := &fakeTable{id: "orders"}
	tbl := newShardTable(mgr, TableCfg{ID: "orders", NShards: 1, CacheMode: CacheModeAll}, ft, store.Opened{})

	un := tbl.AllocUN(0)
	obj := NewObject()
	must(t, obj.Insert_([]byte("v1"), un))

	tbl.Commit(0, un, obj, []byte("frame-bytes"), func(error) {})

	if _, ok := tbl.Buf(0, un); !ok {
		t.Fatalf("buffer cache should be retained under CacheModeAll")
	}
}
