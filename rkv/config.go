// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package rkv implements the replicated, shard-partitioned key/value
// core: the host state machine, leader election, per-table sharding,
// object lifecycle, and replication of spec.md sections 3.3 and 4.4.
//
// Grounded on z/zdb/src/Zdb.cc (original_source/_INDEX.md) for the
// host/election/replication state machine, and on
// other_examples/...ppriyankuu-godkv__internal-cluster-replicator.go.go
// for the Go-idiomatic naming of a replica-fanout type (Replicator) atop
// a generic membership list, adapted here from godkv's quorum
// read/write model to RKV's single-leader, ranked-successor model.
package rkv

import (
	"time"

	"github.com/momentics/rkv/store"
	"github.com/momentics/rkv/wire"
)

// HostCfg is one configured peer (spec.md section 3.3).
type HostCfg struct {
	ID         wire.ID
	IP         string
	Port       int
	Priority   int
	Standalone bool
}

// CacheMode selects how aggressively a table's object cache retains
// entries between accesses (spec.md section 6.2's tables{...cacheMode}).
type CacheMode int

const (
	CacheModeNormal CacheMode = iota // evict on commit, per spec.md section 4.4.3
	CacheModeAll                     // retain the full working set
)

// TableCfg is one configured table (spec.md section 3.3/6.2).
type TableCfg struct {
	ID        string
	NShards   int
	CacheMode CacheMode
	Threads   []int // shard -> affinity thread id, length NShards
}

// Config is the RKV host configuration of spec.md section 6.2.
type Config struct {
	HostID           wire.ID
	Thread           int
	Hosts            []HostCfg
	Tables           map[string]TableCfg
	HeartbeatFreq    time.Duration
	HeartbeatTimeout time.Duration
	ReconnectFreq    time.Duration
	ElectionTimeout  time.Duration
	NAccepts         int
	Store            store.Store
}
