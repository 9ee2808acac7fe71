// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rkv

import (
	"sync"
	"time"

	"github.com/momentics/rkv/wire"
)

// HostState is one state of the host state machine of spec.md section
// 4.4.1: Instantiated -> Initialized -> Electing -> {Active|Inactive} ->
// Stopping -> Initialized.
type HostState int

const (
	StateInstantiated HostState = iota
	StateInitialized
	StateElecting
	StateActive
	StateInactive
	StateStopping
)

func (s HostState) String() string {
	switch s {
	case StateInstantiated:
		return "Instantiated"
	case StateInitialized:
		return "Initialized"
	case StateElecting:
		return "Electing"
	case StateActive:
		return "Active"
	case StateInactive:
		return "Inactive"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// DBState is a host's replication progress: a per-(table,shard) next-UN
// vector plus a global next-SN, exported through a lock-free read so the
// heartbeat serializer never blocks a committing shard (spec.md section
// 4.4.4's "exported through a lock-free atomic that the heartbeat
// serialiser reads").
type DBState struct {
	mu sync.RWMutex
	un map[string][]uint64 // tableID -> per-shard nextUN
	sn uint64
}

func NewDBState() *DBState {
	return &DBState{un: make(map[string][]uint64)}
}

func (d *DBState) NextUN(table string, shard int) uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v := d.un[table]
	if shard < 0 || shard >= len(v) {
		return 0
	}
	return v[shard]
}

func (d *DBState) SetUN(table string, shard int, un uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.un[table]
	for len(v) <= shard {
		v = append(v, 0)
	}
	if un > v[shard] {
		v[shard] = un
	}
	d.un[table] = v
}

func (d *DBState) SN() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sn
}

func (d *DBState) SetSN(sn uint64) {
	d.mu.Lock()
	if sn > d.sn {
		d.sn = sn
	}
	d.mu.Unlock()
}

// Entries returns the dbState vector as wire.DBStateEntry values, for
// stamping onto an outgoing Heartbeat frame.
func (d *DBState) Entries() []wire.DBStateEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []wire.DBStateEntry
	for table, shards := range d.un {
		for shard, un := range shards {
			out = append(out, wire.DBStateEntry{TableID: table, Shard: uint8(shard), UN: un})
		}
	}
	return out
}

// Less reports whether d has made less replication progress than other:
// first by SN, ranking's primary key (spec.md section 4.4.2).
func (d *DBState) Less(other *DBState) bool {
	return d.SN() < other.SN()
}

// Peer is a remote host's runtime record (spec.md section 3.3's Host).
type Peer struct {
	Cfg      HostCfg
	State    HostState
	Voted    bool
	DBState  *DBState
	lastSeen time.Time
}

// Host is the local RKV host: its own state machine plus the peer table
// used for election ranking (spec.md section 4.4.1/4.4.2).
type Host struct {
	mu sync.Mutex

	cfg     HostCfg
	state   HostState
	dbState *DBState

	peers map[wire.ID]*Peer

	leader *wire.ID
	next   *wire.ID
}

// NewHost creates a host in the Instantiated state.
func NewHost(cfg HostCfg) *Host {
	return &Host{
		cfg:     cfg,
		state:   StateInstantiated,
		dbState: NewDBState(),
		peers:   make(map[wire.ID]*Peer),
	}
}

func (h *Host) State() HostState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Host) DBState() *DBState { return h.dbState }

func (h *Host) ID() wire.ID { return h.cfg.ID }

// Init transitions Instantiated -> Initialized, run once all of a
// table's shards have finished their tail-open (spec.md section 4.4.1).
func (h *Host) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateInstantiated && h.state != StateStopping {
		return ErrBadTransition
	}
	h.state = StateInitialized
	return nil
}

// Start transitions Initialized -> Electing, beginning heartbeat
// broadcast and the election timer (spec.md section 4.4.2). Each known
// peer is registered, unvoted, at its configured priority.
func (h *Host) Start(peers []HostCfg) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateInitialized {
		return ErrBadTransition
	}
	for _, p := range peers {
		if p.ID == h.cfg.ID {
			continue
		}
		h.peers[p.ID] = &Peer{Cfg: p, State: StateInstantiated, DBState: NewDBState()}
	}
	h.state = StateElecting
	return nil
}

// Stop transitions any state to Stopping; Reinit from Stopping back to
// Initialized is via Init.
func (h *Host) Stop() {
	h.mu.Lock()
	h.state = StateStopping
	h.mu.Unlock()
}

// HandleHeartbeat applies an inbound Heartbeat frame: it marks the
// sender voted (the implicit-vote rule of spec.md section 4.4.2),
// records its dbState, and re-evaluates the election ranking.
func (h *Host) HandleHeartbeat(f wire.HeartbeatFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.peers[f.HostID]
	if !ok {
		p = &Peer{Cfg: HostCfg{ID: f.HostID}, DBState: NewDBState()}
		h.peers[f.HostID] = p
	}
	p.State = HostState(f.State)
	p.Voted = true
	p.lastSeen = time.Now()
	p.DBState.SetSN(f.NextSN)
	for _, e := range f.DBState {
		p.DBState.SetUN(e.TableID, int(e.Shard), e.UN)
	}

	h.rerankLocked()
}

// Disconnect marks a peer gone: if it was the leader, a new election is
// forced; if it was next, setNext recomputes the successor
// (spec.md section 4.4.2/4.4.6).
func (h *Host) Disconnect(id wire.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, id)
	if h.leader != nil && *h.leader == id {
		h.leader = nil
		h.state = StateElecting
	}
	if h.next != nil && *h.next == id {
		h.next = nil
	}
	h.rerankLocked()
}

// CheckTimeouts disconnects every peer whose heartbeat is older than
// timeout (spec.md section 4.4.1: "disconnects expire on
// heartbeatTimeout"; section 4.5: "Heartbeat timeout is armed on every
// successful receive and disarmed on disconnect"). A peer never heard
// from (lastSeen is zero) is left alone; it disconnects via the
// transport link failing instead, since it has no heartbeat to expire.
func (h *Host) CheckTimeouts(now time.Time, timeout time.Duration) {
	h.mu.Lock()
	var expired []wire.ID
	for id, p := range h.peers {
		if p.lastSeen.IsZero() {
			continue
		}
		if now.Sub(p.lastSeen) > timeout {
			expired = append(expired, id)
		}
	}
	h.mu.Unlock()

	for _, id := range expired {
		h.Disconnect(id)
	}
}

func (h *Host) Leader() (wire.ID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.leader == nil {
		return wire.ID{}, false
	}
	return *h.leader, true
}

func (h *Host) Next() (wire.ID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.next == nil {
		return wire.ID{}, false
	}
	return *h.next, true
}
