// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rkv

import (
	"testing"
	"time"

	"github.com/momentics/rkv/wire"
)

func mkHostCfg(id byte, priority int) HostCfg {
	return HostCfg{ID: wire.ID{id}, Priority: priority}
}

// TestTwoHostElection covers S5: two configured hosts, the one with
// higher SN (or, on a tie, higher priority) becomes leader once both
// have exchanged a heartbeat.
func TestTwoHostElection(t *testing.T) {
	a := NewHost(mkHostCfg(1, 10))
	b := NewHost(mkHostCfg(2, 20))

	if err := a.Init(); err != nil {
		t.Fatalf("a.Init: %v", err)
	}
	if err := a.Start([]HostCfg{mkHostCfg(1, 10), mkHostCfg(2, 20)}); err != nil {
		t.Fatalf("a.Start: %v", err)
	}
	if a.State() != StateElecting {
		t.Fatalf("a.State = %v, want Electing before any heartbeat", a.State())
	}

	a.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{2}, State: uint8(StateElecting), NextSN: 0})

	if a.State() != StateInactive {
		t.Fatalf("a.State = %v, want Inactive (b outranks a on priority)", a.State())
	}
	leader, ok := a.Leader()
	if !ok || leader != (wire.ID{2}) {
		t.Fatalf("a.Leader() = %v,%v, want {2},true", leader, ok)
	}
}

func TestElectionRanksBySNFirst(t *testing.T) {
	a := NewHost(mkHostCfg(1, 5))
	must(t, a.Init())
	must(t, a.Start([]HostCfg{mkHostCfg(1, 5), mkHostCfg(2, 100)}))

	a.dbState.SetSN(50)
	a.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{2}, NextSN: 10})

	if a.State() != StateActive {
		t.Fatalf("a.State = %v, want Active (a has higher SN despite lower priority)", a.State())
	}
}

// TestDisconnectLeaderForcesReElection covers a leader's disconnection
// triggering a fresh ranking: once its only rival is gone, a becomes the
// sole remaining candidate and wins by default.
func TestDisconnectLeaderForcesReElection(t *testing.T) {
	a := NewHost(mkHostCfg(1, 1))
	must(t, a.Init())
	must(t, a.Start([]HostCfg{mkHostCfg(1, 1), mkHostCfg(2, 100)}))
	a.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{2}})

	if a.State() != StateInactive {
		t.Fatalf("precondition: a.State = %v, want Inactive", a.State())
	}

	a.Disconnect(wire.ID{2})
	if a.State() != StateActive {
		t.Fatalf("a.State after sole peer disconnect = %v, want Active", a.State())
	}
	leader, ok := a.Leader()
	if !ok || leader != (wire.ID{1}) {
		t.Fatalf("a.Leader() = %v,%v, want {1},true", leader, ok)
	}
}

// TestDisconnectNonLeaderStaysRanked covers disconnecting a peer that
// was not the leader: ranking re-runs but the existing leader is
// unaffected.
func TestDisconnectNonLeaderStaysRanked(t *testing.T) {
	a := NewHost(mkHostCfg(1, 1))
	must(t, a.Init())
	must(t, a.Start([]HostCfg{mkHostCfg(1, 1), mkHostCfg(2, 100), mkHostCfg(3, 50)}))
	a.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{2}})
	a.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{3}})

	leader, _ := a.Leader()
	if leader != (wire.ID{2}) {
		t.Fatalf("precondition: leader = %v, want {2}", leader)
	}

	a.Disconnect(wire.ID{3})
	leader, _ = a.Leader()
	if leader != (wire.ID{2}) {
		t.Fatalf("leader after disconnecting non-leader = %v, want unchanged {2}", leader)
	}
}

// TestCheckTimeoutsDisconnectsStalePeer covers a peer whose heartbeat
// has gone silent past the configured timeout expiring exactly like an
// explicit Disconnect (spec.md section 4.4.1's "disconnects expire on
// heartbeatTimeout").
func TestCheckTimeoutsDisconnectsStalePeer(t *testing.T) {
	a := NewHost(mkHostCfg(1, 1))
	must(t, a.Init())
	must(t, a.Start([]HostCfg{mkHostCfg(1, 1), mkHostCfg(2, 100)}))

	base := time.Unix(1000, 0)
	a.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{2}})
	a.peers[wire.ID{2}].lastSeen = base

	a.CheckTimeouts(base.Add(time.Second), 2*time.Second)
	if _, ok := a.peers[wire.ID{2}]; !ok {
		t.Fatalf("peer should still be present before timeout elapses")
	}

	a.CheckTimeouts(base.Add(10*time.Second), 2*time.Second)
	if _, ok := a.peers[wire.ID{2}]; ok {
		t.Fatalf("peer should have been disconnected after timeout elapsed")
	}
}

// TestCheckTimeoutsIgnoresPeerNeverHeartbeat covers a peer registered by
// Start but never heard from: its lastSeen is zero and CheckTimeouts
// must not disconnect it (that peer still needs its link to connect at
// all before a heartbeat can even arrive).
func TestCheckTimeoutsIgnoresPeerNeverHeartbeat(t *testing.T) {
	a := NewHost(mkHostCfg(1, 1))
	must(t, a.Init())
	must(t, a.Start([]HostCfg{mkHostCfg(1, 1), mkHostCfg(2, 100)}))

	a.CheckTimeouts(time.Unix(1000, 0), time.Millisecond)
	if _, ok := a.peers[wire.ID{2}]; !ok {
		t.Fatalf("peer with no heartbeat yet should not be disconnected")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
