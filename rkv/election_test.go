// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rkv

import (
	"testing"

	"github.com/momentics/rkv/wire"
)

func TestCandidateLessTieBreaksOnID(t *testing.T) {
	a := candidate{id: wire.ID{1}, sn: 5, priority: 5}
	b := candidate{id: wire.ID{2}, sn: 5, priority: 5}
	if !a.less(b) {
		t.Fatalf("a(id=1) should outrank b(id=2) on lexicographic tiebreak")
	}
	if b.less(a) {
		t.Fatalf("b(id=2) should not outrank a(id=1)")
	}
}

// TestRingSuccessorChain covers the replication-chain successor
// computation of spec.md section 4.4.6: with three hosts ranked
// 2 > 3 > 1 (by priority), host 2's next is 3, and host 3's next is 1.
func TestRingSuccessorChain(t *testing.T) {
	h2 := NewHost(mkHostCfg(2, 100))
	must(t, h2.Init())
	must(t, h2.Start([]HostCfg{mkHostCfg(1, 1), mkHostCfg(2, 100), mkHostCfg(3, 50)}))
	h2.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{1}})
	h2.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{3}})

	if h2.State() != StateActive {
		t.Fatalf("h2.State = %v, want Active", h2.State())
	}
	next, ok := h2.Next()
	if !ok || next != (wire.ID{3}) {
		t.Fatalf("h2.Next() = %v,%v, want {3},true", next, ok)
	}

	h3 := NewHost(mkHostCfg(3, 50))
	must(t, h3.Init())
	must(t, h3.Start([]HostCfg{mkHostCfg(1, 1), mkHostCfg(2, 100), mkHostCfg(3, 50)}))
	h3.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{1}})
	h3.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{2}})

	next, ok = h3.Next()
	if !ok || next != (wire.ID{1}) {
		t.Fatalf("h3.Next() = %v,%v, want {1},true", next, ok)
	}
}

// TestElectionTieLeavesLeaderUndefined covers spec.md section 4.4.2's
// tie condition (equal SN and priority, independent of ID) and section
// 7's election-deadlock semantics: the host must not silently resolve
// the tie via ID and must stay Electing with no leader until a later
// heartbeat breaks the tie.
func TestElectionTieLeavesLeaderUndefined(t *testing.T) {
	a := NewHost(mkHostCfg(1, 10))
	must(t, a.Init())
	must(t, a.Start([]HostCfg{mkHostCfg(1, 10), mkHostCfg(2, 10)}))

	a.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{2}, NextSN: 0})

	if _, ok := a.Leader(); ok {
		t.Fatalf("a tied election should leave the leader undefined")
	}
	if a.State() != StateElecting {
		t.Fatalf("a.State = %v, want Electing while the tie persists", a.State())
	}

	// A later heartbeat that breaks the tie (peer 2 pulls ahead on SN)
	// must resolve the election normally.
	a.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{2}, NextSN: 5})

	leader, ok := a.Leader()
	if !ok || leader != (wire.ID{2}) {
		t.Fatalf("a.Leader() after tie-breaking heartbeat = %v,%v, want {2},true", leader, ok)
	}
}

// TestLastHostHasNoSuccessor covers the tail of the replication chain:
// the lowest-ranked host has no Next.
func TestLastHostHasNoSuccessor(t *testing.T) {
	h1 := NewHost(mkHostCfg(1, 1))
	must(t, h1.Init())
	must(t, h1.Start([]HostCfg{mkHostCfg(1, 1), mkHostCfg(2, 100)}))
	h1.HandleHeartbeat(wire.HeartbeatFrame{HostID: wire.ID{2}})

	if _, ok := h1.Next(); ok {
		t.Fatalf("h1.Next() should be unset: h1 is last in the ranked chain")
	}
}
