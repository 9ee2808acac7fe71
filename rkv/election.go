// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Election ranks hosts by replication progress, then configured
// priority, then host ID, per spec.md section 4.4.2. Grounded on
// z/zdb/src/Zdb.cc's election pass (original_source/_INDEX.md): a host
// becomes leader once every known peer has voted (sent at least one
// heartbeat since this host started electing) and it ranks first; until
// then the host stays Electing.
package rkv

import (
	"log"

	"github.com/momentics/rkv/wire"
)

// candidate is one ranked entry: a peer or the local host itself.
type candidate struct {
	id       wire.ID
	sn       uint64
	priority int
	voted    bool
}

// less reports whether a outranks b: higher SN wins, then higher
// priority, then lexicographically smaller ID. The ID compare only
// breaks ties that rerankLocked has already judged to be a genuine
// election deadlock (spec.md section 4.4.2); it is never reached to
// silently resolve one.
func (a candidate) less(b candidate) bool {
	if a.sn != b.sn {
		return a.sn > b.sn
	}
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.id.Less(b.id)
}

// tiedRank reports whether a and b rank equally by SN and priority,
// independent of ID: the condition spec.md section 4.4.2 calls a tie
// ("leaves leader undefined") and section 7 calls an election deadlock,
// logged Fatal with the host staying Electing until a heartbeat breaks
// it.
func (a candidate) tiedRank(b candidate) bool {
	return a.sn == b.sn && a.priority == b.priority
}

// rerankLocked recomputes leader/next from the current peer table and
// transitions Electing -> Active/Inactive once every known peer has
// voted. Must be called with h.mu held.
func (h *Host) rerankLocked() {
	if h.state != StateElecting && h.state != StateActive && h.state != StateInactive {
		return
	}

	cands := []candidate{{id: h.cfg.ID, sn: h.dbState.SN(), priority: h.cfg.Priority, voted: true}}
	allVoted := true
	for id, p := range h.peers {
		cands = append(cands, candidate{id: id, sn: p.DBState.SN(), priority: p.Cfg.Priority, voted: p.Voted})
		if !p.Voted {
			allVoted = false
		}
	}

	if !allVoted {
		h.state = StateElecting
		return
	}

	best := cands[0]
	for _, c := range cands[1:] {
		if c.less(best) {
			best = c
		}
	}

	for _, c := range cands {
		if c.id != best.id && c.tiedRank(best) {
			log.Printf("rkv: FATAL election tie at sn=%d priority=%d among at least %v and %v, leader undefined until a heartbeat breaks it: %v",
				best.sn, best.priority, best.id, c.id, ErrElectionTie)
			h.leader = nil
			h.state = StateElecting
			return
		}
	}

	leader := best.id
	h.leader = &leader

	if leader == h.cfg.ID {
		h.state = StateActive
	} else {
		h.state = StateInactive
	}

	h.setNextLocked(cands)
}

// setNextLocked computes the ring successor of the local host within
// the ranked candidate order: the replication chain of spec.md section
// 4.4.6 forwards Record/Commit frames leader -> next -> next's next, so
// every host but the last has a distinct successor to forward to.
func (h *Host) setNextLocked(cands []candidate) {
	ranked := make([]candidate, len(cands))
	copy(ranked, cands)
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].less(ranked[j-1]); j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	for i, c := range ranked {
		if c.id == h.cfg.ID {
			if i+1 < len(ranked) {
				next := ranked[i+1].id
				h.next = &next
			} else {
				h.next = nil
			}
			return
		}
	}
}
