// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The five periodic loops every running node keeps: broadcasting its
// own heartbeat (spec.md section 4.4.2), re-pointing the Replicator at
// the current ring successor once election settles (section 4.4.6),
// re-issuing a resend request while a receive-side gap persists
// (section 4.4.5), expiring peers whose heartbeat has gone stale, and
// periodically logging the debug probes and metrics.
package main

import (
	"log"
	"time"

	"github.com/momentics/rkv/control"
	"github.com/momentics/rkv/rkv"
	"github.com/momentics/rkv/wire"
)

func heartbeatLoop(host *rkv.Host, mgr *rkv.Manager, links *linkSet, freq time.Duration) {
	t := time.NewTicker(freq)
	defer t.Stop()
	for range t.C {
		f := wire.HeartbeatFrame{
			HostID:  host.ID(),
			State:   uint8(host.State()),
			DBState: host.DBState().Entries(),
			NextSN:  mgr.CurrentSN(),
		}
		links.broadcast(wire.EncodeHeartbeat(f))
	}
}

// nextSyncLoop keeps the Replicator pointed at host.Next(): election can
// settle well after a link was opened provisionally in dialPeer, and a
// disconnect can change the successor without tearing down any link.
func nextSyncLoop(host *rkv.Host, repl *rkv.Replicator, links *linkSet, freq time.Duration) {
	t := time.NewTicker(freq)
	defer t.Stop()
	for range t.C {
		next, ok := host.Next()
		if !ok {
			repl.SetNext(nil)
			continue
		}
		if c, ok := links.get(next); ok {
			repl.SetNext(c)
		}
	}
}

func gapCheckLoop(repl *rkv.Replicator, freq time.Duration) {
	t := time.NewTicker(freq)
	defer t.Stop()
	for now := range t.C {
		repl.CheckGap(now)
	}
}

// heartbeatTimeoutLoop disconnects any peer whose heartbeat hasn't been
// seen within timeout, at a cadence finer than the timeout itself so
// expiry is noticed promptly (spec.md section 4.4.1).
func heartbeatTimeoutLoop(host *rkv.Host, timeout time.Duration) {
	freq := timeout / 4
	if freq <= 0 {
		freq = time.Second
	}
	t := time.NewTicker(freq)
	defer t.Stop()
	for now := range t.C {
		host.CheckTimeouts(now, timeout)
	}
}

// debugLogLoop periodically logs the debug probe dump and metrics
// snapshot, the only observability surface this daemon carries (an
// admin/inspection endpoint is out of scope per spec.md's Non-goals).
func debugLogLoop(debug *control.DebugProbes, metrics *control.MetricsRegistry, freq time.Duration) {
	t := time.NewTicker(freq)
	defer t.Stop()
	for range t.C {
		log.Printf("rkvnode: state=%v metrics=%v", debug.DumpState(), metrics.GetSnapshot())
	}
}
