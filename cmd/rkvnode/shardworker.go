// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// shardWorker runs every mutation against one shard on a single,
// optionally CPU-pinned goroutine, matching spec.md section 4.4.3's
// single-writer-per-shard rule: Object/UN state for a shard is only
// ever touched from that shard's own worker. Grounded on the teacher's
// affinity package (affinity/affinity.go) for the pin call, generalized
// here from a whole reactor thread to one shard's serial work queue.
package main

import (
	"log"
	"runtime"

	"github.com/momentics/rkv/affinity"
)

type shardWorker struct {
	work chan func()
}

// newShardWorker starts a worker for a shard. When pinned is true the
// goroutine locks to its OS thread and requests cpu via affinity.SetAffinity;
// a failure there is logged and otherwise ignored, since scheduling still
// proceeds correctly without a hard pin.
func newShardWorker(cpu int, pinned bool, depth int) *shardWorker {
	w := &shardWorker{work: make(chan func(), depth)}
	go func() {
		if pinned {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			if err := affinity.SetAffinity(cpu); err != nil {
				log.Printf("rkvnode: shard worker cpu %d pin failed: %v", cpu, err)
			}
		}
		for fn := range w.work {
			fn()
		}
	}()
	return w
}

// submit runs fn on this shard's worker goroutine and blocks until it
// returns.
func (w *shardWorker) submit(fn func()) {
	done := make(chan struct{})
	w.work <- func() {
		fn()
		close(done)
	}
	<-done
}

// shardWorkers is one table's per-shard worker pool, indexed by shard.
type shardWorkers []*shardWorker

func newShardWorkers(nshards int, cpus []int) shardWorkers {
	ws := make(shardWorkers, nshards)
	for i := range ws {
		cpu, pinned := 0, false
		if i < len(cpus) {
			cpu, pinned = cpus[i], true
		}
		ws[i] = newShardWorker(cpu, pinned, 256)
	}
	return ws
}
