// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// applyRecord builds the rkv.ApplyFunc a Replicator uses to commit an
// inbound Record frame locally: the write always runs on the target
// shard's own worker, preserving the single-writer-per-shard invariant
// spec.md section 4.4.3 requires even for replicated (not locally
// originated) writes.
package main

import (
	"github.com/momentics/rkv/control"
	"github.com/momentics/rkv/rkv"
	"github.com/momentics/rkv/wire"
)

func applyRecord(host *rkv.Host, mgr *rkv.Manager, workers shardWorkers, metrics *control.MetricsRegistry) rkv.ApplyFunc {
	var applied int64
	return func(f wire.RecordFrame) error {
		st, ok := mgr.Table(f.TableID)
		if !ok {
			return rkv.ErrUnknownTable
		}
		if int(f.Shard) >= len(workers) {
			return rkv.ErrUnknownShard
		}

		buf := wire.EncodeRecord(f)
		var writeErr error
		workers[f.Shard].submit(func() {
			done := make(chan error, 1)
			st.Backing().Write(buf, func(err error) { done <- err })
			writeErr = <-done
		})
		if writeErr != nil {
			return writeErr
		}

		mgr.SetSN(f.SN)
		host.DBState().SetUN(f.TableID, int(f.Shard), f.UN)
		host.DBState().SetSN(f.SN)
		applied++
		metrics.Set("records.applied", applied)
		return nil
	}
}
