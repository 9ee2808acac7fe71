// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Attach/Detach: reader lifecycle for multi-reader rings. Grounded on the
// original's RingExt<Ring,MW,true>::attach()/detach(): a reader claims the
// lowest free id out of MaxReaders, is recorded in both attMask (ids ever
// allocated) and rdrMask (ids
// currently live, the mask new records are stamped with); detaching frees
// the id and lets reclaim drain any records the departing reader was the
// last holdout on.

package ringbuf

// Attach joins the ring as a new reader, returning an independent *Ring
// handle that shares the ring's control block and data region but owns its
// own private read cursor (rdr.tail) and reader id. Only valid on rings
// opened with mr true. Calling Attach again on a handle that is itself
// already attached is idempotent and returns that same handle unchanged
// (it does not mint a second reader); call Attach on the original,
// never-attached Ring value once per desired reader to get distinct
// broadcast subscribers, matching the original's RingExt<Ring,MW,true>
// attach(), which hands each caller its own reader slot.
func (r *Ring) Attach() (*Ring, error) {
	if !r.mr {
		return nil, ErrNoReaders
	}
	if r.rdr != nil {
		return r, nil
	}

	r.ctrl.mu.Lock()
	defer r.ctrl.mu.Unlock()

	live := r.ctrl.rdrMask.Load()
	id := -1
	for i := 0; i < MaxReaders; i++ {
		if live&(uint64(1)<<uint(i)) == 0 {
			id = i
			break
		}
	}
	if id < 0 {
		return nil, ErrTooManyReaders
	}

	r.ctrl.rdrMask.Store(live | uint64(1)<<uint(id))
	r.ctrl.attMask.Store(r.ctrl.attMask.Load() | uint64(1)<<uint(id))
	r.ctrl.attSeqNo.Add(1)
	r.ctrl.nReaders.Add(1)

	handle := &Ring{
		cfg:    r.cfg,
		mode:   r.mode,
		mw:     r.mw,
		mr:     r.mr,
		data:   r.data,
		mirror: r.mirror,
		size:   r.size,
		ctrl:   r.ctrl,
		rdr: &readerState{
			id:   id,
			tail: r.ctrl.head.Load(), // broadcast semantics: see records from now on
		},
	}
	return handle, nil
}

// Detach leaves the ring's reader set: it clears this reader's id from
// rdrMask so the writer stops stamping new records with it, then drains
// every record between this reader's private tail and the current head
// that still carries its bit, clearing that bit record by record
// (mirroring ZmRing.hh's MR detach()). Without this drain, a record this
// reader never consumed keeps its stale bit forever; if a later Attach
// reuses the freed id, reclaim would see that id in both the stale
// header and the live mask and refuse to reclaim the record permanently.
func (r *Ring) Detach() error {
	if !r.mr || r.rdr == nil {
		return ErrNotAttached
	}

	bit := uint64(1) << uint(r.rdr.id)

	r.ctrl.mu.Lock()
	r.ctrl.rdrMask.Store(r.ctrl.rdrMask.Load() &^ bit)
	r.ctrl.attSeqNo.Add(1)
	r.ctrl.nReaders.Add(-1)
	r.ctrl.mu.Unlock()

	tail := r.rdr.tail
	head := r.ctrl.head.Load()
drain:
	for {
		for tail != head {
			po := r.physOff(tail)
			length, ctrl := r.readHeader(po)
			if ctrl&bit == 0 {
				// The writer is already aware this id is gone (either we
				// cleared it ourselves on a prior Shift, or the record was
				// stamped after our rdrMask clear above); nothing beyond
				// this point can carry our bit either.
				break drain
			}
			r.writeHeader(po, length, ctrl&^bit)
			tail += slotSize(int(length))
		}
		newHead := r.ctrl.head.Load()
		if newHead == head {
			break
		}
		head = newHead
	}

	r.rdr.tail = tail
	r.rdr = nil
	r.reclaim()
	r.wake()
	return nil
}
