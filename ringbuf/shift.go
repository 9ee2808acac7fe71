// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shift/TryShift: the read side of the ring. In single-reader mode the
// reader owns the ring's one consumption cursor (ctrl.tail) outright. In
// multi-reader mode every attached reader advances its own private cursor
// (rdr.tail) and clears its id from the record's reader-pending bitmap;
// the shared ctrl.tail (and therefore the space reclaimed for writers)
// only advances once every currently attached reader has cleared a
// record, mirroring the original's per-record reader mask.

package ringbuf

// Shift returns the next record's payload, blocking while the ring is
// empty. The returned slice aliases the ring's backing region and is only
// valid until the next Shift/Push call on this ring.
func (r *Ring) Shift() ([]byte, error) {
	return r.shift(true)
}

// TryShift is the non-blocking form of Shift.
func (r *Ring) TryShift() ([]byte, error) {
	return r.shift(false)
}

func (r *Ring) shift(wait bool) ([]byte, error) {
	if r.mr && r.rdr == nil {
		return nil, ErrNotAttached
	}
	spins := 0
	for {
		tail := r.myTail()
		head := r.ctrl.head.Load()
		if tail == head {
			if r.ctrl.eof.Load() {
				return nil, ErrEndOfFile
			}
			if !wait {
				return nil, ErrEmpty
			}
			if !r.waitFor(&spins, func() bool {
				return r.ctrl.head.Load() != r.myTail() || r.ctrl.eof.Load()
			}) {
				return nil, ErrEmpty
			}
			continue
		}

		po := r.physOff(tail)
		length, ctrl := r.readHeader(po)
		slot := slotSize(int(length))
		next := tail + slot

		if r.mr {
			r.rdr.tail = next
			r.clearReaderBit(po, ctrl)
			r.reclaim()
		} else {
			r.ctrl.tail.Store(next)
		}

		r.ctrl.outCount.Add(1)
		r.ctrl.outBytes.Add(uint64(length))
		r.wake()
		return r.payload(po, length), nil
	}
}

// clearReaderBit stamps this reader's bit as cleared in the record header
// so that reclaim (and other readers checking this record) see it as
// consumed by this reader id.
func (r *Ring) clearReaderBit(po int, ctrl uint64) {
	bit := uint64(1) << uint(r.rdr.id)
	cleared := ctrl &^ bit
	if cleared == ctrl {
		return
	}
	length, _ := r.readHeader(po)
	r.writeHeader(po, length, cleared)
}

// reclaim advances the shared tail past any run of records at its front
// that every currently attached reader has already cleared.
func (r *Ring) reclaim() {
	for {
		tail := r.ctrl.tail.Load()
		head := r.ctrl.head.Load()
		if tail == head {
			return
		}
		po := r.physOff(tail)
		length, ctrl := r.readHeader(po)
		if ctrl&r.ctrl.rdrMask.Load()&readerMaskBits != 0 {
			return // a still-attached reader has not cleared this record
		}
		next := tail + slotSize(int(length))
		if !r.ctrl.tail.CompareAndSwap(tail, next) {
			continue // another reader's reclaim raced us; retry from the new tail
		}
	}
}
