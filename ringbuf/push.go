// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Push/Push2: the two-phase write side of the ring. Push reserves a slot
// and hands the caller a zero-copy buffer to fill; Push2 finalizes the
// record (stamping the reader-pending bitmap in multi-reader mode) and
// wakes anyone waiting on the ring.
//
// Full policy (spec.md section 4.1): TryPush never blocks. Push, when
// cfg.LowLatency is set, spins up to cfg.Spin iterations first; it then
// waits on the ring's notify condition,
// consistent with the "spin in low-latency mode, else flag Waiting and
// wait" rule — here both paths converge on the same condition variable,
// since Go has no portable futex primitive to wait on a single word.
//
// Multi-writer: head advance is a CAS; losers retry (spec.md section
// 4.1's "Multi-writer" paragraph), mirroring the CAS-retry loop the
// teacher's core/concurrency.RingBuffer[T].Enqueue already uses.

package ringbuf

import "errors"

// slack is the space reserved ahead of tail for one blank hdrSize-byte
// (12-byte) header,
// so a full ring still leaves room for a reader polling the header to see
// "empty" rather than reading into an unfinished slot (spec.md section 3.1).
const slack = hdrSize

// WriteHandle identifies a reserved, not-yet-finalized record slot.
type WriteHandle struct {
	off  uint64 // logical offset of the slot
	po   int    // physical start index
	slot uint64 // total slot size (header + payload, 8-byte aligned)
	cap  int    // reserved payload capacity
}

var errInvalidLen = errors.New("ringbuf: Push2 length exceeds reservation")

// Push reserves room for one variable-size record of up to size payload
// bytes, blocking if the ring is full.
func (r *Ring) Push(size int) (*WriteHandle, []byte, error) {
	return r.push(size, true)
}

// TryPush is the non-blocking form of Push.
func (r *Ring) TryPush(size int) (*WriteHandle, []byte, error) {
	return r.push(size, false)
}

func (r *Ring) push(size int, wait bool) (*WriteHandle, []byte, error) {
	slot := slotSize(size)
	if slot+slack > r.size {
		return nil, nil, ErrRecordTooLarge
	}
	spins := 0
	for {
		if r.ctrl.eof.Load() {
			return nil, nil, ErrEndOfFile
		}
		head := r.ctrl.head.Load()
		tail := r.ctrl.tail.Load()
		free := r.size - (head - tail)
		if free < slot+slack {
			if !wait {
				return nil, nil, ErrFull
			}
			if !r.waitFor(&spins, func() bool {
				h := r.ctrl.head.Load()
				t := r.ctrl.tail.Load()
				return r.ctrl.eof.Load() || r.size-(h-t) >= slot+slack
			}) {
				return nil, nil, ErrFull
			}
			continue
		}

		newHead := head + slot
		if r.mw {
			if !r.ctrl.head.CompareAndSwap(head, newHead) {
				continue
			}
		} else {
			r.ctrl.head.Store(newHead)
		}

		po := r.physOff(head)
		// Clear-ahead: the slot immediately following ours reads as
		// empty until its own writer finalizes it.
		r.writeHeader(r.physOff(newHead), 0, 0)

		h := &WriteHandle{off: head, po: po, slot: slot, cap: size}
		return h, r.payload(po, uint32(size)), nil
	}
}

// Push2 finalizes a record reserved by Push/TryPush: n is the number of
// payload bytes actually written (n <= the size passed to Push). In
// multi-reader mode the record is stamped with the set of currently
// attached readers that must still consume it.
func (r *Ring) Push2(h *WriteHandle, n int) error {
	if n < 0 || n > h.cap {
		return errInvalidLen
	}
	var ctrl uint64
	if r.mr {
		ctrl = r.ctrl.rdrMask.Load() & readerMaskBits
	}
	r.writeHeader(h.po, uint32(n), ctrl)
	r.duplicatePayload(h.po, uint32(n))

	r.ctrl.inCount.Add(1)
	r.ctrl.inBytes.Add(uint64(n))
	r.wake()
	return nil
}

// waitFor blocks on the ring's notify condition until cond() is true,
// spinning for cfg.Spin iterations first when LowLatency is set. It
// always returns true: there is no deadline (cfg.TimeoutMS is not
// consulted), so it blocks until cond holds.
func (r *Ring) waitFor(spins *int, cond func() bool) bool {
	if r.cfg.LowLatency {
		for *spins < r.cfg.Spin {
			*spins++
			if cond() {
				return true
			}
		}
	}
	r.ctrl.mu.Lock()
	for !cond() {
		r.ctrl.notify.Wait()
	}
	r.ctrl.mu.Unlock()
	return true
}
