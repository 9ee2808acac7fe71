// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pq

import (
	"sync"
	"time"
)

// receiver state bits (spec.md section 4.2).
const (
	Queuing uint32 = 1 << iota
	Dequeuing
)

// RequestFunc asks the peer to resend the half-open interval [from, to).
// now is passed through so callers can stamp the request without an
// extra clock read.
type RequestFunc func(from, to uint64, now time.Time)

// Receiver is the receive-side mixin of spec.md section 4.2: it wraps a
// Queue with the Queuing/Dequeuing state bits and the gap-driven
// resend-request logic that keeps a stalled stream from blocking
// forever. Embedding *Queue stands in for the original's CRTP mixin
// (spec.md section 9's redesign note on composition over inheritance).
type Receiver struct {
	*Queue

	mu    sync.Mutex
	flags uint32

	reRequestInterval time.Duration
	request           RequestFunc

	gapFrom, gapTo uint64
	timer          *time.Timer
}

// NewReceiver wraps q with gap-tracking resend-request logic. request is
// invoked whenever a new gap is detected and again every reRequestInterval
// while the gap persists; it may be nil, in which case gaps are tracked
// but never actively chased.
func NewReceiver(q *Queue, reRequestInterval time.Duration, request RequestFunc) *Receiver {
	return &Receiver{Queue: q, reRequestInterval: reRequestInterval, request: request}
}

// SetFlags/ClearFlags/HasFlag manipulate the Queuing/Dequeuing bits.
func (rc *Receiver) SetFlags(f uint32) {
	rc.mu.Lock()
	rc.flags |= f
	rc.mu.Unlock()
}

func (rc *Receiver) ClearFlags(f uint32) {
	rc.mu.Lock()
	rc.flags &^= f
	rc.mu.Unlock()
}

func (rc *Receiver) HasFlag(f uint32) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.flags&f != 0
}

// Received routes an arriving item to the fast Rotate path when the
// queue is not mid-backfill; while Queuing or Dequeuing is set it always
// goes through Enqueue so out-of-order arrivals during a resend are
// reassembled correctly rather than bypassing items still being queued.
func (rc *Receiver) Received(it *Item) *Item {
	if rc.HasFlag(Queuing | Dequeuing) {
		rc.Enqueue(it)
		return nil
	}
	return rc.Rotate(it)
}

// CheckGap recomputes the current gap and, if it has changed since the
// last call, cancels any pending re-request timer and issues a fresh
// request immediately, then arms a periodic re-request while the gap
// persists. Callers invoke this after a stall is detected (e.g. a read
// timeout on the inbound transport).
func (rc *Receiver) CheckGap(now time.Time) {
	from, to := rc.Gap()

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if from == to {
		rc.stopTimerLocked()
		rc.gapFrom, rc.gapTo = from, to
		return
	}
	if from == rc.gapFrom && to == rc.gapTo && rc.timer != nil {
		return // unchanged gap, re-request timer already armed
	}

	rc.stopTimerLocked()
	rc.gapFrom, rc.gapTo = from, to
	if rc.request == nil {
		return
	}
	rc.request(from, to, now)
	if rc.reRequestInterval > 0 {
		rc.timer = time.AfterFunc(rc.reRequestInterval, rc.reRequestTick)
	}
}

func (rc *Receiver) reRequestTick() {
	rc.mu.Lock()
	from, to := rc.gapFrom, rc.gapTo
	req := rc.request
	interval := rc.reRequestInterval
	rc.mu.Unlock()

	if req != nil {
		req(from, to, time.Now())
	}
	if interval > 0 {
		rc.mu.Lock()
		rc.timer = time.AfterFunc(interval, rc.reRequestTick)
		rc.mu.Unlock()
	}
}

func (rc *Receiver) stopTimerLocked() {
	if rc.timer != nil {
		rc.timer.Stop()
		rc.timer = nil
	}
}

// Stop cancels any pending re-request timer, releasing its goroutine.
func (rc *Receiver) Stop() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.stopTimerLocked()
}
