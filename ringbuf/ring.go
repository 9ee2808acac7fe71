// Package ringbuf implements the local-memory ring buffer: a fixed- or
// variable-sized record ring over a contiguous byte region, supporting
// single/multiple writers and single/multiple readers (SWSR, MWSR, SWMR,
// MWMR). For multi-reader mode the ring is a broadcast bus — every
// attached reader sees every record.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's Vyukov-style MPMC ring
// (core/concurrency/ring.go) for the monotonic head/tail counter and
// CAS-retry head-advance idiom, generalized from a typed []T ring to a
// raw-byte region so that variable-length records and the multi-reader
// per-record header (spec section 3.1) both fit.
package ringbuf

import (
	"sync"
	"sync/atomic"
)

// Mode is the open mode of a Ring.
type Mode int

const (
	Read Mode = 1 << iota
	Write
)

// Config mirrors the RING configuration of the specification (section 6.2).
type Config struct {
	Size       int // region size in bytes, power of two
	LowLatency bool // spin up to Spin iterations before waiting on the notify condition
	CPUSet     []int
	Spin       int // spin iterations before waiting
	TimeoutMS  int // wait timeout in milliseconds; not read: blocking Push/Shift wait without a deadline
}

// DefaultConfig returns sane defaults for a ring buffer.
func DefaultConfig() Config {
	return Config{
		Size:      1 << 20,
		Spin:      1000,
		TimeoutMS: 1,
	}
}

// MaxReaders is the number of distinct reader ids a multi-reader ring can
// track in the per-record header's reader-pending bitmap.
const MaxReaders = 62

// Per-record 64-bit header: low 62 bits are a reader-pending bitmap (one
// bit per attached reader id that still must consume the record), bit 62
// is an EndOfFile sentinel, bit 63 is reserved (kept for parity with the
// original's Waiting bit, unused: waiting is signalled out of band via
// control.notify rather than packed into the header word).
const (
	recordEOF      = uint64(1) << 62
	recordReserved = uint64(1) << 63
	readerMaskBits = recordEOF - 1
)

// control is the cache-line padded control block shared by writer and
// readers.
type control struct {
	head atomic.Uint64 // monotonic bytes produced (write position)
	_    [56]byte

	tail atomic.Uint64 // monotonic bytes reclaimed (read position / MR floor)
	_    [56]byte

	inCount, inBytes   atomic.Uint64
	outCount, outBytes atomic.Uint64

	eof atomic.Bool

	// multi-reader only
	rdrMask  atomic.Uint64 // bitmap of currently attached reader ids
	attMask  atomic.Uint64 // reader ids allocated so far
	attSeqNo atomic.Uint64 // attach/detach generation counter
	nReaders atomic.Int32

	mu     sync.Mutex
	notify sync.Cond // broadcast on any head/tail/eof transition
}

// readerState is the private, per-handle state of one attached reader of a
// multi-reader ring.
type readerState struct {
	id   int
	tail uint64 // this reader's private read position
}

// Ring is a record ring over a contiguous byte region.
type Ring struct {
	cfg    Config
	mode   Mode
	mw     bool // multi-writer
	mr     bool // multi-reader
	data   []byte
	mirror *mirror // non-nil when the region is doubly mapped
	size   uint64  // power-of-two region size

	ctrl *control

	rdr *readerState // non-nil once Attach succeeds (MR only)
}

// Open allocates a ring region and control block. mw/mr select
// multi-writer/multi-reader variants; the region is sized per cfg.Size.
func Open(cfg Config, mode Mode, mw, mr bool) (*Ring, error) {
	if cfg.Size <= 0 || cfg.Size&(cfg.Size-1) != 0 {
		return nil, ErrInvalidSize
	}
	c := &control{}
	c.notify.L = &c.mu
	r := &Ring{
		cfg:  cfg,
		mode: mode,
		mw:   mw,
		mr:   mr,
		size: uint64(cfg.Size),
		ctrl: c,
	}
	// The region is always doubly mapped (spec.md section 3.1): any record
	// beginning before the wrap point can be read or written as one flat
	// span even when it straddles the logical end of the ring.
	m, err := newMirror(cfg.Size)
	if err != nil {
		return nil, err
	}
	r.mirror = m
	r.data = m.view()
	return r, nil
}

// Close releases the ring's resources. A multi-reader handle still
// attached is detached first.
func (r *Ring) Close() error {
	if r.mr && r.rdr != nil {
		r.Detach()
	}
	if r.mirror != nil {
		return r.mirror.close()
	}
	return nil
}

// EOF sets or clears the EndOfFile condition and wakes anyone waiting.
func (r *Ring) EOF(set bool) {
	r.ctrl.eof.Store(set)
	r.wake()
}

// Status is the non-blocking state reported by ReadStatus/WriteStatus.
type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusFull
	StatusEndOfFile
	StatusNotReady
)

// ReadStatus reports Empty/EndOfFile without consuming a record. For
// multi-reader rings this reflects this handle's private tail.
func (r *Ring) ReadStatus() Status {
	if r.ctrl.eof.Load() {
		return StatusEndOfFile
	}
	head := r.ctrl.head.Load()
	tail := r.myTail()
	if head == tail {
		return StatusEmpty
	}
	return StatusOK
}

// WriteStatus reports Full/EndOfFile without reserving a record. On a
// multi-reader ring with zero attached readers this is NotReady rather
// than Full or OK, per spec.md section 9's open question: whether a
// writer should then block or drop is left to the caller.
func (r *Ring) WriteStatus() Status {
	if r.ctrl.eof.Load() {
		return StatusEndOfFile
	}
	if r.mr && r.ctrl.rdrMask.Load() == 0 {
		return StatusNotReady
	}
	head := r.ctrl.head.Load()
	tail := r.ctrl.tail.Load()
	if head-tail >= r.size {
		return StatusFull
	}
	return StatusOK
}

func (r *Ring) myTail() uint64 {
	if r.mr && r.rdr != nil {
		return r.rdr.tail
	}
	return r.ctrl.tail.Load()
}

// Stats returns the point-in-time in/out counters.
type Stats struct {
	InCount, InBytes   uint64
	OutCount, OutBytes uint64
}

func (r *Ring) Stats() Stats {
	return Stats{
		InCount:  r.ctrl.inCount.Load(),
		InBytes:  r.ctrl.inBytes.Load(),
		OutCount: r.ctrl.outCount.Load(),
		OutBytes: r.ctrl.outBytes.Load(),
	}
}

func (r *Ring) wake() {
	r.ctrl.mu.Lock()
	r.ctrl.notify.Broadcast()
	r.ctrl.mu.Unlock()
}

func align(n int) int {
	const a = 8
	return (n + a - 1) &^ (a - 1)
}
