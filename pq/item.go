// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package pq implements the sequence-gap-tolerant delivery queue: items
// keyed by a monotonic sequence number, reassembled and drained in key
// order even when they arrive out of order or with holes.
//
// Grounded on z/zm/src/ZmPQueue.hh (original_source/_INDEX.md) for the
// item/queue operation set, and on the teacher's eapache/queue-backed
// FIFO idiom (internal/concurrency/executor.go) for the insertion-serial
// counter used to grow the skip list deterministically.
package pq

// Item carries a key K (sequence number) and a length L, occupying the
// half-open interval [K, K+L) in sequence space. Payload, when non-nil,
// is kept in lock-step with L: clipping removes bytes from the matching
// end, and write replaces the item's own span's-worth of content.
type Item struct {
	K       uint64
	L       int
	Payload []byte
}

// Bytes returns the item's accounting size: its payload length, falling
// back to L when no payload is carried (control-only items such as a
// pending Commit marker).
func (it *Item) Bytes() int {
	if it.Payload != nil {
		return len(it.Payload)
	}
	return it.L
}

// ClipHead removes up to n bytes from the low end of the item, advancing
// K and shrinking L and Payload in step. Returns the new L.
func (it *Item) ClipHead(n int) int {
	if n <= 0 {
		return it.L
	}
	if n > it.L {
		n = it.L
	}
	it.K += uint64(n)
	it.L -= n
	if len(it.Payload) >= n {
		it.Payload = it.Payload[n:]
	} else if it.Payload != nil {
		it.Payload = it.Payload[:0]
	}
	return it.L
}

// ClipTail removes up to n bytes from the high end of the item, shrinking
// L and Payload without moving K. Returns the new L.
func (it *Item) ClipTail(n int) int {
	if n <= 0 {
		return it.L
	}
	if n > it.L {
		n = it.L
	}
	it.L -= n
	if len(it.Payload) > it.L {
		it.Payload = it.Payload[:it.L]
	}
	return it.L
}

// Write overwrites this item's content with other's, keeping this item's
// identity (used when a later arrival exactly or fully covers an item
// already stored in the queue).
func (it *Item) Write(other *Item) {
	it.K = other.K
	it.L = other.L
	it.Payload = other.Payload
}

// End returns K+L, the exclusive upper bound of the item's span.
func (it *Item) End() uint64 {
	return it.K + uint64(it.L)
}
