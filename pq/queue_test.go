// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pq

import (
	"math/rand"
	"testing"
)

func TestRotateFastPath(t *testing.T) {
	q := NewQueue(100, 4, 1)
	got := q.Rotate(&Item{K: 100, L: 5})
	if got == nil || got.K != 100 || got.L != 5 {
		t.Fatalf("Rotate = %+v, want the item returned directly", got)
	}
	if q.HeadKey() != 105 {
		t.Fatalf("HeadKey = %d, want 105", q.HeadKey())
	}
	if q.Count() != 0 {
		t.Fatalf("Count = %d, want 0 (rotated item must never be stored)", q.Count())
	}
}

func TestGapScenario(t *testing.T) {
	q := NewQueue(0, 4, 1)
	q.Enqueue(&Item{K: 10, L: 5})

	from, to := q.Gap()
	if from != 0 || to != 10 {
		t.Fatalf("Gap = (%d,%d), want (0,10)", from, to)
	}

	q.Head(10)
	it := q.Dequeue()
	if it == nil || it.K != 10 || it.L != 5 {
		t.Fatalf("Dequeue after Head(10) = %+v, want {K:10,L:5}", it)
	}
}

// TestGapWalksPastAbuttingItems covers a gap that appears after more
// than one contiguously-abutting item: headKey=0, items {K:0,L:5} and
// {K:10,L:5} are both queued (a plain Enqueue at K==headKey does not
// advance headKey the way Rotate does), so the true first gap is
// [5,10), not "no gap" from only inspecting the first stored item.
func TestGapWalksPastAbuttingItems(t *testing.T) {
	q := NewQueue(0, 4, 1)
	q.Enqueue(&Item{K: 0, L: 5})
	q.Enqueue(&Item{K: 10, L: 5})

	from, to := q.Gap()
	if from != 5 || to != 10 {
		t.Fatalf("Gap = (%d,%d), want (5,10)", from, to)
	}
}

// TestGapNoneAfterFullyAbuttingRun covers three items that abut each
// other and headKey with no hole at all: Gap must report none.
func TestGapNoneAfterFullyAbuttingRun(t *testing.T) {
	q := NewQueue(0, 4, 1)
	q.Enqueue(&Item{K: 0, L: 5})
	q.Enqueue(&Item{K: 5, L: 5})
	q.Enqueue(&Item{K: 10, L: 5})

	from, to := q.Gap()
	if from != 15 || to != 15 {
		t.Fatalf("Gap = (%d,%d), want (15,15) (no gap, tail advanced to 15)", from, to)
	}
}

func TestNoOverlapInvariant(t *testing.T) {
	q := NewQueue(0, 4, 2)
	rnd := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		k := uint64(rnd.Intn(2000))
		l := rnd.Intn(20) + 1
		q.Enqueue(&Item{K: k, L: l, Payload: make([]byte, l)})

		var prev *node
		for n := q.first(); n != nil; n = n.forward[0] {
			if prev != nil && prev.item.End() > n.item.K {
				t.Fatalf("overlap after insert %d: [%d,%d) then [%d,%d)",
					i, prev.item.K, prev.item.End(), n.item.K, n.item.End())
			}
			if n.item.K != n.key {
				t.Fatalf("node key %d does not match item key %d", n.key, n.item.K)
			}
			prev = n
		}
	}
}

func TestRoundTripInOrderDequeue(t *testing.T) {
	type span struct {
		k uint64
		l int
	}
	// Contiguous, non-overlapping spans: Dequeue only yields an item once
	// headKey exactly reaches its key, so this set never exposes a gap.
	spans := []span{{0, 4}, {4, 2}, {6, 4}, {10, 3}, {13, 1}}

	q := NewQueue(0, 4, 1)
	order := rand.New(rand.NewSource(2)).Perm(len(spans))
	for _, idx := range order {
		s := spans[idx]
		q.Enqueue(&Item{K: s.k, L: s.l, Payload: []byte{byte(s.k)}})
	}

	wantOrder := spans
	for _, want := range wantOrder {
		it := q.Dequeue()
		if it == nil {
			t.Fatalf("Dequeue returned nil, want {K:%d,L:%d}", want.k, want.l)
		}
		if it.K != want.k || it.L != want.l {
			t.Fatalf("Dequeue = {K:%d,L:%d}, want {K:%d,L:%d}", it.K, it.L, want.k, want.l)
		}
	}
	if q.Dequeue() != nil {
		t.Fatalf("expected queue drained")
	}
}

func TestEnqueueClipsHeadOverlap(t *testing.T) {
	q := NewQueue(10, 4, 1)
	q.Enqueue(&Item{K: 5, L: 10, Payload: make([]byte, 10)}) // [5,15) clipped to [10,15)
	it := q.Dequeue()
	if it == nil || it.K != 10 || it.L != 5 {
		t.Fatalf("Dequeue = %+v, want {K:10,L:5} after head-clip", it)
	}
}

func TestEnqueueOverwritesExactSpan(t *testing.T) {
	q := NewQueue(0, 4, 1)
	q.Enqueue(&Item{K: 0, L: 4, Payload: []byte{1, 1, 1, 1}})
	q.Enqueue(&Item{K: 0, L: 4, Payload: []byte{2, 2, 2, 2}})
	it := q.Dequeue()
	if it == nil || it.Payload[0] != 2 {
		t.Fatalf("Dequeue = %+v, want the overwriting payload", it)
	}
}
