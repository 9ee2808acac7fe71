// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ringbuf

import (
	"bytes"
	"sync"
	"testing"
)

func TestSPSCFixedSizeMillionRecords(t *testing.T) {
	r, err := Open(Config{Size: 1 << 16}, Read|Write, false, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	const n = 1_000_000
	const recLen = 64

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			h, buf, err := r.Push(recLen)
			if err != nil {
				t.Errorf("Push(%d): %v", i, err)
				return
			}
			b := byte(i)
			for j := range buf {
				buf[j] = b
			}
			if err := r.Push2(h, recLen); err != nil {
				t.Errorf("Push2(%d): %v", i, err)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			payload, err := r.Shift()
			if err != nil {
				t.Errorf("Shift(%d): %v", i, err)
				return
			}
			want := bytes.Repeat([]byte{byte(i)}, recLen)
			if !bytes.Equal(payload, want) {
				t.Fatalf("record %d: got %v, want %v", i, payload[:4], want[:4])
			}
		}
	}()

	wg.Wait()

	stats := r.Stats()
	if stats.InCount != n || stats.OutCount != n {
		t.Fatalf("stats = %+v, want InCount=OutCount=%d", stats, n)
	}
}

func TestSPMCVarSizeEOFDrain(t *testing.T) {
	r, err := Open(Config{Size: 1 << 12}, Read|Write, false, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	r1, err := r.Attach()
	if err != nil {
		t.Fatalf("Attach reader 1: %v", err)
	}
	r2, err := r.Attach()
	if err != nil {
		t.Fatalf("Attach reader 2: %v", err)
	}

	records := []string{"a", "bb", "ccc"}
	for _, s := range records {
		h, buf, err := r.Push(len(s))
		if err != nil {
			t.Fatalf("Push(%q): %v", s, err)
		}
		copy(buf, s)
		if err := r.Push2(h, len(s)); err != nil {
			t.Fatalf("Push2(%q): %v", s, err)
		}
	}
	r.EOF(true)

	for _, reader := range []*Ring{r1, r2} {
		for _, want := range records {
			got, err := reader.Shift()
			if err != nil {
				t.Fatalf("Shift: %v", err)
			}
			if string(got) != want {
				t.Fatalf("got %q, want %q", got, want)
			}
		}
		if _, err := reader.Shift(); err != ErrEndOfFile {
			t.Fatalf("final Shift error = %v, want ErrEndOfFile", err)
		}
	}
}

func TestMWMRConcurrentSafety(t *testing.T) {
	r, err := Open(Config{Size: 1 << 16}, Read|Write, true, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	reader, err := r.Attach()
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	const writers = 4
	const perWriter = 2000
	const total = writers * perWriter

	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				h, buf, err := r.Push(8)
				if err != nil {
					t.Errorf("Push: %v", err)
					return
				}
				buf[0] = 1
				if err := r.Push2(h, 8); err != nil {
					t.Errorf("Push2: %v", err)
					return
				}
			}
		}()
	}

	got := 0
	done := make(chan struct{})
	go func() {
		for got < total {
			if _, err := reader.Shift(); err != nil {
				t.Errorf("Shift: %v", err)
				close(done)
				return
			}
			got++
		}
		close(done)
	}()

	wg.Wait()
	<-done

	if got != total {
		t.Fatalf("consumed %d records, want %d", got, total)
	}
}

func TestWriteStatusNotReadyWithoutAttachedReaders(t *testing.T) {
	r, err := Open(Config{Size: 1 << 12}, Read|Write, false, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if got := r.WriteStatus(); got != StatusNotReady {
		t.Fatalf("WriteStatus = %v, want StatusNotReady", got)
	}

	reader, err := r.Attach()
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if got := r.WriteStatus(); got != StatusOK {
		t.Fatalf("WriteStatus after attach = %v, want StatusOK", got)
	}
	if err := reader.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}
}

// TestDetachClearsStaleBitBeforeIDReuse covers the ZmRing.hh MR detach()
// drain: reader B attaches, a record is pushed, and B detaches without
// ever consuming it, while reader A is still pending on the same record.
// A then consumes it and a third reader C attaches, reusing B's freed id.
// If Detach had only cleared the live rdrMask (and not walked B's own
// still-pending records to clear its header bit), the record's header
// would still carry B's stale bit; once C's attach puts that same bit id
// back into the live mask, reclaim would see it set forever (C starts
// past the record and will never clear it), wedging the ring's tail and
// blocking every future writer. With the fix, Detach clears the bit
// itself, so reclaim succeeds once A shifts and a writer needing the
// reclaimed space is not refused.
func TestDetachClearsStaleBitBeforeIDReuse(t *testing.T) {
	r, err := Open(Config{Size: 32}, Read|Write, false, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	a, err := r.Attach()
	if err != nil {
		t.Fatalf("Attach A: %v", err)
	}
	b, err := r.Attach()
	if err != nil {
		t.Fatalf("Attach B: %v", err)
	}

	h, buf, err := r.Push(4)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	copy(buf, "xxxx")
	if err := r.Push2(h, 4); err != nil {
		t.Fatalf("Push2: %v", err)
	}

	// B never shifts the record it is pending on; A is still pending too,
	// so reclaim cannot advance past it at this point regardless of the fix.
	if err := b.Detach(); err != nil {
		t.Fatalf("Detach B: %v", err)
	}

	// C reuses B's freed id (lowest free: 0 is A's, 1 is now free again).
	if _, err := r.Attach(); err != nil {
		t.Fatalf("Attach C: %v", err)
	}

	if _, err := a.Shift(); err != nil {
		t.Fatalf("A Shift: %v", err)
	}

	if _, _, err := r.TryPush(4); err != nil {
		t.Fatalf("TryPush after reclaim = %v, want success: a reused reader id must not keep a record the original holder never consumed from being reclaimed", err)
	}
}

func TestRecordTooLargeRejected(t *testing.T) {
	r, err := Open(Config{Size: 64}, Read|Write, false, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if _, _, err := r.TryPush(128); err != ErrRecordTooLarge {
		t.Fatalf("TryPush oversize = %v, want ErrRecordTooLarge", err)
	}
}

func TestTryPushFullAndTryShiftEmpty(t *testing.T) {
	r, err := Open(Config{Size: 64}, Read|Write, false, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if _, err := r.TryShift(); err != ErrEmpty {
		t.Fatalf("TryShift on empty ring = %v, want ErrEmpty", err)
	}

	var last error
	for i := 0; i < 100; i++ {
		if _, _, err := r.TryPush(8); err != nil {
			last = err
			break
		}
	}
	if last != ErrFull {
		t.Fatalf("TryPush loop ended with %v, want ErrFull", last)
	}
}
