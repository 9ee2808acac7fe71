// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pq

import "sync"

// sender state bits (spec.md section 4.2).
const (
	Running uint32 = 1 << iota
	Sending
	SendFailed
	Archiving
	Resending
	ResendFailed
)

// SendFunc transmits one item to the peer.
type SendFunc func(it *Item) error

// GapFunc notifies the peer that [from, to) could not be sent because no
// item covers it.
type GapFunc func(from, to uint64) error

// ArchiveStore is the durable side-store for items that have been acked
// and retired from the live queue; Sender's resend path consults it when
// an item has already been dropped from the live queue.
type ArchiveStore interface {
	Store(it *Item) error
	Retrieve(key uint64) (it *Item, ok bool, err error)
}

// Sender is the send-side mixin of spec.md section 4.2: it drives send,
// archive, and resend passes over a live Queue plus an ArchiveStore,
// tracking send/ack/archive watermarks and reverting sendKey on a
// transient failure so the next pass resumes from the same point rather
// than skipping a record.
type Sender struct {
	*Queue

	mu    sync.Mutex
	flags uint32

	sendKey, ackdKey, archiveKey uint64
	resendFrom, resendTo         uint64

	send    SendFunc
	gap     GapFunc
	archive ArchiveStore
}

// NewSender wraps q with the send/archive/resend watermarks, starting
// all three at q's current head. archive may be nil, in which case items
// are never archived and resend can only serve what the live queue still
// holds.
func NewSender(q *Queue, send SendFunc, gap GapFunc, archive ArchiveStore) *Sender {
	h := q.HeadKey()
	return &Sender{
		Queue:      q,
		sendKey:    h,
		ackdKey:    h,
		archiveKey: h,
		send:       send,
		gap:        gap,
		archive:    archive,
	}
}

// Flags reports the current state bits.
func (s *Sender) Flags() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags
}

// Watermarks reports the send/ack/archive sequence positions.
func (s *Sender) Watermarks() (sendKey, ackdKey, archiveKey uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendKey, s.ackdKey, s.archiveKey
}

// SendNext sends one record starting at the current sendKey: the live
// queue first, the archive second, and a wire gap if neither has it. On
// success sendKey advances past the record; on a transient send failure
// sendKey is left untouched so the next call resumes at the same point.
func (s *Sender) SendNext() error {
	s.mu.Lock()
	key := s.sendKey
	s.flags |= Sending
	s.mu.Unlock()

	it, err := s.locate(key)
	if err != nil {
		s.failSend()
		return err
	}
	if it == nil {
		if s.gap != nil {
			if err := s.gap(key, s.TailKey()); err != nil {
				s.failSend()
				return err
			}
		}
		s.mu.Lock()
		s.flags &^= Sending
		s.mu.Unlock()
		return nil
	}

	if err := s.send(it); err != nil {
		s.failSend()
		return err
	}
	s.mu.Lock()
	s.sendKey = it.End()
	s.flags &^= (Sending | SendFailed)
	s.mu.Unlock()
	return nil
}

func (s *Sender) failSend() {
	s.mu.Lock()
	s.flags |= SendFailed
	s.flags &^= Sending
	s.mu.Unlock()
}

// locate finds the item starting at key in the live queue, falling back
// to the archive store.
func (s *Sender) locate(key uint64) (*Item, error) {
	if it := s.Queue.At(key); it != nil {
		return it, nil
	}
	if s.archive == nil {
		return nil, nil
	}
	it, ok, err := s.archive.Retrieve(key)
	if err != nil || !ok {
		return nil, err
	}
	return it, nil
}

// Ack records that the peer has confirmed receipt up to (but not
// including) k, unblocking ArchiveNext for any record now below the
// watermark.
func (s *Sender) Ack(k uint64) {
	s.mu.Lock()
	if k > s.ackdKey {
		s.ackdKey = k
	}
	s.mu.Unlock()
}

// ArchiveNext moves one acked-but-not-yet-archived record from the live
// queue into the archive store, advancing archiveKey. It is a no-op once
// archiveKey reaches ackdKey.
func (s *Sender) ArchiveNext() error {
	s.mu.Lock()
	key := s.archiveKey
	ackd := s.ackdKey
	s.mu.Unlock()
	if key >= ackd {
		return nil
	}

	it := s.Queue.At(key)
	if it == nil {
		// Nothing begins exactly at key (already archived or clipped
		// away by a Head advance): skip straight to the ack watermark.
		s.mu.Lock()
		s.archiveKey = ackd
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.flags |= Archiving
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.Store(it); err != nil {
			s.mu.Lock()
			s.flags &^= Archiving
			s.mu.Unlock()
			return err
		}
	}
	s.Queue.Drop(key)

	s.mu.Lock()
	s.archiveKey = it.End()
	s.flags &^= Archiving
	s.mu.Unlock()
	return nil
}

// Resend retransmits every record in [from, to), pulling from the live
// queue then the archive, emitting a wire gap for any hole. A transient
// send failure sets ResendFailed and stops the pass at the failing
// record; the caller is expected to retry from the same range.
func (s *Sender) Resend(from, to uint64) error {
	s.mu.Lock()
	s.flags |= Resending
	s.resendFrom, s.resendTo = from, to
	s.mu.Unlock()

	cur := from
	for cur < to {
		it, err := s.locate(cur)
		if err != nil {
			s.failResend()
			return err
		}
		if it == nil {
			if s.gap != nil {
				if err := s.gap(cur, to); err != nil {
					s.failResend()
					return err
				}
			}
			break
		}
		if err := s.send(it); err != nil {
			s.failResend()
			return err
		}
		cur = it.End()
	}

	s.mu.Lock()
	s.flags &^= (Resending | ResendFailed)
	s.mu.Unlock()
	return nil
}

func (s *Sender) failResend() {
	s.mu.Lock()
	s.flags |= ResendFailed
	s.flags &^= Resending
	s.mu.Unlock()
}
