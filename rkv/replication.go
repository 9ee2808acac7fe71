// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Replicator wires the wire/ frame codec and pq/'s gap-tolerant queue
// onto the per-host replication chain of spec.md section 4.4.6: a
// leader forwards each committed record, keyed by its global SN, to its
// ring successor (Host.Next), which reassembles out-of-order arrivals
// through a Receiver, applies them locally, and forwards them onward in
// turn. Grounded on z/zdb/src/Zdb.cc's replicate()/recovered() pair
// (original_source/_INDEX.md): replicate() there returns false when the
// outbound connection's send ring is full, which this Forward mirrors by
// surfacing pq.Sender.SendNext's error as a boolean rather than
// blocking the committing shard thread.
package rkv

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/momentics/rkv/pq"
	"github.com/momentics/rkv/wire"
)

// Conn is the minimal outbound transport a Replicator needs: enqueue
// buf for transmission to one peer, reporting an error (rather than
// blocking) when the outbound path is saturated. transport/ supplies
// the real implementation (transport.NetConn, writing to a net.Conn).
type Conn interface {
	Send(buf []byte) error
}

// ApplyFunc commits an inbound Record frame to local storage. It is
// supplied by the cmd/ wiring that owns the Manager for the table named
// in f.TableID.
type ApplyFunc func(f wire.RecordFrame) error

// Replicator is one host's send/receive replication state.
type Replicator struct {
	host *Host

	connMu sync.Mutex
	next   Conn

	sendQ   *pq.Queue
	sender  *pq.Sender
	limiter *rate.Limiter

	recvQ    *pq.Queue
	receiver *pq.Receiver

	apply ApplyFunc
}

// NewReplicator creates a Replicator for host, applying inbound records
// through apply. The send and receive queues are keyed by global SN,
// which Manager.NextSN starts at 1, so both queues start positioned
// there; a host resuming from a later watermark repositions them with
// SetSendHead/SetRecvHead once it knows its true starting SN.
func NewReplicator(host *Host, apply ApplyFunc) *Replicator {
	r := &Replicator{
		host:  host,
		sendQ: pq.NewQueue(1, 20, 2),
		recvQ: pq.NewQueue(1, 20, 2),
		apply: apply,
	}
	r.sender = pq.NewSender(r.sendQ, r.sendFrame, r.sendGap, nil)
	r.receiver = pq.NewReceiver(r.recvQ, 2*time.Second, r.requestResend)
	return r
}

// SetNext (re)points the outbound connection at host's current ring
// successor. Called whenever election or a disconnection changes Next.
func (r *Replicator) SetNext(c Conn) {
	r.connMu.Lock()
	r.next = c
	r.connMu.Unlock()
}

// SetSendLimiter bounds the rate at which sendFrame hands records to the
// outbound connection, so a slow ring successor cannot be flooded by a
// leader racing ahead of it. A nil limiter (the default) sends
// unthrottled.
func (r *Replicator) SetSendLimiter(l *rate.Limiter) {
	r.connMu.Lock()
	r.limiter = l
	r.connMu.Unlock()
}

func (r *Replicator) conn() Conn {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	return r.next
}

func (r *Replicator) sendFrame(it *pq.Item) error {
	c := r.conn()
	if c == nil {
		return nil
	}
	r.connMu.Lock()
	l := r.limiter
	r.connMu.Unlock()
	if l != nil && !l.Allow() {
		return errSendRateLimited
	}
	return c.Send(it.Payload)
}

func (r *Replicator) sendGap(from, to uint64) error {
	c := r.conn()
	if c == nil {
		return nil
	}
	buf := wire.EncodeResendReq(wire.ResendReqFrame{From: from, To: to})
	return c.Send(buf)
}

func (r *Replicator) requestResend(from, to uint64, now time.Time) {
	_ = r.sendGap(from, to)
}

// SetSendHead/SetRecvHead reposition the send/receive queues to a known
// starting SN, used when a host resumes replication from a tail-catch-up
// watermark rather than from scratch.
func (r *Replicator) SetSendHead(sn uint64) { r.sendQ.Head(sn) }
func (r *Replicator) SetRecvHead(sn uint64) { r.recvQ.Head(sn) }

// Forward enqueues a just-committed record (sn, buf) for transmission
// to this host's ring successor and attempts to send it immediately. Its
// key-space span is always 1 (one SN per record, independent of buf's
// byte length — pq's K/L span sequence numbers, not bytes, for this
// queue). It reports false — spec.md section 4.4.6's replicate() — when
// the outbound path is currently backpressured; the caller is expected
// to retry the send later rather than fail the local commit, since the
// record stays in sendQ regardless of the outcome here.
func (r *Replicator) Forward(sn uint64, buf []byte) bool {
	r.sendQ.Enqueue(&pq.Item{K: sn, L: 1, Payload: append([]byte(nil), buf...)})
	if err := r.sender.SendNext(); err != nil {
		return false
	}
	return true
}

// DrainSend retries one pending send-side record; callers on a
// SendFailed/ResendFailed watermark call this from a retry timer.
func (r *Replicator) DrainSend() error {
	return r.sender.SendNext()
}

// Ack records that the ring successor has confirmed receipt up to (but
// excluding) sn, letting Forward's buffered copies be released.
func (r *Replicator) Ack(sn uint64) {
	r.sender.Ack(sn)
}

// HandleRecord is the inbound path: a Record frame arriving from this
// host's leader (or, mid-chain, from the predecessor forwarding it).
// It is routed through the gap-tolerant receiver so an out-of-order
// arrival during a resend is reassembled in SN order before being
// applied and forwarded onward.
func (r *Replicator) HandleRecord(f wire.RecordFrame, raw []byte) error {
	it := &pq.Item{K: f.SN, L: 1, Payload: raw}
	got := r.receiver.Received(it)
	if got == nil {
		return nil
	}
	if err := r.applyAndForward(got); err != nil {
		return err
	}
	// The just-applied record may have been the missing predecessor of
	// records already reassembled in the queue; drain every one that
	// now abuts the advanced head before returning.
	for {
		next := r.recvQ.Dequeue()
		if next == nil {
			return nil
		}
		if err := r.applyAndForward(next); err != nil {
			return err
		}
	}
}

func (r *Replicator) applyAndForward(it *pq.Item) error {
	f, err := wire.DecodeRecord(it.Payload)
	if err != nil {
		return err
	}
	if r.apply != nil {
		if err := r.apply(f); err != nil {
			return err
		}
	}
	r.Forward(it.K, it.Payload)
	return nil
}

// CheckGap re-evaluates the inbound gap and re-issues a resend request
// if it persists; callers invoke this periodically (e.g. on a read
// timeout from the transport).
func (r *Replicator) CheckGap(now time.Time) {
	r.receiver.CheckGap(now)
}

// Stop releases the receiver's re-request timer.
func (r *Replicator) Stop() {
	r.receiver.Stop()
}
