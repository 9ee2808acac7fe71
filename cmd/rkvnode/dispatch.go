// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Inbound frame dispatch for one replication connection: every frame
// wire.PeekFrame peels off is routed here by type (spec.md section
// 6.1's frame set) to the host state machine, the Replicator, or this
// node's resend server.
package main

import (
	"log"

	"github.com/momentics/rkv/api"
	"github.com/momentics/rkv/rkv"
	"github.com/momentics/rkv/store"
	"github.com/momentics/rkv/wire"
)

// conn is the minimal sender a dispatch loop needs to reply on, shared
// with rkv.Conn so the same value satisfies both.
type conn interface {
	Send(buf []byte) error
}

type node struct {
	host *rkv.Host
	mgr  *rkv.Manager
	repl *rkv.Replicator
}

// handleFrame applies one decoded inbound frame. c is the connection it
// arrived on, used only to reply to a ResendReq.
func (n *node) handleFrame(h wire.Hdr, frame []byte, c conn) {
	switch h.Type {
	case wire.TypeHeartbeat:
		f, err := wire.DecodeHeartbeat(frame)
		if err != nil {
			log.Printf("rkvnode: malformed heartbeat: %v", err)
			return
		}
		n.host.HandleHeartbeat(f)
		n.mgr.SetSN(f.NextSN)

	case wire.TypeRecord:
		f, err := wire.DecodeRecord(frame)
		if err != nil {
			log.Printf("rkvnode: malformed record: %v", err)
			return
		}
		if err := n.repl.HandleRecord(f, frame); err != nil {
			log.Printf("rkvnode: apply record sn=%d: %v", f.SN, err)
		}

	case wire.TypeResendReq:
		f, err := wire.DecodeResendReq(frame)
		if err != nil {
			log.Printf("rkvnode: malformed resend request: %v", err)
			return
		}
		n.serveResend(f, c)

	case wire.TypeCommit:
		f, err := wire.DecodeCommit(frame)
		if err != nil {
			log.Printf("rkvnode: malformed commit: %v", err)
			return
		}
		n.host.DBState().SetUN(f.TableID, int(f.Shard), f.UN)

	default:
		// HeartbeatControl/Login/EndOfSnapshot/Wake carry no RKV-core
		// state; the framing layer accepts and drops them (spec.md
		// section 6.1).
	}
}

// serveResend replays cached or recovered frames for [f.From, f.To) back
// to the requester, mirroring spec.md section 4.4.3's tail-catch-up path.
func (n *node) serveResend(f wire.ResendReqFrame, c conn) {
	st, ok := n.mgr.Table(f.TableID)
	if !ok {
		return
	}
	for un := f.From; un < f.To; un++ {
		if buf, ok := st.Buf(int(f.Shard), un); ok {
			if err := c.Send(buf); err != nil {
				log.Printf("rkvnode: resend un=%d: %v", un, err)
				return
			}
			continue
		}
		st.Backing().Recover(int(f.Shard), un, func(r api.Result[*store.Row]) {
			if r.Err != nil || r.Value == nil {
				return
			}
			buf := wire.EncodeRecord(wire.RecordFrame{
				TableID: f.TableID,
				UN:      r.Value.UN,
				SN:      r.Value.SN,
				VN:      int32(r.Value.VN),
				Shard:   f.Shard,
				Data:    r.Value.Tuple,
			})
			if err := c.Send(buf); err != nil {
				log.Printf("rkvnode: resend recovered un=%d: %v", un, err)
			}
		})
	}
}
