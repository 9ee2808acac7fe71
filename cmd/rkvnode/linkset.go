// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// linkSet holds this node's outbound replication connections, one per
// configured peer it has successfully dialed. Heartbeats broadcast over
// every entry; Replicator.Forward uses whichever entry matches the
// current ring successor (spec.md section 4.4.6).
package main

import (
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/momentics/rkv/pool"
	"github.com/momentics/rkv/rkv"
	"github.com/momentics/rkv/transport"
	"github.com/momentics/rkv/wire"
)

type linkSet struct {
	mu   sync.Mutex
	byID map[wire.ID]*transport.NetConn
}

func newLinkSet() *linkSet {
	return &linkSet{byID: make(map[wire.ID]*transport.NetConn)}
}

func (l *linkSet) set(id wire.ID, c *transport.NetConn) {
	l.mu.Lock()
	l.byID[id] = c
	l.mu.Unlock()
}

func (l *linkSet) remove(id wire.ID) {
	l.mu.Lock()
	delete(l.byID, id)
	l.mu.Unlock()
}

func (l *linkSet) get(id wire.ID) (*transport.NetConn, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.byID[id]
	return c, ok
}

func (l *linkSet) broadcast(buf []byte) {
	l.mu.Lock()
	conns := make([]*transport.NetConn, 0, len(l.byID))
	for _, c := range l.byID {
		conns = append(conns, c)
	}
	l.mu.Unlock()
	for _, c := range conns {
		if err := c.Send(buf); err != nil {
			log.Printf("rkvnode: broadcast send failed: %v", err)
		}
	}
}

// dialPeer maintains one outbound connection to peer p, redialing after
// backoff whenever the link drops; each successful connection's inbound
// frames are served until it errors.
func dialPeer(p rkv.HostCfg, links *linkSet, n *node, bp pool.BytePool, backoff time.Duration) {
	addr := net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
	for {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			log.Printf("rkvnode: dial %s: %v", addr, err)
			time.Sleep(backoff)
			continue
		}
		nc := transport.NewNetConn(c, bp)
		links.set(p.ID, nc)
		n.repl.SetNext(nc) // provisional; nextSyncLoop corrects it against the real ring successor

		err = serveConn(nc, n)
		links.remove(p.ID)
		n.host.Disconnect(p.ID)
		log.Printf("rkvnode: link to %s lost: %v", addr, err)
		time.Sleep(backoff)
	}
}

// serveConn runs nc's inbound frame loop until the connection errors.
func serveConn(nc *transport.NetConn, n *node) error {
	return nc.ReadFrames(func(h wire.Hdr, frame []byte) error {
		n.handleFrame(h, frame, nc)
		return nil
	})
}
