// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// NetConn is RKV's replication link over a plain net.Conn: Send writes
// one complete wire/ frame, and ReadFrames runs a blocking loop that
// peels complete frames off the socket using wire.PeekFrame's two-stage
// verification (spec.md section 4.5), handing each to onFrame as it
// completes. Grounded on the teacher's pool-backed NetConn for the
// pooled read buffer, generalized from a bare Read/Write passthrough to
// own the buffering a length-prefixed protocol needs.
package transport

import (
	"net"

	"github.com/momentics/rkv/pool"
	"github.com/momentics/rkv/wire"
)

// NetConn implements rkv.Conn (Send) plus an inbound frame loop over a
// net.Conn, using pool to recycle its read buffer.
type NetConn struct {
	conn net.Conn
	pool pool.BytePool

	buf []byte // accumulated, not-yet-fully-parsed inbound bytes
}

// NewNetConn initializes a new NetConn.
func NewNetConn(conn net.Conn, pool pool.BytePool) *NetConn {
	return &NetConn{conn: conn, pool: pool}
}

// Send writes buf (a complete wire/ frame) to the peer, looping until
// every byte is written or the connection errors: net.Conn.Write may
// return a short write under backpressure even on a stream socket.
func (n *NetConn) Send(buf []byte) error {
	for len(buf) > 0 {
		k, err := n.conn.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[k:]
	}
	return nil
}

// ReadFrames blocks, reading from the connection and invoking onFrame
// once for every complete frame that arrives, until the connection
// errors (including a clean close, reported as io.EOF by net.Conn).
func (n *NetConn) ReadFrames(onFrame func(h wire.Hdr, frame []byte) error) error {
	read := n.pool.Get()
	defer n.pool.Put(read)

	for {
		k, err := n.conn.Read(read)
		if k > 0 {
			n.buf = append(n.buf, read[:k]...)
			if err := n.drain(onFrame); err != nil {
				return err
			}
		}
		if err != nil {
			return err
		}
	}
}

func (n *NetConn) drain(onFrame func(h wire.Hdr, frame []byte) error) error {
	for {
		h, frameLen, ok, err := wire.PeekFrame(n.buf)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		frame := append([]byte(nil), n.buf[:frameLen]...)
		n.buf = n.buf[frameLen:]
		if err := onFrame(h, frame); err != nil {
			return err
		}
	}
}

// Close closes the underlying connection.
func (n *NetConn) Close() error {
	return n.conn.Close()
}
