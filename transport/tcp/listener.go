// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp provides a minimal TCP listener/acceptor for RKV's
// host-to-host replication links (spec.md section 4.5): a plain framed
// TCP stream carrying wire/ frames, with optional CPU affinity pinning
// for the accept goroutine. Adapted from the teacher's WebSocket
// listener: RKV's transport glue is a bespoke binary protocol with its
// own framing (wire.PeekFrame), so the RFC 6455 upgrade handshake this
// package originally performed has no role here and is dropped; the
// net.Listen/accept-loop/affinity structure is kept as-is.
package tcp

import (
	"fmt"
	"net"
	"os"
)

// ListenerConfig holds configuration for the TCP listener.
type ListenerConfig struct {
	Addr        string         // TCP address to bind (e.g., ":9001")
	WorkerCPUs  []int          // List of CPUs for optional affinity pinning
	ConnHandler func(net.Conn) // Handler for accepted connections
}

// StartTCPListener opens the TCP listening socket, applies affinity if
// requested, and runs the accept loop, handing each accepted connection
// to cfg.ConnHandler directly.
func StartTCPListener(cfg *ListenerConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("tcp listen failed: %v", err)
	}
	defer ln.Close()
	fmt.Printf("RKV replication listener on %s\n", cfg.Addr)

	if len(cfg.WorkerCPUs) > 0 {
		setCPUAffinity(cfg.WorkerCPUs[0])
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			fmt.Fprintf(os.Stderr, "accept error: %v\n", err)
			continue
		}
		go cfg.ConnHandler(conn)
	}
}
