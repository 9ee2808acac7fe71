// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// rkvnode is the replication daemon: it owns one RKV host, one table's
// sharding state, and the TCP links to every configured peer, wiring
// together rkv/, store/, transport/ and wire/ per spec.md section 6.2's
// node configuration. An admin/client-facing command surface is
// explicitly out of scope (spec.md's Non-goals) — this binary only
// carries the host-to-host replication protocol.
package main

import (
	"encoding/binary"
	"flag"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/momentics/rkv/control"
	"github.com/momentics/rkv/pool"
	"github.com/momentics/rkv/rkv"
	"github.com/momentics/rkv/store"
	"github.com/momentics/rkv/transport"
	"github.com/momentics/rkv/transport/tcp"
	"github.com/momentics/rkv/wire"
)

func idFromUint(n uint64) wire.ID {
	var id wire.ID
	binary.BigEndian.PutUint64(id[:], n)
	return id
}

// parsePeers parses "id:ip:port:priority" entries separated by ';'.
func parsePeers(spec string) []rkv.HostCfg {
	var out []rkv.HostCfg
	if spec == "" {
		return out
	}
	for _, entry := range strings.Split(spec, ";") {
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			log.Fatalf("rkvnode: malformed -peers entry %q, want id:ip:port:priority", entry)
		}
		n, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			log.Fatalf("rkvnode: bad peer id %q: %v", parts[0], err)
		}
		port, err := strconv.Atoi(parts[2])
		if err != nil {
			log.Fatalf("rkvnode: bad peer port %q: %v", parts[2], err)
		}
		prio, err := strconv.Atoi(parts[3])
		if err != nil {
			log.Fatalf("rkvnode: bad peer priority %q: %v", parts[3], err)
		}
		out = append(out, rkv.HostCfg{ID: idFromUint(n), IP: parts[1], Port: port, Priority: prio})
	}
	return out
}

// parseCPUs parses a comma list of CPU indices, one per shard; an entry
// that is not an integer (including an empty one) is fatal.
func parseCPUs(spec string, nshards int) []int {
	if spec == "" {
		return nil
	}
	fields := strings.Split(spec, ",")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			log.Fatalf("rkvnode: bad -threads entry %q: %v", f, err)
		}
		out = append(out, n)
	}
	return out
}

func main() {
	id := flag.Uint64("id", 1, "this host's numeric ID")
	addr := flag.String("addr", ":9001", "address to listen on for replication links")
	priority := flag.Int("priority", 0, "static election priority, tie-break under SN")
	peersSpec := flag.String("peers", "", "peer list: id:ip:port:priority;id:ip:port:priority;...")
	tableID := flag.String("table", "kv", "table name this node serves")
	nshards := flag.Int("shards", 4, "shard count for -table")
	threadsSpec := flag.String("threads", "", "comma-separated CPU id per shard, for worker pinning")
	cacheAll := flag.Bool("cache-all", false, "retain the full buffer cache instead of evicting on commit")
	heartbeatFreq := flag.Duration("heartbeat-freq", 2*time.Second, "heartbeat broadcast interval")
	heartbeatTimeout := flag.Duration("heartbeat-timeout", 6*time.Second, "peer heartbeat staleness before disconnect")
	reconnectFreq := flag.Duration("reconnect-freq", time.Second, "delay between redial attempts on a dropped link")
	sendRate := flag.Float64("send-rate", 0, "max records/sec forwarded to the ring successor, 0 disables the limit")
	sendBurst := flag.Int("send-burst", 64, "burst size for -send-rate")
	flag.Parse()

	threads := parseCPUs(*threadsSpec, *nshards)

	selfCfg := rkv.HostCfg{ID: idFromUint(*id), Port: 0, Priority: *priority}
	peers := parsePeers(*peersSpec)

	cacheMode := rkv.CacheModeNormal
	if *cacheAll {
		cacheMode = rkv.CacheModeAll
	}

	mstore := store.NewMemStore()
	cfg := rkv.Config{
		HostID: selfCfg.ID,
		Hosts:  append([]rkv.HostCfg{selfCfg}, peers...),
		Tables: map[string]rkv.TableCfg{
			*tableID: {ID: *tableID, NShards: *nshards, CacheMode: cacheMode, Threads: threads},
		},
		HeartbeatFreq:    *heartbeatFreq,
		HeartbeatTimeout: *heartbeatTimeout,
		ReconnectFreq:    *reconnectFreq,
		Store:            mstore,
	}

	metrics := control.NewMetricsRegistry()
	debug := control.NewDebugProbes()
	control.RegisterPlatformProbes(debug)

	configStore := control.NewConfigStore()
	configStore.SetConfig(map[string]any{
		"hostID":           cfg.HostID,
		"table":            *tableID,
		"shards":           *nshards,
		"heartbeatFreq":    cfg.HeartbeatFreq,
		"heartbeatTimeout": cfg.HeartbeatTimeout,
		"reconnectFreq":    cfg.ReconnectFreq,
	})
	debug.RegisterProbe("config", func() any { return configStore.GetSnapshot() })

	host := rkv.NewHost(selfCfg)
	mgr := rkv.NewManager(cfg.Store)

	tableCfg := cfg.Tables[*tableID]
	storeCfg := store.TableConfig{
		ID:          tableCfg.ID,
		NShards:     tableCfg.NShards,
		KeyFields:   kvKeyFields,
		DecodeFrame: decodeFrame,
		KeyOf:       keyOf,
	}

	opened := make(chan error, 1)
	mgr.OpenTable(tableCfg, storeCfg, func(err error) { opened <- err })
	if err := <-opened; err != nil {
		log.Fatalf("rkvnode: open table %s: %v", tableCfg.ID, err)
	}

	workers := newShardWorkers(tableCfg.NShards, threads)

	links := newLinkSet()

	repl := rkv.NewReplicator(host, applyRecord(host, mgr, workers, metrics))
	if *sendRate > 0 {
		repl.SetSendLimiter(rate.NewLimiter(rate.Limit(*sendRate), *sendBurst))
	}
	n := &node{host: host, mgr: mgr, repl: repl}

	debug.RegisterProbe("host.state", func() any { return host.State().String() })
	debug.RegisterProbe("host.leader", func() any {
		id, ok := host.Leader()
		return struct {
			ID wire.ID
			Ok bool
		}{id, ok}
	})

	if err := host.Init(); err != nil {
		log.Fatalf("rkvnode: host init: %v", err)
	}
	if err := host.Start(peers); err != nil {
		log.Fatalf("rkvnode: host start: %v", err)
	}

	bytePool := pool.NewSimpleBytePool(64, 64*1024)

	for _, p := range peers {
		go dialPeer(p, links, n, bytePool, cfg.ReconnectFreq)
	}

	listenerCfg := &tcp.ListenerConfig{
		Addr: *addr,
		ConnHandler: func(c net.Conn) {
			nc := transport.NewNetConn(c, bytePool)
			if err := serveConn(nc, n); err != nil {
				log.Printf("rkvnode: inbound link from %s closed: %v", c.RemoteAddr(), err)
			}
		},
	}
	go func() {
		if err := tcp.StartTCPListener(listenerCfg); err != nil {
			log.Fatalf("rkvnode: listener: %v", err)
		}
	}()

	go heartbeatLoop(host, mgr, links, *heartbeatFreq)
	go nextSyncLoop(host, repl, links, *heartbeatFreq)
	go gapCheckLoop(repl, *heartbeatTimeout)
	go heartbeatTimeoutLoop(host, *heartbeatTimeout)
	go debugLogLoop(debug, metrics, 30*time.Second)

	select {}
}
