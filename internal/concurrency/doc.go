// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// High-performance concurrency primitives for rkv with NUMA-aware,
// lock-free, and cross-platform support. Includes CPU/NUMA pinning,
// event loops, executors, and schedulers optimized for zero-copy networking.
//
// All implementations are cross-platform compatible (Linux/Windows) with
// optional DPDK integration via build tags.
package concurrency
