// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rkv

import "errors"

var (
	ErrBadTransition   = errors.New("rkv: invalid host state transition")
	ErrNotLeader       = errors.New("rkv: host is not the active leader")
	ErrBadLifecycle    = errors.New("rkv: invalid object lifecycle transition")
	ErrUnknownShard    = errors.New("rkv: unknown shard")
	ErrUnknownTable    = errors.New("rkv: unknown table")
	ErrBackpressure    = errors.New("rkv: replication queue full")
	ErrElectionTie     = errors.New("rkv: election tie, leader undefined until a heartbeat breaks it")
	errSendRateLimited = errors.New("rkv: replication send rate limited")
)
