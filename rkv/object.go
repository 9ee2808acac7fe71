// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Object implements the per-row lifecycle state machine of spec.md
// section 3.3/4.4.3: Undefined -> {Insert|Update|Delete} -> {Committed|
// Deleted}, with Abort reverting an in-flight Insert/Update/Delete back
// to its prior committed state. Grounded on z/zdb/src/Zdb.cc's object
// state machine (original_source/_INDEX.md) for the transition set and
// the origUN-restore-on-abort rule: a shard thread assigns a new UN
// speculatively when a mutation begins, and abort_() must hand that UN
// back rather than leave a gap in the per-shard UN sequence.
package rkv

import "sync"

// ObjState is one lifecycle state of an Object.
type ObjState int

const (
	ObjUndefined ObjState = iota
	ObjInsert
	ObjUpdate
	ObjDelete
	ObjCommitted
	ObjDeleted
)

func (s ObjState) String() string {
	switch s {
	case ObjUndefined:
		return "Undefined"
	case ObjInsert:
		return "Insert"
	case ObjUpdate:
		return "Update"
	case ObjDelete:
		return "Delete"
	case ObjCommitted:
		return "Committed"
	case ObjDeleted:
		return "Deleted"
	default:
		return "Unknown"
	}
}

// Object is one versioned row under replication. VN >= 0 is a live
// version number; VN < 0 encodes a deletion generation as -VN-1
// (spec.md section 3.3).
type Object struct {
	mu sync.Mutex

	state ObjState

	un     uint64 // UN currently assigned to this row
	origUN uint64 // UN to restore on Abort_
	sn     uint64
	vn     int64

	tuple []byte
}

// NewObject creates an Object in the Undefined state.
func NewObject() *Object { return &Object{state: ObjUndefined} }

func (o *Object) State() ObjState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Object) UN() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.un
}

func (o *Object) SN() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sn
}

func (o *Object) VN() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.vn
}

func (o *Object) Tuple() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tuple
}

// Insert_ begins an insert of a brand new row: only legal from
// Undefined or Deleted (a previously deleted key may be reinserted).
func (o *Object) Insert_(tuple []byte, un uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != ObjUndefined && o.state != ObjDeleted {
		return ErrBadLifecycle
	}
	o.origUN = o.un
	o.state = ObjInsert
	o.un = un
	o.vn = 0
	o.tuple = tuple
	return nil
}

// Update_ begins a mutation of an already-committed row.
func (o *Object) Update_(tuple []byte, un uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != ObjCommitted {
		return ErrBadLifecycle
	}
	o.origUN = o.un
	o.state = ObjUpdate
	o.un = un
	o.vn++
	o.tuple = tuple
	return nil
}

// Del_ begins a deletion of an already-committed row, recording a new
// deletion generation in VN (encoded negative per spec.md section 3.3).
func (o *Object) Del_(un uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != ObjCommitted {
		return ErrBadLifecycle
	}
	o.origUN = o.un
	o.state = ObjDelete
	o.un = un
	gen := -o.vn - 1
	if o.vn >= 0 {
		gen = 1
	} else {
		gen = -o.vn
	}
	o.vn = -gen - 1
	return nil
}

// Commit_ finalizes the in-flight mutation, assigning its global SN and
// moving Insert/Update to Committed or Delete to Deleted.
func (o *Object) Commit_(sn uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case ObjInsert, ObjUpdate:
		o.state = ObjCommitted
	case ObjDelete:
		o.state = ObjDeleted
		o.tuple = nil
	default:
		return ErrBadLifecycle
	}
	o.sn = sn
	return nil
}

// Abort_ reverts an in-flight (uncommitted) mutation, restoring the UN
// the shard had before it began so the per-shard UN sequence has no
// gap, and returning the object to its prior committed state (or
// Undefined if this was the row's first Insert).
func (o *Object) Abort_() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case ObjInsert:
		o.state = ObjUndefined
		o.tuple = nil
	case ObjUpdate, ObjDelete:
		o.state = ObjCommitted
	default:
		return ErrBadLifecycle
	}
	o.un = o.origUN
	return nil
}
