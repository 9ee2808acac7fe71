// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package rkv

import "testing"

func TestObjectInsertCommit(t *testing.T) {
	o := NewObject()
	if err := o.Insert_([]byte("v1"), 1); err != nil {
		t.Fatalf("Insert_: %v", err)
	}
	if o.State() != ObjInsert {
		t.Fatalf("State = %v, want Insert", o.State())
	}
	if err := o.Commit_(100); err != nil {
		t.Fatalf("Commit_: %v", err)
	}
	if o.State() != ObjCommitted {
		t.Fatalf("State = %v, want Committed", o.State())
	}
	if o.SN() != 100 || o.UN() != 1 {
		t.Fatalf("SN/UN = %d/%d, want 100/1", o.SN(), o.UN())
	}
}

func TestObjectUpdateThenAbortRestoresUN(t *testing.T) {
	o := NewObject()
	must(t, o.Insert_([]byte("v1"), 1))
	must(t, o.Commit_(10))

	if err := o.Update_([]byte("v2"), 5); err != nil {
		t.Fatalf("Update_: %v", err)
	}
	if o.UN() != 5 {
		t.Fatalf("UN after Update_ = %d, want 5", o.UN())
	}

	if err := o.Abort_(); err != nil {
		t.Fatalf("Abort_: %v", err)
	}
	if o.State() != ObjCommitted {
		t.Fatalf("State after Abort_ = %v, want Committed", o.State())
	}
	if o.UN() != 1 {
		t.Fatalf("UN after Abort_ = %d, want restored to 1", o.UN())
	}
}

func TestObjectInsertThenAbortReturnsUndefined(t *testing.T) {
	o := NewObject()
	must(t, o.Insert_([]byte("v1"), 1))
	if err := o.Abort_(); err != nil {
		t.Fatalf("Abort_: %v", err)
	}
	if o.State() != ObjUndefined {
		t.Fatalf("State after aborting a first Insert_ = %v, want Undefined", o.State())
	}
}

func TestObjectDeleteLifecycle(t *testing.T) {
	o := NewObject()
	must(t, o.Insert_([]byte("v1"), 1))
	must(t, o.Commit_(10))

	if err := o.Del_(2); err != nil {
		t.Fatalf("Del_: %v", err)
	}
	if o.State() != ObjDelete {
		t.Fatalf("State = %v, want Delete", o.State())
	}
	if err := o.Commit_(20); err != nil {
		t.Fatalf("Commit_: %v", err)
	}
	if o.State() != ObjDeleted {
		t.Fatalf("State = %v, want Deleted", o.State())
	}
	if o.VN() >= 0 {
		t.Fatalf("VN = %d, want negative (deletion generation)", o.VN())
	}
}

func TestObjectReinsertAfterDelete(t *testing.T) {
	o := NewObject()
	must(t, o.Insert_([]byte("v1"), 1))
	must(t, o.Commit_(10))
	must(t, o.Del_(2))
	must(t, o.Commit_(20))

	if err := o.Insert_([]byte("v2"), 3); err != nil {
		t.Fatalf("Insert_ after Deleted: %v", err)
	}
	if o.State() != ObjInsert {
		t.Fatalf("State = %v, want Insert", o.State())
	}
}

func TestObjectBadTransitionsRejected(t *testing.T) {
	o := NewObject()
	if err := o.Commit_(1); err == nil {
		t.Fatalf("Commit_ from Undefined should fail")
	}
	if err := o.Update_([]byte("v"), 1); err == nil {
		t.Fatalf("Update_ from Undefined should fail")
	}
	if err := o.Abort_(); err == nil {
		t.Fatalf("Abort_ from Undefined should fail")
	}
}
