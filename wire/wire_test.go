// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wire

import (
	"bytes"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	want := RecordFrame{TableID: "orders", UN: 42, SN: 7, VN: 3, Shard: 2, Data: []byte("payload")}
	buf := EncodeRecord(want)

	h, frameLen, ok, err := PeekFrame(buf)
	if err != nil || !ok {
		t.Fatalf("PeekFrame: ok=%v err=%v", ok, err)
	}
	if frameLen != len(buf) {
		t.Fatalf("frameLen = %d, want %d", frameLen, len(buf))
	}
	if h.Type != TypeRecord || h.Shard != 2 {
		t.Fatalf("Hdr = %+v", h)
	}

	got, err := DecodeRecord(buf)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if got.TableID != want.TableID || got.UN != want.UN || got.SN != want.SN ||
		got.VN != want.VN || got.Shard != want.Shard || !bytes.Equal(got.Data, want.Data) {
		t.Fatalf("DecodeRecord = %+v, want %+v", got, want)
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	want := HeartbeatFrame{
		HostID: ID{1, 2, 3, 4, 5, 6, 7, 8},
		State:  2,
		DBState: []DBStateEntry{
			{TableID: "orders", Shard: 0, UN: 10},
			{TableID: "orders", Shard: 1, UN: 20},
		},
		NextSN: 99,
	}
	buf := EncodeHeartbeat(want)
	got, err := DecodeHeartbeat(buf)
	if err != nil {
		t.Fatalf("DecodeHeartbeat: %v", err)
	}
	if got.HostID != want.HostID || got.State != want.State || got.NextSN != want.NextSN {
		t.Fatalf("DecodeHeartbeat = %+v, want %+v", got, want)
	}
	if len(got.DBState) != len(want.DBState) {
		t.Fatalf("DBState len = %d, want %d", len(got.DBState), len(want.DBState))
	}
	for i := range want.DBState {
		if got.DBState[i] != want.DBState[i] {
			t.Fatalf("DBState[%d] = %+v, want %+v", i, got.DBState[i], want.DBState[i])
		}
	}
}

func TestCommitRoundTrip(t *testing.T) {
	want := CommitFrame{TableID: "orders", UN: 55, Shard: 3}
	buf := EncodeCommit(want)
	got, err := DecodeCommit(buf)
	if err != nil {
		t.Fatalf("DecodeCommit: %v", err)
	}
	if got != want {
		t.Fatalf("DecodeCommit = %+v, want %+v", got, want)
	}
}

func TestResendReqRoundTrip(t *testing.T) {
	want := ResendReqFrame{TableID: "orders", Shard: 1, From: 10, To: 20}
	buf := EncodeResendReq(want)
	got, err := DecodeResendReq(buf)
	if err != nil {
		t.Fatalf("DecodeResendReq: %v", err)
	}
	if got != want {
		t.Fatalf("DecodeResendReq = %+v, want %+v", got, want)
	}
}

func TestPeekFrameIncomplete(t *testing.T) {
	full := EncodeCommit(CommitFrame{TableID: "t", UN: 1, Shard: 0})
	_, _, ok, err := PeekFrame(full[:HdrSize+1])
	if err != nil {
		t.Fatalf("PeekFrame on truncated buffer: %v", err)
	}
	if ok {
		t.Fatalf("PeekFrame reported a complete frame on truncated input")
	}
}

func TestDecodeRecordWrongType(t *testing.T) {
	buf := EncodeCommit(CommitFrame{TableID: "t", UN: 1, Shard: 0})
	if _, err := DecodeRecord(buf); err != ErrWrongType {
		t.Fatalf("DecodeRecord on a Commit frame = %v, want ErrWrongType", err)
	}
}
