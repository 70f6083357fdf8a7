package dispatch_test

import (
	"encoding/binary"
	"testing"

	"github.com/inmemosd/osd/dispatch"
	"github.com/inmemosd/osd/iov"
	"github.com/inmemosd/osd/store"
	"github.com/inmemosd/osd/wire"
)

type fixedClock struct{ t store.Timestamp }

func (c fixedClock) Now() store.Timestamp { return c.t }

func newDispatcher() *dispatch.Dispatcher {
	st := store.New(iov.NewHeapAllocator(), false)
	return dispatch.New(st, fixedClock{store.Timestamp{Sec: 1}}, nil)
}

func req(name string, ops ...wire.Op) *wire.OpRequest {
	return &wire.OpRequest{
		Tid:  1,
		Name: []byte(name),
		Ops:  ops,
	}
}

// dataCursor builds the shared input BufferCursor Dispatch expects,
// wrapping payload as a single kernel-memory segment.
func dataCursor(payload []byte) *iov.Cursor {
	return iov.NewCursor(iov.KindKernel, iov.Segments{Kernel: []iov.KernelSegment{{Buf: payload}}}, len(payload), iov.DirRead)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	d := newDispatcher()
	payload := []byte("payload-bytes")

	r := req("obj",
		wire.Op{Opcode: wire.OpWrite, Offset: 0, Length: uint64(len(payload))},
		wire.Op{Opcode: wire.OpRead, Offset: 0, Length: uint64(len(payload))},
	)

	result := d.Dispatch(r, dataCursor(payload))
	if result != 0 {
		t.Fatalf("result = %d, want 0", result)
	}
	if string(r.Ops[1].Outdata) != string(payload) {
		t.Fatalf("read back %q, want %q", r.Ops[1].Outdata, payload)
	}
}

func TestReadMissingObjectFailsRequest(t *testing.T) {
	d := newDispatcher()
	r := req("missing", wire.Op{Opcode: wire.OpRead, Offset: 0, Length: 4})

	result := d.Dispatch(r, dataCursor(nil))
	if result == 0 {
		t.Fatal("expected non-zero result for read on missing object")
	}
	if r.Ops[0].Rval == 0 {
		t.Fatal("expected non-zero rval on the failed op")
	}
}

func TestFailokContinuesToNextOp(t *testing.T) {
	d := newDispatcher()
	r := req("missing",
		wire.Op{Opcode: wire.OpRead, Offset: 0, Length: 4, Flags: dispatch.FlagFailOk},
		wire.Op{Opcode: wire.OpCreate},
	)

	result := d.Dispatch(r, dataCursor(nil))
	if result != 0 {
		t.Fatalf("result = %d, want 0 (second op should still run)", result)
	}
	if r.Ops[0].Rval == 0 {
		t.Fatal("expected non-zero rval on the FAILOK'd op")
	}
	if r.Ops[1].Rval != 0 {
		t.Fatalf("second op rval = %d, want 0", r.Ops[1].Rval)
	}
}

func TestWithoutFailokAbortsRequest(t *testing.T) {
	d := newDispatcher()
	r := req("missing",
		wire.Op{Opcode: wire.OpRead, Offset: 0, Length: 4},
		wire.Op{Opcode: wire.OpCreate},
	)
	d.Dispatch(r, dataCursor(nil))

	statReq := req("missing", wire.Op{Opcode: wire.OpStat, Flags: dispatch.FlagFailOk})
	d.Dispatch(statReq, dataCursor(nil))
	if statReq.Ops[0].Rval == 0 {
		t.Fatal("CREATE after an aborted request should never have run")
	}
}

func TestUnimplementedOpReturnsUnsupported(t *testing.T) {
	d := newDispatcher()
	r := req("obj", wire.Op{Opcode: wire.OpWatch, Flags: dispatch.FlagFailOk})

	d.Dispatch(r, dataCursor(nil))
	if r.Ops[0].Rval == 0 {
		t.Fatal("expected non-zero rval for unimplemented op")
	}
}

func TestWriteFullReplacesContents(t *testing.T) {
	d := newDispatcher()
	first := []byte("0123456789")
	second := []byte("ab")

	r1 := req("obj", wire.Op{Opcode: wire.OpWrite, Offset: 0, Length: uint64(len(first))})
	d.Dispatch(r1, dataCursor(first))

	r2 := req("obj", wire.Op{Opcode: wire.OpWriteFull, Offset: 0, Length: uint64(len(second))},
		wire.Op{Opcode: wire.OpStat})
	d.Dispatch(r2, dataCursor(second))

	if r2.Ops[1].Rval != 0 {
		t.Fatalf("stat rval = %d", r2.Ops[1].Rval)
	}
	if size := binary.LittleEndian.Uint64(r2.Ops[1].Outdata[0:8]); size != uint64(len(second)) {
		t.Fatalf("size after WRITEFULL = %d, want %d", size, len(second))
	}
}

func TestSharedCursorAdvancesAcrossOpsInOrder(t *testing.T) {
	d := newDispatcher()
	first := []byte("aaaa")
	second := []byte("bb")
	payload := append(append([]byte{}, first...), second...)

	r := req("obj",
		wire.Op{Opcode: wire.OpWrite, Offset: 0, Length: uint64(len(first))},
		wire.Op{Opcode: wire.OpWrite, Offset: 100, Length: uint64(len(second))},
	)
	cur := dataCursor(payload)
	result := d.Dispatch(r, cur)
	if result != 0 {
		t.Fatalf("result = %d, want 0", result)
	}
	if cur.Remaining() != 0 {
		t.Fatalf("cursor remaining = %d, want 0 after consuming both ops' payloads", cur.Remaining())
	}
}

func TestWriteFailsWhenCursorShorterThanDeclaredLength(t *testing.T) {
	d := newDispatcher()
	r := req("obj", wire.Op{Opcode: wire.OpWrite, Offset: 0, Length: 10})

	result := d.Dispatch(r, dataCursor([]byte("short")))
	if result == 0 {
		t.Fatal("expected a non-zero result when the cursor has fewer bytes than the op declares")
	}
}
