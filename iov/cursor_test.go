package iov_test

import (
	"bytes"
	"testing"

	"github.com/inmemosd/osd/iov"
)

func TestCursorCopyFromKernelSegment(t *testing.T) {
	src := []byte("hello world")
	dst := make([]byte, len(src))
	cur := iov.NewCursor(iov.KindKernel, iov.Segments{Kernel: []iov.KernelSegment{{Buf: src}}}, len(src), iov.DirRead)

	n := cur.CopyFrom(dst)
	if n != len(src) {
		t.Fatalf("copied %d bytes, want %d", n, len(src))
	}
	if !bytes.Equal(dst, src) {
		t.Fatalf("got %q, want %q", dst, src)
	}
	if cur.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", cur.Remaining())
	}
}

func TestCursorCopyToKernelSegment(t *testing.T) {
	dst := make([]byte, 5)
	src := []byte("abcde")
	cur := iov.NewCursor(iov.KindKernel, iov.Segments{Kernel: []iov.KernelSegment{{Buf: dst}}}, len(dst), iov.DirWrite)

	n := cur.CopyTo(src)
	if n != len(src) {
		t.Fatalf("copied %d bytes, want %d", n, len(src))
	}
	if !bytes.Equal(dst, src) {
		t.Fatalf("got %q, want %q", dst, src)
	}
}

func TestCursorSpansMultipleSegments(t *testing.T) {
	a := []byte("abc")
	b := []byte("defgh")
	dst := make([]byte, 8)
	cur := iov.NewCursor(iov.KindKernel, iov.Segments{Kernel: []iov.KernelSegment{{Buf: a}, {Buf: b}}}, 8, iov.DirRead)

	n := cur.CopyFrom(dst)
	if n != 8 {
		t.Fatalf("copied %d bytes, want 8", n)
	}
	if !bytes.Equal(dst, []byte("abcdefgh")) {
		t.Fatalf("got %q", dst)
	}
}

func TestCursorAdvancePastEnd(t *testing.T) {
	cur := iov.NewDiscard(10)
	n := cur.Advance(100)
	if n != 10 {
		t.Fatalf("advanced %d, want clamp to 10", n)
	}
	if cur.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", cur.Remaining())
	}
}

func TestUserSegmentFault(t *testing.T) {
	mem := &iov.ByteMemory{Buf: make([]byte, 16), FaultAfter: 4}
	dst := make([]byte, 16)
	cur := iov.NewCursor(iov.KindUser, iov.Segments{User: []iov.UserSegment{{Mem: mem, Len: 16}}}, 16, iov.DirRead)

	n := cur.CopyFrom(dst)
	if n != 4 {
		t.Fatalf("copied %d bytes before fault, want 4", n)
	}
}
