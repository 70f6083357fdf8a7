package iov_test

import (
	"testing"

	"github.com/inmemosd/osd/iov"
)

func TestOrderRounding(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{1, 0},
		{iov.PageSize, 0},
		{iov.PageSize + 1, 1},
		{iov.PageSize * 2, 1},
		{iov.PageSize * 16, 4},
		{65536, 4},
	}
	for _, c := range cases {
		if got := iov.Order(c.n); got != c.want {
			t.Errorf("Order(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestHeapAllocatorRoundTrip(t *testing.T) {
	alloc := iov.NewHeapAllocator()
	p, err := alloc.Alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Buf) != iov.PageSize<<4 {
		t.Fatalf("buf len = %d, want %d", len(p.Buf), iov.PageSize<<4)
	}
	for _, b := range p.Buf {
		if b != 0 {
			t.Fatal("freshly allocated page must be zeroed")
		}
	}
	p.Buf[0] = 0xff
	alloc.Free(p)

	p2, err := alloc.Alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	if p2.Buf[0] != 0 {
		t.Fatal("reused page must be zeroed before reuse")
	}
}
