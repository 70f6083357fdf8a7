package iov

import "sync"

// PageSize is the host page size backing every PageVector chunk. The
// object store's BLOCK_SIZE (64 KiB) must be a multiple of PageSize.
const PageSize = 4096

// Page is one allocation unit handed out by a PageAllocator: either a
// single page or a compound page of 1<<order pages, zero-initialised.
type Page struct {
	Buf   []byte
	Order int
}

// PageAllocator is the external capability (spec §6) that owns
// compound-page allocation/free. The OSD core never calls make([]byte)
// directly for block or reply storage; it always goes through this
// interface, so a future revision can swap in a real slab allocator
// (see memsys.MMSA in the retrieved corpus) without touching callers.
type PageAllocator interface {
	Alloc(order int) (*Page, error)
	Free(p *Page)
}

// Order returns the smallest order such that (1<<order)*PageSize >= n.
func Order(n int) int {
	if n <= 0 {
		return 0
	}
	pages := (n + PageSize - 1) / PageSize
	order := 0
	for (1 << order) < pages {
		order++
	}
	return order
}

// heapAllocator is the default PageAllocator: a size-classed sync.Pool
// of byte slices, mirroring the slab-pool shape of the retrieved
// corpus's memsys.MMSA without its multi-tier SGL bookkeeping — this
// core only ever needs single contiguous compound-page buffers.
type heapAllocator struct {
	pools [17]sync.Pool // order 0..16 covers up to 4 KiB*2^16 (256 MiB)
}

// NewHeapAllocator returns the default in-process PageAllocator.
func NewHeapAllocator() PageAllocator {
	a := &heapAllocator{}
	for i := range a.pools {
		order := i
		a.pools[i].New = func() any {
			return &Page{Buf: make([]byte, (1<<order)*PageSize), Order: order}
		}
	}
	return a
}

func (a *heapAllocator) Alloc(order int) (*Page, error) {
	if order < 0 || order >= len(a.pools) {
		return nil, ErrOrderRange
	}
	p := a.pools[order].Get().(*Page)
	clear(p.Buf)
	return p, nil
}

func (a *heapAllocator) Free(p *Page) {
	if p == nil || p.Order < 0 || p.Order >= len(a.pools) {
		return
	}
	a.pools[p.Order].Put(p)
}
