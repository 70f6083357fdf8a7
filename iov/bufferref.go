package iov

// BufferRef is the unified opaque handle for a run of bytes carried in
// a message (spec §3): either it references a segment of an inbound
// message it does not own, or it owns a freshly-allocated page vector
// built for an outgoing reply. Exactly one owner exists at any time;
// ownership transfers to the outgoing message when the reply is handed
// to the messenger, at which point Release becomes the messenger's job
// and this core must not call it again.
type BufferRef struct {
	Len   int
	Pages []PageChunk

	owned bool
	alloc PageAllocator
	page  *Page
}

// NewPageVectorBuffer allocates a single contiguous page-vector big
// enough to hold n bytes, sized to the next sufficient power-of-two
// page order (spec §4.3/§5): the shape create_osd_op_reply's
// alloc_bvec used for every READ/STAT reply in the retrieved original
// source.
func NewPageVectorBuffer(alloc PageAllocator, n int) (*BufferRef, error) {
	order := Order(n)
	page, err := alloc.Alloc(order)
	if err != nil {
		return nil, err
	}
	return &BufferRef{
		Len:   n,
		Pages: []PageChunk{{Page: page, Offset: 0, Len: n}},
		owned: true,
		alloc: alloc,
		page:  page,
	}, nil
}

// EmptyBuffer is the zero-length BufferRef returned for a read at or
// beyond EOF (spec §4.3 invariant I5).
func EmptyBuffer() *BufferRef { return &BufferRef{} }

// Cursor returns a fresh Cursor over this buffer's bytes.
func (b *BufferRef) Cursor(dir Direction) *Cursor {
	return NewCursor(KindPageVector, Segments{Pages: b.Pages}, b.Len, dir)
}

// Bytes returns the buffer's single contiguous backing slice; valid
// only when the buffer was built by NewPageVectorBuffer (one chunk).
func (b *BufferRef) Bytes() []byte {
	if len(b.Pages) != 1 {
		return nil
	}
	pc := b.Pages[0]
	return pc.Page.Buf[pc.Offset : pc.Offset+pc.Len]
}

// Release returns owned pages to the allocator. A no-op for buffers
// that merely reference someone else's segment.
func (b *BufferRef) Release() {
	if b.owned && b.page != nil {
		b.alloc.Free(b.page)
		b.page = nil
		b.owned = false
	}
}
