package iov

// ChunkDescriptor exposes one non-empty chunk of a Cursor's backing
// memory in its native form, so a caller can move bytes without an
// intermediate buffer. Exactly the fields matching Kind are valid.
type ChunkDescriptor struct {
	Kind Kind

	UserMem UserMemory // KindUser
	UserOff int

	KernelBuf []byte // KindKernel

	Page    *Page // KindPageVector
	PageOff int

	Len int
}

// ForEachChunk invokes fn over consecutive non-empty chunks until n
// bytes are consumed (or the cursor is exhausted), advancing the
// cursor by exactly however many bytes fn reports it actually moved
// (spec §4.1 "advances by actually_copied", invariant I8). fn returns
// the number of bytes it consumed from the chunk; a short return (a
// user-memory access fault) stops the walk after that chunk instead
// of skipping the unread tail. It returns fn's last non-zero error.
func (c *Cursor) ForEachChunk(n int, fn func(ChunkDescriptor) (int, error)) error {
	if n > c.remaining {
		n = c.remaining
	}
	if c.kind == KindDiscard {
		c.remaining -= n
		return nil
	}

	var lastErr error
	for n > 0 {
		segLen := c.segs.len(c.kind)
		if c.segIdx >= segLen {
			break
		}
		avail := c.segs.segLen(c.kind, c.segIdx) - c.segOff
		if avail <= 0 {
			c.segIdx++
			c.segOff = 0
			continue
		}
		take := n
		if take > avail {
			take = avail
		}

		desc := ChunkDescriptor{Kind: c.kind, Len: take}
		switch c.kind {
		case KindUser:
			seg := c.segs.User[c.segIdx]
			desc.UserMem = seg.Mem
			desc.UserOff = c.segOff
		case KindKernel:
			buf := c.segs.Kernel[c.segIdx].Buf
			desc.KernelBuf = buf[c.segOff : c.segOff+take]
		case KindPageVector:
			pc := c.segs.Pages[c.segIdx]
			desc.Page = pc.Page
			desc.PageOff = pc.Offset + c.segOff
		}

		actual, err := fn(desc)
		if err != nil {
			lastErr = err
		}
		if actual < 0 {
			actual = 0
		}
		if actual > take {
			actual = take
		}

		c.segOff += actual
		c.remaining -= actual
		n -= actual
		if c.segOff >= c.segs.segLen(c.kind, c.segIdx) {
			c.segIdx++
			c.segOff = 0
		}
		if actual < take {
			break
		}
	}
	return lastErr
}

// CopyFrom copies up to len(dst) bytes from the cursor's backing
// memory into dst, advancing by the number of bytes actually copied.
// Over UserSegments a short count signals an access fault partway
// through; Kernel and PageVector always copy the full requested length
// (bounded by Remaining). A Discard cursor advances by that length but
// copies nothing and returns 0.
func (c *Cursor) CopyFrom(dst []byte) int {
	want := len(dst)
	if want > c.remaining {
		want = c.remaining
	}
	copied := 0
	c.ForEachChunk(want, func(ch ChunkDescriptor) (int, error) {
		var n int
		switch ch.Kind {
		case KindUser:
			n = ch.UserMem.ReadAt(ch.UserOff, dst[copied:copied+ch.Len])
		case KindKernel:
			n = copy(dst[copied:copied+ch.Len], ch.KernelBuf)
		case KindPageVector:
			n = copy(dst[copied:copied+ch.Len], ch.Page.Buf[ch.PageOff:ch.PageOff+ch.Len])
		}
		copied += n
		return n, nil
	})
	return copied
}

// CopyTo copies up to len(src) bytes from src into the cursor's
// backing memory, advancing by the number of bytes actually copied.
func (c *Cursor) CopyTo(src []byte) int {
	want := len(src)
	if want > c.remaining {
		want = c.remaining
	}
	if c.kind == KindDiscard {
		c.remaining -= want
		return want
	}
	copied := 0
	c.ForEachChunk(want, func(ch ChunkDescriptor) (int, error) {
		var n int
		switch ch.Kind {
		case KindUser:
			n = ch.UserMem.WriteAt(ch.UserOff, src[copied:copied+ch.Len])
		case KindKernel:
			n = copy(ch.KernelBuf, src[copied:copied+ch.Len])
		case KindPageVector:
			n = copy(ch.Page.Buf[ch.PageOff:ch.PageOff+ch.Len], src[copied:copied+ch.Len])
		}
		copied += n
		return n, nil
	})
	return copied
}
