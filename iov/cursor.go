// Package iov is the scatter/gather buffer cursor shared by the wire
// codec and the object store: a single iterator that walks a logical
// byte range over one of three backing memory kinds without an
// intermediate copy buffer. It is a direct, generalised port of the
// Linux iov_iter state machine (see the retrieved kernel source,
// _copy_from_iter / _copy_to_iter / iov_iter_advance) reshaped as a
// tagged union in the style of the retrieved corpus's memsys.SGL,
// which plays the analogous "scatter-gather over reusable buffers"
// role for that system's object pipeline.
/*
 * Copyright (c) 2026, the osd authors. All rights reserved.
 */
package iov

// Kind selects which backing memory a Cursor walks.
type Kind int

const (
	KindUser Kind = iota
	KindKernel
	KindPageVector
	KindDiscard
)

// Direction records whether a cursor was set up to be read from or
// written into. It is informational only: both CopyFrom and CopyTo are
// always legal, and no code in this module checks it.
type Direction int

const (
	DirRead Direction = iota
	DirWrite
)

// Segments is the tagged union of backing arrays a Cursor can walk.
// Exactly one field is populated, matching Kind.
type Segments struct {
	User   []UserSegment
	Kernel []KernelSegment
	Pages  []PageChunk
}

func (s Segments) len(kind Kind) int {
	switch kind {
	case KindUser:
		return len(s.User)
	case KindKernel:
		return len(s.Kernel)
	case KindPageVector:
		return len(s.Pages)
	default:
		return 0
	}
}

func (s Segments) segLen(kind Kind, idx int) int {
	switch kind {
	case KindUser:
		return s.User[idx].Len
	case KindKernel:
		return len(s.Kernel[idx].Buf)
	case KindPageVector:
		return s.Pages[idx].Len
	default:
		return 0
	}
}

// Cursor is a single iterator over one of Kind's backing layouts. The
// segment array is not owned by the cursor and must outlive it (spec
// §4.1 contract). Advance moves the segment index and the
// intra-segment offset; the segment array itself is not resliced, and
// the cursor exposes no accessor for its unconsumed tail.
type Cursor struct {
	kind Kind
	segs Segments
	dir  Direction

	segIdx    int // nr_segs equivalent: index of the current segment
	segOff    int // iov_offset: intra-segment offset within segIdx
	remaining int // count: total bytes left across all remaining segments
}

// NewCursor initialises a cursor over segs for a logical range of
// totalLen bytes (spec §4.1 init, O(1)).
func NewCursor(kind Kind, segs Segments, totalLen int, dir Direction) *Cursor {
	return &Cursor{kind: kind, segs: segs, dir: dir, remaining: totalLen}
}

// NewDiscard returns a cursor that silently advances n bytes without
// touching any backing memory — the write-side /dev/null-equivalent
// sink named in spec §4.1.
func NewDiscard(n int) *Cursor {
	return &Cursor{kind: KindDiscard, dir: DirWrite, remaining: n}
}

func (c *Cursor) Kind() Kind          { return c.kind }
func (c *Cursor) Remaining() int      { return c.remaining }
func (c *Cursor) Direction() Direction { return c.dir }

// Advance skips min(n, Remaining()) bytes, updating the segment index
// and intra-segment offset. It is the caller's responsibility not to
// hold a live borrow into chunk memory across Advance (spec §4.1).
func (c *Cursor) Advance(n int) int {
	if n > c.remaining {
		n = c.remaining
	}
	moved := 0
	for moved < n && c.kind != KindDiscard {
		segLen := c.segs.len(c.kind)
		if c.segIdx >= segLen {
			break
		}
		avail := c.segs.segLen(c.kind, c.segIdx) - c.segOff
		take := n - moved
		if take > avail {
			take = avail
		}
		moved += take
		c.segOff += take
		if c.segOff >= c.segs.segLen(c.kind, c.segIdx) {
			c.segIdx++
			c.segOff = 0
		}
	}
	if c.kind == KindDiscard {
		moved = n
	}
	c.remaining -= moved
	return moved
}
