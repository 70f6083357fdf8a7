package store

import "github.com/inmemosd/osd/iov"

// BlockShift/BlockSize/blockMask are compile-time constants (spec §3,
// §4.3): 64 KiB, a power of two, and a multiple of iov.PageSize.
const (
	BlockShift = 16
	BlockSize  = 1 << BlockShift
	blockMask  = BlockSize - 1
)

// blockOrder is the PageAllocator order that yields exactly one
// BlockSize-sized compound page.
var blockOrder = iov.Order(BlockSize)

// Block is a single allocation unit (spec §3): block-aligned, owning
// exactly BlockSize bytes, zero-initialised at allocation.
type Block struct {
	Offset uint64
	Page   *iov.Page
}

func blockBase(off uint64) uint64 { return off &^ blockMask }

// blockLess orders blocks by offset for the per-object ordered set.
func blockLess(a, b *Block) bool { return a.Offset < b.Offset }
