package store

import "github.com/tidwall/btree"

// StoredObject is one logical object in the store (spec §3): created
// lazily on first successful write, mutated by write ops, destroyed by
// DELETE or shutdown.
type StoredObject struct {
	Identity ObjectIdentity
	Size     uint64
	Mtime    Timestamp
	blocks   *btree.BTreeG[*Block]
}

func newStoredObject(id ObjectIdentity) *StoredObject {
	return &StoredObject{
		Identity: id,
		blocks:   btree.NewBTreeG(blockLess),
	}
}

// blockAt returns the block whose offset exactly matches base, if any.
func (o *StoredObject) blockAt(base uint64) (*Block, bool) {
	return o.blocks.Get(&Block{Offset: base})
}

func (o *StoredObject) insertBlock(b *Block) {
	o.blocks.Set(b)
}

// rightBlock returns the block with the smallest offset >= base (spec
// §4.3's "right-lookup"), or nil if none exists.
func (o *StoredObject) rightBlock(base uint64) *Block {
	var found *Block
	o.blocks.Ascend(&Block{Offset: base}, func(b *Block) bool {
		found = b
		return false
	})
	return found
}

// nextBlock returns the block immediately after b in key order.
func (o *StoredObject) nextBlock(b *Block) *Block {
	var found *Block
	first := true
	o.blocks.Ascend(&Block{Offset: b.Offset}, func(item *Block) bool {
		if first {
			first = false
			return true // skip b itself
		}
		found = item
		return false
	})
	return found
}

func (o *StoredObject) eachBlock(alloc func(*Block)) {
	o.blocks.Scan(func(b *Block) bool {
		alloc(b)
		return true
	})
}
