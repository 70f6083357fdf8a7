package store

import (
	"encoding/binary"

	"github.com/tidwall/btree"

	"github.com/inmemosd/osd/cos"
	"github.com/inmemosd/osd/iov"
)

// Store is the ObjectTable (spec §3/§4.3): an ordered, exclusively-
// owned index from ObjectIdentity to StoredObject. It runs on the
// single logical executor described in spec §5 and is not safe for
// concurrent use — the same "no locks needed" contract the spec's
// concurrency model imposes on the whole core.
type Store struct {
	objects   *btree.BTreeG[*StoredObject]
	alloc     iov.PageAllocator
	noopWrite bool
}

// New builds an empty Store. alloc backs every Block and every reply
// BufferRef the store allocates; noopWrite implements the NOOP_WRITE
// benchmarking fast path (spec §4.3, §6).
func New(alloc iov.PageAllocator, noopWrite bool) *Store {
	return &Store{
		objects:   btree.NewBTreeG(func(a, b *StoredObject) bool { return a.Identity.Less(b.Identity) }),
		alloc:     alloc,
		noopWrite: noopWrite,
	}
}

func (s *Store) lookup(id ObjectIdentity) (*StoredObject, bool) {
	return s.objects.Get(&StoredObject{Identity: id})
}

func (s *Store) lookupOrCreate(id ObjectIdentity) *StoredObject {
	if obj, ok := s.lookup(id); ok {
		return obj
	}
	obj := newStoredObject(id)
	s.objects.Set(obj)
	return obj
}

// Write implements spec §4.3's write(): find-or-create the object,
// then for each iteration compute the destination block, allocate it
// lazily if absent, and copy a chunk from cur. Already-written bytes
// on a mid-write failure are not rolled back (spec §4.3, §7).
func (s *Store) Write(id ObjectIdentity, offset, length uint64, mtime Timestamp, cur *iov.Cursor) error {
	if length == 0 {
		return nil
	}
	if s.noopWrite && length >= 4096 {
		return nil
	}

	obj := s.lookupOrCreate(id)
	dstOff := offset
	remaining := length
	modified := false
	var failure error

	for remaining > 0 {
		base := blockBase(dstOff)
		blk, ok := obj.blockAt(base)
		if !ok {
			page, err := s.alloc.Alloc(blockOrder)
			if err != nil {
				failure = cos.ErrOutOfMemory
				break
			}
			blk = &Block{Offset: base, Page: page}
			obj.insertBlock(blk)
		}

		inBlockOff := dstOff & blockMask
		chunkLen := remaining
		if BlockSize-inBlockOff < chunkLen {
			chunkLen = BlockSize - inBlockOff
		}
		if uint64(cur.Remaining()) < chunkLen {
			chunkLen = uint64(cur.Remaining())
		}
		if chunkLen == 0 {
			break
		}

		n := cur.CopyFrom(blk.Page.Buf[inBlockOff : inBlockOff+chunkLen])
		if n > 0 {
			modified = true
		}
		dstOff += uint64(n)
		remaining -= uint64(n)
		if uint64(n) < chunkLen {
			failure = cos.ErrBadAddress
			break
		}
	}

	if modified {
		obj.Mtime = mtime
		if dstOff > obj.Size {
			obj.Size = dstOff
		}
	}
	return failure
}

// Read implements spec §4.3's read(): a right-neighbour walk over the
// block map that fills holes with zero and copies block contents into
// a single freshly-allocated contiguous buffer.
func (s *Store) Read(id ObjectIdentity, offset, length uint64) (*iov.BufferRef, error) {
	obj, ok := s.lookup(id)
	if !ok {
		return nil, cos.ErrNotFound
	}
	if offset >= obj.Size {
		return iov.EmptyBuffer(), nil
	}

	l := obj.Size - offset
	if length < l {
		l = length
	}
	buf, err := iov.NewPageVectorBuffer(s.alloc, int(l))
	if err != nil {
		return nil, cos.ErrOutOfMemory
	}
	dst := buf.Bytes()

	readOff := offset
	outOff := uint64(0)
	remaining := l
	blk := obj.rightBlock(blockBase(offset))

	for remaining > 0 && blk != nil {
		if blk.Offset > readOff {
			holeLen := blk.Offset - readOff
			if holeLen > remaining {
				holeLen = remaining
			}
			// dst is freshly allocated and zero-initialised; nothing to write.
			readOff += holeLen
			outOff += holeLen
			remaining -= holeLen
		}
		if remaining > 0 {
			inBlockOff := readOff & blockMask
			copyLen := BlockSize - inBlockOff
			if copyLen > remaining {
				copyLen = remaining
			}
			copy(dst[outOff:outOff+copyLen], blk.Page.Buf[inBlockOff:inBlockOff+copyLen])
			readOff += copyLen
			outOff += copyLen
			remaining -= copyLen
		}
		if remaining > 0 {
			blk = obj.nextBlock(blk)
		}
	}
	// any remaining tail is already zero from allocation.
	return buf, nil
}

// Stat implements spec §4.3's stat(): 16 bytes, size then mtime.
func (s *Store) Stat(id ObjectIdentity) (*iov.BufferRef, error) {
	obj, ok := s.lookup(id)
	if !ok {
		return nil, cos.ErrNotFound
	}
	buf, err := iov.NewPageVectorBuffer(s.alloc, 16)
	if err != nil {
		return nil, cos.ErrOutOfMemory
	}
	b := buf.Bytes()
	binary.LittleEndian.PutUint64(b[0:8], obj.Size)
	binary.LittleEndian.PutUint32(b[8:12], obj.Mtime.Sec)
	binary.LittleEndian.PutUint32(b[12:16], obj.Mtime.Nsec)
	return buf, nil
}

// Create ensures id names an object, creating an empty one if absent.
// The wire's CREATE op carries an exclusive flag; when set and the
// object already exists, that is reported as already-existing so the
// dispatcher can surface it through the op's rval.
func (s *Store) Create(id ObjectIdentity, exclusive bool, mtime Timestamp) error {
	if _, ok := s.lookup(id); ok {
		if exclusive {
			return cos.NewErrInvalidArgument("identity", "object already exists")
		}
		return nil
	}
	obj := newStoredObject(id)
	obj.Mtime = mtime
	s.objects.Set(obj)
	return nil
}

// Delete destroys an object and frees every block it owns.
func (s *Store) Delete(id ObjectIdentity) error {
	obj, ok := s.objects.Delete(&StoredObject{Identity: id})
	if !ok {
		return cos.ErrNotFound
	}
	obj.eachBlock(func(b *Block) { s.alloc.Free(b.Page) })
	return nil
}

// Truncate implements the TRUNCATE op: grows Size with no allocation
// (a trailing hole is legal, spec §3), or shrinks it, freeing every
// block wholly beyond the new size and zeroing the tail of the block
// that straddles it.
func (s *Store) Truncate(id ObjectIdentity, size uint64, mtime Timestamp) error {
	obj, ok := s.lookup(id)
	if !ok {
		return cos.ErrNotFound
	}
	if size >= obj.Size {
		obj.Size = size
		obj.Mtime = mtime
		return nil
	}

	base := blockBase(size)
	if blk, ok := obj.blockAt(base); ok {
		off := size & blockMask
		clear(blk.Page.Buf[off:])
	}
	var toFree []*Block
	obj.eachBlock(func(b *Block) {
		if b.Offset >= size {
			toFree = append(toFree, b)
		}
	})
	for _, b := range toFree {
		obj.blocks.Delete(b)
		s.alloc.Free(b.Page)
	}
	obj.Size = size
	obj.Mtime = mtime
	return nil
}

// Zero implements the ZERO op: overwrite [offset, offset+length) with
// zero bytes, allocating blocks the same way Write does (a punch-hole
// optimisation that would instead delete whole covered blocks is a
// valid future revision, not required by spec §4.3's minimum set).
func (s *Store) Zero(id ObjectIdentity, offset, length uint64, mtime Timestamp) error {
	if length == 0 {
		return nil
	}
	obj := s.lookupOrCreate(id)
	dstOff := offset
	remaining := length
	for remaining > 0 {
		base := blockBase(dstOff)
		blk, ok := obj.blockAt(base)
		if !ok {
			page, err := s.alloc.Alloc(blockOrder)
			if err != nil {
				return cos.ErrOutOfMemory
			}
			blk = &Block{Offset: base, Page: page}
			obj.insertBlock(blk)
		}
		inBlockOff := dstOff & blockMask
		chunkLen := remaining
		if BlockSize-inBlockOff < chunkLen {
			chunkLen = BlockSize - inBlockOff
		}
		clear(blk.Page.Buf[inBlockOff : inBlockOff+chunkLen])
		dstOff += chunkLen
		remaining -= chunkLen
	}
	obj.Mtime = mtime
	if dstOff > obj.Size {
		obj.Size = dstOff
	}
	return nil
}
