// Package store is the OSD's in-memory sparse object engine (spec §4.3):
// an ObjectTable of StoredObjects, each holding a sparse, block-aligned
// map of 64 KiB Blocks. It is grounded on the retrieved kernel source's
// ceph_osds_object/ceph_osds_block red-black trees, re-expressed as
// github.com/tidwall/btree generic ordered sets — a real dependency
// already present in the retrieved corpus's go.mod — which natively
// supply the exact-lookup, right-neighbour-lookup, ordered-iteration,
// insert and erase primitives the spec requires (spec §4.3, "Block
// lookup primitives").
/*
 * Copyright (c) 2026, the osd authors. All rights reserved.
 */
package store

import (
	"bytes"

	"github.com/OneOfOne/xxhash"
)

// Timestamp is the wire's {seconds, nanoseconds} pair (spec §3).
type Timestamp struct {
	Sec  uint32
	Nsec uint32
}

func (t Timestamp) Less(o Timestamp) bool {
	if t.Sec != o.Sec {
		return t.Sec < o.Sec
	}
	return t.Nsec < o.Nsec
}

// ObjectIdentity is the addressable name of an object (spec §3).
// Key and Namespace are optional (nil means "not set").
type ObjectIdentity struct {
	Pool       int64
	Hash       uint32
	Name       []byte
	Key        []byte
	Namespace  []byte
	SnapshotID uint64
}

// Hash derives the wire's precomputed raw-hash field from an object
// name. The store never calls this itself — §3 treats Hash as
// caller-supplied wire data — but it is the primitive a CREATE-time
// stamp or a test fixture needs, grounded on the retrieved corpus's
// fs/hrw.go, which hashes object names with the same library for CRUSH
// placement.
func Hash(name []byte) uint32 {
	return xxhash.Checksum32(name)
}

// bitReverse32 matches Ceph's hobject_id ordering convention, where
// the raw hash is compared bit-reversed so that objects belonging to
// the same placement group sort together for listing. The exact tie-
// break order (spec §3) names "hash_reversed" for this reason.
func bitReverse32(v uint32) uint32 {
	var r uint32
	for i := 0; i < 32; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}

// Less implements the total order spec §3 requires: lexicographic over
// (pool, namespace, hash_reversed, name, key, snapshot_id).
func (id ObjectIdentity) Less(o ObjectIdentity) bool {
	if id.Pool != o.Pool {
		return id.Pool < o.Pool
	}
	if c := bytes.Compare(id.Namespace, o.Namespace); c != 0 {
		return c < 0
	}
	if hr, ohr := bitReverse32(id.Hash), bitReverse32(o.Hash); hr != ohr {
		return hr < ohr
	}
	if c := bytes.Compare(id.Name, o.Name); c != 0 {
		return c < 0
	}
	if c := bytes.Compare(id.Key, o.Key); c != 0 {
		return c < 0
	}
	return id.SnapshotID < o.SnapshotID
}

func (id ObjectIdentity) Equal(o ObjectIdentity) bool {
	return id.Pool == o.Pool && id.Hash == o.Hash &&
		bytes.Equal(id.Name, o.Name) && bytes.Equal(id.Key, o.Key) &&
		bytes.Equal(id.Namespace, o.Namespace) && id.SnapshotID == o.SnapshotID
}
