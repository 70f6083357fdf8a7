// Package cluster provides the OSD's view of cluster-wide placement:
// the epoch-versioned map from pool/placement-group to the OSDs that
// own it, and the monitor client that keeps that map current. Both
// the map's rendezvous-hash placement lookups and the client's
// long-poll-until-newer-epoch pattern are carried over from the
// retrieved cluster package's Smap and HRW routines, retargeted from
// bucket/target placement onto pool/PG placement.
/*
 * Copyright (c) 2026, the osd authors. All rights reserved.
 */
package cluster

import (
	"fmt"
	"sort"
	"sync"

	"github.com/OneOfOne/xxhash"

	"github.com/inmemosd/osd/cos"
)

// OSDInfo is one member of the cluster map: a peer OSD's identity and
// address, with a cached idDigest for HRW placement the same way
// Smap.Tmap entries carry one (spec §3's ClusterMap capability). Weight
// is carried but not used by Primary or Acting.
type OSDInfo struct {
	ID     int32
	Addr   string
	Weight uint64

	idDigest uint64
}

// ClusterMap is one immutable epoch's placement view (spec §3). A new
// epoch is a wholly new *ClusterMap value; nothing mutates in place.
type ClusterMap struct {
	Epoch uint32
	OSDs  map[int32]*OSDInfo
}

// NewClusterMap builds a map for the given epoch, computing each
// member's placement digest once up front (grounded on the retrieved
// source's convention of caching idDigest at Smap-build time rather
// than per lookup).
func NewClusterMap(epoch uint32, osds []OSDInfo) *ClusterMap {
	m := &ClusterMap{Epoch: epoch, OSDs: make(map[int32]*OSDInfo, len(osds))}
	for i := range osds {
		o := osds[i]
		o.idDigest = xxhash.ChecksumString64S(fmt.Sprintf("osd%d", o.ID), 0)
		m.OSDs[o.ID] = &o
	}
	return m
}

// ErrNoOSDs mirrors the retrieved source's NoNodesError: a placement
// query against an empty or exhausted map.
var ErrNoOSDs = cos.NewErrInvalidArgument("clustermap", "no available osds")

// Primary returns the OSD that should own the given placement group,
// using the same rendezvous (highest random weight) scheme the
// retrieved source's HrwTarget uses for bucket/target placement:
// XOR the group's digest into every candidate's own digest and take
// the maximum.
func (m *ClusterMap) Primary(poolID int64, seed uint32) (*OSDInfo, error) {
	key := fmt.Sprintf("%d/%d", poolID, seed)
	digest := xxhash.ChecksumString64S(key, 0)
	var best *OSDInfo
	var max uint64
	for _, o := range m.OSDs {
		cs := o.idDigest ^ digest
		if best == nil || cs > max {
			max = cs
			best = o
		}
	}
	if best == nil {
		return nil, ErrNoOSDs
	}
	return best, nil
}

// Acting returns the ordered replica set of size count for a
// placement group, the multi-target counterpart of Primary (grounded
// on HrwTargetList's sort-by-weight-descending approach).
func (m *ClusterMap) Acting(poolID int64, seed uint32, count int) ([]*OSDInfo, error) {
	if len(m.OSDs) < count {
		return nil, fmt.Errorf("insufficient osds: need %d, have %d", count, len(m.OSDs))
	}
	key := fmt.Sprintf("%d/%d", poolID, seed)
	digest := xxhash.ChecksumString64S(key, 0)
	type scored struct {
		osd  *OSDInfo
		hash uint64
	}
	arr := make([]scored, 0, len(m.OSDs))
	for _, o := range m.OSDs {
		arr = append(arr, scored{o, o.idDigest ^ digest})
	}
	sort.Slice(arr, func(i, j int) bool { return arr[i].hash > arr[j].hash })
	out := make([]*OSDInfo, count)
	for i := 0; i < count; i++ {
		out[i] = arr[i].osd
	}
	return out, nil
}

// Registry holds the locally-known ClusterMap: Session reads it to
// stamp replies, and a map watcher such as Watch swaps in a newer
// epoch atomically.
type Registry struct {
	mu  sync.RWMutex
	cur *ClusterMap
}

func NewRegistry(initial *ClusterMap) *Registry { return &Registry{cur: initial} }

func (r *Registry) Current() *ClusterMap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cur
}

// Update installs m if its epoch is newer than what's installed,
// mirroring the retrieved source's smap generation-guard on updates.
// It returns whether the update was applied.
func (r *Registry) Update(m *ClusterMap) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur != nil && m.Epoch <= r.cur.Epoch {
		return false
	}
	r.cur = m
	return true
}
