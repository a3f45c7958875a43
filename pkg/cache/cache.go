// Package cache keeps the per-brush caches of the update pipeline indexed
// by the current brush order, carrying entries across order changes
// instead of recomputing them.
package cache

import (
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/hierarchy"
	"github.com/radicalcsg/chisel/pkg/intersect"
	"github.com/radicalcsg/chisel/pkg/routing"
)

// BrushCache is everything derived for one brush in a pass.
type BrushCache struct {
	ID hierarchy.NodeID
	// Populated is false until a pass has filled the entry.
	Populated bool
	// Valid is false when the brush's mesh failed validation.
	Valid     bool
	MeshHash  uint64
	Transform mgl64.Mat4 // local to tree
	Inverse   mgl64.Mat4 // tree to local
	// TreePlanes are the mesh planes in tree space.
	TreePlanes []mgl64.Vec4
	Bounds     brushmesh.AABB
	// Touching holds the brushes this one touches, keyed by order.
	Touching intersect.TouchedBrushes
	// Records holds this brush's side of every valid pair it took part in,
	// keyed by the other brush.
	Records map[hierarchy.NodeID]*intersect.BrushIntersection
	Routing *routing.RoutingTable
}

// Clone returns a copy that shares no mutable state with c. Routing tables
// and pair records are immutable once built and are shared.
func (c BrushCache) Clone() BrushCache {
	c.TreePlanes = slices.Clone(c.TreePlanes)
	c.Touching = c.Touching.Clone()
	c.Records = maps.Clone(c.Records)
	return c
}

// Caches holds one entry per brush, at the brush's order.
type Caches struct {
	Entries []BrushCache
	index   map[hierarchy.NodeID]int32
}

// New returns empty caches.
func New() *Caches {
	return &Caches{index: make(map[hierarchy.NodeID]int32)}
}

// Len returns the number of entries.
func (c *Caches) Len() int {
	return len(c.Entries)
}

// Order returns the current order of id.
func (c *Caches) Order(id hierarchy.NodeID) (int32, bool) {
	o, ok := c.index[id]
	return o, ok
}

// Entry returns the entry of id.
func (c *Caches) Entry(id hierarchy.NodeID) (*BrushCache, bool) {
	o, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.Entries[o], true
}

// Clone returns a deep copy, so that a pass can work on its own caches
// and be discarded without touching the live ones.
func (c *Caches) Clone() *Caches {
	out := &Caches{
		Entries: make([]BrushCache, len(c.Entries)),
		index:   make(map[hierarchy.NodeID]int32, len(c.index)),
	}
	for i, e := range c.Entries {
		out.Entries[i] = e.Clone()
	}
	for id, o := range c.index {
		out.index[id] = o
	}
	return out
}
