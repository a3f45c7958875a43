package cache

import (
	"slices"

	"github.com/radicalcsg/chisel/pkg/hierarchy"
	"github.com/radicalcsg/chisel/pkg/intersect"
)

// RemapResult reports what a Remap changed.
type RemapResult struct {
	// Changed is false when the order was unchanged and nothing was
	// written.
	Changed bool
	// Removed lists the brushes whose entries were evicted.
	Removed []hierarchy.NodeID
	// Added lists the new orders of brushes that had no entry.
	Added []int32
	// NeedsUpdate lists, by new order, the brushes that touched an
	// evicted brush.
	NeedsUpdate []int32
}

// Remap moves every entry to the order newOrder gives its brush. Orders in
// newOrder must be dense, 0 to len(newOrder)-1. Entries of brushes missing
// from newOrder are evicted and the brushes that touched them are reported
// in NeedsUpdate; brushes without an entry get an empty one. Entries are
// permuted in place cycle by cycle, so none is lost or duplicated.
func (c *Caches) Remap(newOrder []hierarchy.IndexOrder) RemapResult {
	if c.unchanged(newOrder) {
		return RemapResult{}
	}

	oldLen := len(c.Entries)
	newIndex := make(map[hierarchy.NodeID]int32, len(newOrder))
	for _, io := range newOrder {
		newIndex[io.ID] = io.Order
	}

	var res RemapResult
	res.Changed = true

	// Old order to new order; -1 for evicted entries.
	perm := make([]int32, oldLen)
	for i, e := range c.Entries {
		if n, ok := newIndex[e.ID]; ok && !e.ID.IsZero() {
			perm[i] = n
			continue
		}
		perm[i] = -1
		if !e.ID.IsZero() {
			res.Removed = append(res.Removed, e.ID)
		}
	}

	needs := make(map[int32]bool)
	for i, e := range c.Entries {
		if perm[i] < 0 {
			continue
		}
		for _, o := range e.Touching.Orders() {
			if int(o) >= oldLen || perm[o] < 0 {
				needs[perm[i]] = true
			}
		}
		c.Entries[i].Touching = remapTouching(e.Touching, perm)
		// Routing tables name brushes by order.
		c.Entries[i].Routing = nil
	}

	if len(newOrder) > oldLen {
		c.Entries = append(c.Entries, make([]BrushCache, len(newOrder)-oldLen)...)
	}
	c.permute(perm)

	filled := make([]bool, len(c.Entries))
	for _, n := range perm {
		if n >= 0 {
			filled[n] = true
		}
	}
	c.Entries = c.Entries[:len(newOrder)]
	for _, io := range newOrder {
		if !filled[io.Order] {
			c.Entries[io.Order] = BrushCache{ID: io.ID}
			res.Added = append(res.Added, io.Order)
		}
	}
	slices.Sort(res.Added)

	for o := range needs {
		res.NeedsUpdate = append(res.NeedsUpdate, o)
	}
	slices.Sort(res.NeedsUpdate)

	if c.index == nil {
		c.index = make(map[hierarchy.NodeID]int32, len(newOrder))
	}
	clear(c.index)
	for _, io := range newOrder {
		c.index[io.ID] = io.Order
	}
	return res
}

func (c *Caches) unchanged(newOrder []hierarchy.IndexOrder) bool {
	if len(newOrder) != len(c.Entries) {
		return false
	}
	for _, io := range newOrder {
		if int(io.Order) >= len(c.Entries) || c.Entries[io.Order].ID != io.ID {
			return false
		}
	}
	return true
}

// permute moves entry i to perm[i] following each cycle of the
// permutation. Entries with perm[i] == -1 are overwritten or left in place
// to be cleared by the caller.
func (c *Caches) permute(perm []int32) {
	done := make([]bool, len(perm))
	for start := range perm {
		if done[start] || perm[start] < 0 {
			done[start] = true
			continue
		}
		if perm[start] == int32(start) {
			done[start] = true
			continue
		}
		carried := c.Entries[start]
		c.Entries[start] = BrushCache{}
		cur := start
		for {
			done[cur] = true
			dest := int(perm[cur])
			if dest >= len(perm) || done[dest] || perm[dest] < 0 {
				c.Entries[dest] = carried
				if dest < len(perm) {
					done[dest] = true
				}
				break
			}
			carried, c.Entries[dest] = c.Entries[dest], carried
			cur = dest
		}
	}
}

func remapTouching(t intersect.TouchedBrushes, perm []int32) intersect.TouchedBrushes {
	var out intersect.TouchedBrushes
	for _, o := range t.Orders() {
		if int(o) < len(perm) && perm[o] >= 0 {
			out.Set(perm[o], t.Get(o))
		}
	}
	return out
}
