package engine

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/cache"
	"github.com/radicalcsg/chisel/pkg/hierarchy"
	"github.com/radicalcsg/chisel/pkg/intersect"
	"github.com/radicalcsg/chisel/pkg/routing"
)

// RelativeCategory is the category of a fragment relative to one touching
// brush, before routing.
type RelativeCategory struct {
	Brush    hierarchy.NodeID
	Category routing.CategoryIndex
}

// SurfaceFragment is one polygon of a brush with its final category.
// Vertices and Plane are in tree space.
type SurfaceFragment struct {
	Brush    hierarchy.NodeID
	Order    int32
	Polygon  int
	Plane    mgl64.Vec4
	Vertices []mgl64.Vec3
	Surface  brushmesh.SurfaceTag
	Category routing.CategoryIndex
	// Visible is true for the categories a mesh generator keeps.
	Visible  bool
	Relative []RelativeCategory
}

// BrushOutput summarizes one brush of a pass.
type BrushOutput struct {
	ID     hierarchy.NodeID
	Order  int32
	Bounds brushmesh.AABB
	// Valid is false when the brush was excluded from the pass.
	Valid    bool
	Touching []hierarchy.NodeID
	// Routing lists the brushes the routing table consults, in order.
	Routing []hierarchy.NodeID
}

// Result is the output of a committed pass.
type Result struct {
	PassID string
	// Version counts committed passes.
	Version      uint64
	Fragments    []SurfaceFragment
	Brushes      []BrushOutput
	Pairs        int
	InvalidPairs int
	// Excluded lists the brushes whose mesh was missing or invalid.
	Excluded []hierarchy.NodeID
	Remap    cache.RemapResult
	// Reused counts brushes whose derived geometry was carried over from
	// the previous pass.
	Reused int
	// PreprocessedPairs and ReusedPairs split Pairs into those prepared in
	// this pass and those whose records were carried over.
	PreprocessedPairs int
	ReusedPairs       int
	// Updated lists the brushes that were rebuilt, lost a touching brush or
	// touch a different set of brushes than in the previous pass.
	Updated []hierarchy.NodeID
	// Unrouted lists the brushes whose routing could not be composed. Their
	// fragments are categorized None.
	Unrouted []hierarchy.NodeID
}

// VisibleFragments returns the fragments a mesh generator keeps.
func (r *Result) VisibleFragments() []SurfaceFragment {
	var out []SurfaceFragment
	for _, f := range r.Fragments {
		if f.Visible {
			out = append(out, f)
		}
	}
	return out
}

// Fragment returns the fragment of polygon of brush id.
func (r *Result) Fragment(id hierarchy.NodeID, polygon int) (SurfaceFragment, bool) {
	for _, f := range r.Fragments {
		if f.Brush == id && f.Polygon == polygon {
			return f, true
		}
	}
	return SurfaceFragment{}, false
}

// FeedPair is an intersection type supplied from outside, replacing the
// broad phase for the pair.
type FeedPair struct {
	A, B hierarchy.NodeID
	Type intersect.IntersectionType
}
