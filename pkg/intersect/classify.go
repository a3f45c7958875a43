package intersect

import (
	"cmp"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
)

// Classify is the coarse pretest between two brushes: tree-space bounds,
// a separating plane search over both brushes' planes, then strict
// containment. Touching brushes intersect.
func Classify(a, b BrushInput) IntersectionType {
	if a.Mesh == nil || b.Mesh == nil {
		return NoIntersection
	}
	if !a.Bounds.Intersects(b.Bounds, brushmesh.FatPlaneWidthEpsilon) {
		return NoIntersection
	}

	bInA := transformed(b.Mesh.Vertices, a.toLocal(b))
	aInB := transformed(a.Mesh.Vertices, b.toLocal(a))

	bSide := planeSides(a.Mesh.Planes, bInA)
	aSide := planeSides(b.Mesh.Planes, aInB)
	if bSide == separated || aSide == separated {
		return NoIntersection
	}
	if bSide == contained {
		return BInsideA
	}
	if aSide == contained {
		return AInsideB
	}
	return Intersection
}

type side int

const (
	straddling side = iota
	separated
	contained
)

// planeSides reports whether points lie entirely in front of one of
// planes, strictly behind all of them, or neither.
func planeSides(planes []mgl64.Vec4, points []mgl64.Vec3) side {
	inside := true
	for _, plane := range planes {
		if brushmesh.IsZeroPlane(plane) {
			continue
		}
		front := true
		for _, p := range points {
			d := brushmesh.PlaneDistance(plane, p)
			if d <= brushmesh.FatPlaneWidthEpsilon {
				front = false
			}
			if d >= -brushmesh.FatPlaneWidthEpsilon {
				inside = false
			}
		}
		if front {
			return separated
		}
	}
	if inside {
		return contained
	}
	return straddling
}

func transformed(points []mgl64.Vec3, m mgl64.Mat4) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(points))
	for i, p := range points {
		out[i] = mgl64.TransformCoordinate(p, m)
	}
	return out
}

// boundsItem is a brush in the broad-phase tree.
type boundsItem struct {
	order int32
	rect  rtreego.Rect
}

func (b *boundsItem) Bounds() rtreego.Rect {
	return b.rect
}

// rect pads box by the plane epsilon so that touching and flat boxes get a
// non-degenerate rectangle.
func rect(box brushmesh.AABB) (rtreego.Rect, error) {
	eps := brushmesh.FatPlaneWidthEpsilon
	return rtreego.NewRectFromPoints(
		rtreego.Point{box.Min.X() - eps, box.Min.Y() - eps, box.Min.Z() - eps},
		rtreego.Point{box.Max.X() + eps, box.Max.Y() + eps, box.Max.Z() + eps},
	)
}

// BroadPhase returns every pair of brushes that is not NoIntersection,
// normalized so that A < B and sorted by (A, B). Candidates come from an
// R-tree over the tree-space bounds and are confirmed with Classify.
// Brushes without a mesh are skipped.
func BroadPhase(brushes []BrushInput) []BrushPair {
	items := make([]rtreego.Spatial, 0, len(brushes))
	byOrder := make(map[int32]BrushInput, len(brushes))
	for _, b := range brushes {
		if b.Mesh == nil {
			continue
		}
		r, err := rect(b.Bounds)
		if err != nil {
			continue
		}
		items = append(items, &boundsItem{order: b.Order, rect: r})
		byOrder[b.Order] = b
	}
	if len(items) < 2 {
		return nil
	}

	tree := rtreego.NewTree(3, 2, 8, items...)
	var pairs []BrushPair
	for _, it := range items {
		a := it.(*boundsItem)
		for _, hit := range tree.SearchIntersect(a.rect) {
			b := hit.(*boundsItem)
			if b.order <= a.order {
				continue
			}
			if t := Classify(byOrder[a.order], byOrder[b.order]); t != NoIntersection {
				pairs = append(pairs, BrushPair{A: a.order, B: b.order, Type: t})
			}
		}
	}
	sortPairs(pairs)
	return pairs
}

// AllPairs classifies every pair of brushes directly, without the R-tree.
// The result matches BroadPhase.
func AllPairs(brushes []BrushInput) []BrushPair {
	var pairs []BrushPair
	for i := range brushes {
		for j := range brushes {
			a, b := brushes[i], brushes[j]
			if a.Order >= b.Order || a.Mesh == nil || b.Mesh == nil {
				continue
			}
			if t := Classify(a, b); t != NoIntersection {
				pairs = append(pairs, BrushPair{A: a.Order, B: b.Order, Type: t})
			}
		}
	}
	sortPairs(pairs)
	return pairs
}

func sortPairs(pairs []BrushPair) {
	slices.SortFunc(pairs, func(x, y BrushPair) int {
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})
}
