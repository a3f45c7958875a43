package intersect

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/routing"
)

// PlanePair is an edge whose two adjoining planes both cut the other brush.
type PlanePair struct {
	Plane0, Plane1           mgl64.Vec4
	Vertex0, Vertex1         mgl64.Vec3
	PlaneIndex0, PlaneIndex1 int32
}

// SurfaceInfo tells whether a plane coincides with the other brush.
// InteriorCategory is Inside when it does not, Aligned or ReverseAligned
// when it coincides with one of the other brush's planes.
type SurfaceInfo struct {
	BasePlaneIndex   int32
	InteriorCategory routing.CategoryIndex
}

// VertexPlanes lists, per vertex, the plane indices passing through it, in
// compressed sparse row form: the planes of vertex i are
// Indices[Offsets[i]:Offsets[i+1]].
type VertexPlanes struct {
	Offsets []int32
	Indices []int32
}

// Of returns the plane indices of vertex i.
func (v VertexPlanes) Of(i int) []int32 {
	if i < 0 || i+1 >= len(v.Offsets) {
		return nil
	}
	return v.Indices[v.Offsets[i]:v.Offsets[i+1]]
}

// BrushIntersection is what one brush of a pair needs for clipping against
// the other, in its own local space.
type BrushIntersection struct {
	Order int32
	Other int32
	// Type is the relation with this brush as A.
	Type  IntersectionType
	Valid bool

	// IntersectingPlanes are indices into this brush's planes.
	IntersectingPlanes []int32
	// OtherPlanes are the other brush's intersecting planes in this
	// brush's local space; OtherPlaneIndices are their indices in the
	// other mesh.
	OtherPlanes       []mgl64.Vec4
	OtherPlaneIndices []int32
	PlanePairs        []PlanePair
	// UsedVertices are the indices of the touched vertices in mesh order;
	// Vertices holds their positions.
	UsedVertices []int32
	Vertices     []mgl64.Vec3
	// Surfaces has one entry per intersecting plane.
	Surfaces []SurfaceInfo
	// SelfIncidence and OtherIncidence are indexed like Vertices and hold
	// this brush's and the other brush's plane indices respectively.
	SelfIncidence  VertexPlanes
	OtherIncidence VertexPlanes
}

// Surface returns the SurfaceInfo of plane, if plane intersects the other
// brush.
func (b *BrushIntersection) Surface(plane int32) (SurfaceInfo, bool) {
	for _, s := range b.Surfaces {
		if s.BasePlaneIndex == plane {
			return s, true
		}
	}
	return SurfaceInfo{}, false
}

// PairResult holds the records of both brushes of a pair.
type PairResult struct {
	Pair BrushPair
	A, B BrushIntersection
}

// Valid reports whether both records were produced.
func (r PairResult) Valid() bool {
	return r.A.Valid && r.B.Valid
}

func invalidResult(pair BrushPair) PairResult {
	return PairResult{
		Pair: pair,
		A:    BrushIntersection{Order: pair.A, Other: pair.B, Type: pair.Type},
		B:    BrushIntersection{Order: pair.B, Other: pair.A, Type: pair.Type.Flip()},
	}
}

// Preprocess prepares one pair. a and b must be the brushes named by
// pair.A and pair.B. A pair whose type is NoIntersection, or an
// intersecting pair in which either brush has no cutting plane, yields
// invalid sentinel records. scratch may be nil.
func Preprocess(pair BrushPair, a, b BrushInput, scratch *Scratch) PairResult {
	if scratch == nil {
		scratch = &Scratch{}
	}
	if pair.Type == NoIntersection || a.Mesh == nil || b.Mesh == nil {
		return invalidResult(pair)
	}

	toA := a.toLocal(b)
	toB := b.toLocal(a)
	scratch.bInA = transformInto(scratch.bInA, b.Mesh.Vertices, toA)
	scratch.aInB = transformInto(scratch.aInB, a.Mesh.Vertices, toB)

	scratch.aPlanes = resize(scratch.aPlanes, len(a.Mesh.Planes))
	scratch.bPlanes = resize(scratch.bPlanes, len(b.Mesh.Planes))
	if pair.Type == Intersection {
		na := markIntersectingPlanes(scratch.aPlanes, a.Mesh.Planes, scratch.bInA)
		nb := markIntersectingPlanes(scratch.bPlanes, b.Mesh.Planes, scratch.aInB)
		if na == 0 || nb == 0 {
			return invalidResult(pair)
		}
	} else {
		markAllPlanes(scratch.aPlanes, a.Mesh.Planes)
		markAllPlanes(scratch.bPlanes, b.Mesh.Planes)
	}

	return PairResult{
		Pair: pair,
		A:    buildRecord(pair.A, pair.B, pair.Type, a.Mesh, b.Mesh, scratch.aPlanes, scratch.bPlanes, toA, scratch),
		B:    buildRecord(pair.B, pair.A, pair.Type.Flip(), b.Mesh, a.Mesh, scratch.bPlanes, scratch.aPlanes, toB, scratch),
	}
}

// markIntersectingPlanes flags the planes that cut the other brush, given
// as points in this brush's space. A plane cuts when the bounds of the
// points are not strictly on one side of it and some point lies on the
// plane or points lie on both sides. It returns the number of flagged
// planes.
func markIntersectingPlanes(mask []bool, planes []mgl64.Vec4, points []mgl64.Vec3) int {
	const eps = brushmesh.FatPlaneWidthEpsilon
	box := brushmesh.BoundsOf(points)
	n := 0
	for i, plane := range planes {
		if brushmesh.IsZeroPlane(plane) {
			continue
		}
		near, far := boxPlaneRange(box, plane)
		if near > eps || far < -eps {
			continue
		}
		front, back, on := false, false, false
		for _, p := range points {
			switch d := brushmesh.PlaneDistance(plane, p); {
			case d > eps:
				front = true
			case d < -eps:
				back = true
			default:
				on = true
			}
		}
		if on || (front && back) {
			mask[i] = true
			n++
		}
	}
	return n
}

func markAllPlanes(mask []bool, planes []mgl64.Vec4) {
	for i, plane := range planes {
		mask[i] = !brushmesh.IsZeroPlane(plane)
	}
}

// boxPlaneRange returns the signed distances of the box corners nearest to
// and farthest along the plane normal.
func boxPlaneRange(box brushmesh.AABB, plane mgl64.Vec4) (near, far float64) {
	near, far = plane.W(), plane.W()
	for k := 0; k < 3; k++ {
		n := plane[k]
		lo, hi := n*box.Min[k], n*box.Max[k]
		near += math.Min(lo, hi)
		far += math.Max(lo, hi)
	}
	return near, far
}

// buildRecord runs the per-brush steps for self against other: plane pairs,
// used vertices, plane alignment and vertex-plane incidence. toSelf maps
// other's local space into self's.
func buildRecord(order, otherOrder int32, typ IntersectionType,
	self, other *brushmesh.Mesh, selfMask, otherMask []bool,
	toSelf mgl64.Mat4, scratch *Scratch) BrushIntersection {

	rec := BrushIntersection{Order: order, Other: otherOrder, Type: typ, Valid: true}
	for i, ok := range selfMask {
		if ok {
			rec.IntersectingPlanes = append(rec.IntersectingPlanes, int32(i))
		}
	}
	for j, ok := range otherMask {
		if ok {
			rec.OtherPlaneIndices = append(rec.OtherPlaneIndices, int32(j))
			rec.OtherPlanes = append(rec.OtherPlanes, brushmesh.TransformPlane(toSelf, other.Planes[j]))
		}
	}

	// Plane pairs: edges with both adjoining planes cutting, each edge once.
	scratch.usedVertices = resize(scratch.usedVertices, len(self.Vertices))
	for e, he := range self.HalfEdges {
		if he.TwinIndex <= int32(e) || int(he.TwinIndex) >= len(self.HalfEdges) {
			continue
		}
		p0 := self.HalfEdgePolygonIndices[e]
		p1 := self.HalfEdgePolygonIndices[he.TwinIndex]
		if p0 < 0 || p1 < 0 || !selfMask[p0] || !selfMask[p1] {
			continue
		}
		from, to, ok := self.EdgeVertices(int32(e))
		if !ok || from < 0 || to < 0 || int(from) >= len(self.Vertices) || int(to) >= len(self.Vertices) {
			continue
		}
		rec.PlanePairs = append(rec.PlanePairs, PlanePair{
			Plane0:      self.Planes[p0],
			Plane1:      self.Planes[p1],
			Vertex0:     self.Vertices[from],
			Vertex1:     self.Vertices[to],
			PlaneIndex0: p0,
			PlaneIndex1: p1,
		})
		scratch.usedVertices[from] = true
		scratch.usedVertices[to] = true
	}

	// Used vertices, in mesh order. Contained brushes keep them all.
	for v, p := range self.Vertices {
		if typ == Intersection && !scratch.usedVertices[v] {
			continue
		}
		rec.UsedVertices = append(rec.UsedVertices, int32(v))
		rec.Vertices = append(rec.Vertices, p)
	}

	// Plane alignment against the other brush's cutting planes.
	rec.Surfaces = make([]SurfaceInfo, len(rec.IntersectingPlanes))
	for i, pi := range rec.IntersectingPlanes {
		info := SurfaceInfo{BasePlaneIndex: pi, InteriorCategory: routing.Inside}
		for _, op := range rec.OtherPlanes {
			if brushmesh.PlanesAligned(self.Planes[pi], op) {
				info.InteriorCategory = routing.Aligned
				break
			}
			if brushmesh.PlanesReverseAligned(self.Planes[pi], op) {
				info.InteriorCategory = routing.ReverseAligned
				break
			}
		}
		rec.Surfaces[i] = info
	}

	// Vertex-plane incidence.
	selfPlanes := make([]mgl64.Vec4, len(rec.IntersectingPlanes))
	for i, pi := range rec.IntersectingPlanes {
		selfPlanes[i] = self.Planes[pi]
	}
	rec.SelfIncidence = incidence(rec.Vertices, selfPlanes, rec.IntersectingPlanes)
	rec.OtherIncidence = incidence(rec.Vertices, rec.OtherPlanes, rec.OtherPlaneIndices)
	return rec
}

func incidence(vertices []mgl64.Vec3, planes []mgl64.Vec4, indices []int32) VertexPlanes {
	vp := VertexPlanes{Offsets: make([]int32, 0, len(vertices)+1)}
	vp.Offsets = append(vp.Offsets, 0)
	for _, v := range vertices {
		for i, plane := range planes {
			if math.Abs(brushmesh.PlaneDistance(plane, v)) <= brushmesh.FatPlaneWidthEpsilon {
				vp.Indices = append(vp.Indices, indices[i])
			}
		}
		vp.Offsets = append(vp.Offsets, int32(len(vp.Indices)))
	}
	return vp
}
