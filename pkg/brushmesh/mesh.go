package brushmesh

import "github.com/go-gl/mathgl/mgl64"

// Tolerances shared by every geometric test on brushes.
const (
	// FatPlaneWidthEpsilon is the half-thickness of a plane: points closer
	// than this are treated as lying on it.
	FatPlaneWidthEpsilon = 0.001
	// PlaneDAlignEpsilon is the largest offset difference between two
	// planes that are considered coincident.
	PlaneDAlignEpsilon = 0.001
	// NormalDotAlignEpsilon is the smallest normal dot product between two
	// planes that are considered parallel.
	NormalDotAlignEpsilon = 0.9999
	// DistanceEpsilon is the smallest length treated as non-zero.
	DistanceEpsilon = 1e-6
)

// HalfEdge is one directed edge of a polygon. VertexIndex is the vertex the
// edge starts at; TwinIndex is the opposing half-edge of the neighbouring
// polygon, or -1 when the edge is unpaired.
type HalfEdge struct {
	VertexIndex int32
	TwinIndex   int32
}

// SurfaceTag carries the per-polygon surface description. It is opaque to
// the categorization core and copied through to the output stream.
type SurfaceTag struct {
	Layers   uint32
	Material int32
}

// Polygon is a contiguous run of half-edges [FirstEdge, FirstEdge+EdgeCount).
type Polygon struct {
	FirstEdge int32
	EdgeCount int32
	Surface   SurfaceTag
}

// Mesh is a convex polytope in brush-local space.
type Mesh struct {
	Vertices  []mgl64.Vec3
	HalfEdges []HalfEdge
	// HalfEdgePolygonIndices maps every half-edge to the polygon owning it,
	// or -1 when no polygon references it.
	HalfEdgePolygonIndices []int32
	Polygons               []Polygon
	// Planes holds one plane per polygon as (normal, d) with
	// dot(normal, p)+d == 0 on the polygon and < 0 inside the brush.
	Planes []mgl64.Vec4
	Bounds AABB
}

// New copies the given topology and derives the polygon index of every
// half-edge, the planes and the bounds. Malformed input never panics; it is
// reported by Validate.
func New(vertices []mgl64.Vec3, halfEdges []HalfEdge, polygons []Polygon) *Mesh {
	m := &Mesh{
		Vertices:  append([]mgl64.Vec3(nil), vertices...),
		HalfEdges: append([]HalfEdge(nil), halfEdges...),
		Polygons:  append([]Polygon(nil), polygons...),
	}
	m.calculatePolygonIndices()
	m.CalculatePlanes()
	m.CalculateBounds()
	return m
}

// FromLoops builds a mesh from polygon vertex loops. Every loop must list
// its vertices counter-clockwise as seen from outside the brush. Twins are
// paired by matching a->b with b->a; edges without a partner keep
// TwinIndex -1. surfaces may be shorter than loops.
func FromLoops(vertices []mgl64.Vec3, loops [][]int32, surfaces []SurfaceTag) *Mesh {
	var (
		halfEdges []HalfEdge
		polygons  = make([]Polygon, 0, len(loops))
	)
	type edgeKey struct{ from, to int32 }
	byEndpoints := make(map[edgeKey]int32)

	for i, loop := range loops {
		p := Polygon{FirstEdge: int32(len(halfEdges)), EdgeCount: int32(len(loop))}
		if i < len(surfaces) {
			p.Surface = surfaces[i]
		}
		polygons = append(polygons, p)
		for j, v := range loop {
			next := loop[(j+1)%len(loop)]
			byEndpoints[edgeKey{v, next}] = int32(len(halfEdges))
			halfEdges = append(halfEdges, HalfEdge{VertexIndex: v, TwinIndex: -1})
		}
	}

	for _, p := range polygons {
		loop := halfEdges[p.FirstEdge : p.FirstEdge+p.EdgeCount]
		for j := range loop {
			from := loop[j].VertexIndex
			to := loop[(j+1)%len(loop)].VertexIndex
			if twin, ok := byEndpoints[edgeKey{to, from}]; ok {
				loop[j].TwinIndex = twin
			}
		}
	}

	return New(vertices, halfEdges, polygons)
}

func (m *Mesh) calculatePolygonIndices() {
	m.HalfEdgePolygonIndices = make([]int32, len(m.HalfEdges))
	for i := range m.HalfEdgePolygonIndices {
		m.HalfEdgePolygonIndices[i] = -1
	}
	for pi, p := range m.Polygons {
		if !m.validEdgeRange(p) {
			continue
		}
		for e := p.FirstEdge; e < p.FirstEdge+p.EdgeCount; e++ {
			if m.HalfEdgePolygonIndices[e] == -1 {
				m.HalfEdgePolygonIndices[e] = int32(pi)
			}
		}
	}
}

func (m *Mesh) validEdgeRange(p Polygon) bool {
	return p.EdgeCount > 0 && p.FirstEdge >= 0 && int(p.FirstEdge)+int(p.EdgeCount) <= len(m.HalfEdges)
}

func (m *Mesh) validVertex(v int32) bool {
	return v >= 0 && int(v) < len(m.Vertices)
}

// NextEdge returns the half-edge following edge inside its polygon, or -1
// when edge has no owning polygon.
func (m *Mesh) NextEdge(edge int32) int32 {
	if edge < 0 || int(edge) >= len(m.HalfEdgePolygonIndices) {
		return -1
	}
	pi := m.HalfEdgePolygonIndices[edge]
	if pi < 0 {
		return -1
	}
	p := m.Polygons[pi]
	return p.FirstEdge + (edge-p.FirstEdge+1)%p.EdgeCount
}

// EdgeVertices returns the start and end vertex of a half-edge.
func (m *Mesh) EdgeVertices(edge int32) (from, to int32, ok bool) {
	next := m.NextEdge(edge)
	if next < 0 {
		return -1, -1, false
	}
	return m.HalfEdges[edge].VertexIndex, m.HalfEdges[next].VertexIndex, true
}

// PolygonVertices returns the vertex indices of polygon p in loop order.
func (m *Mesh) PolygonVertices(p int) []int32 {
	if p < 0 || p >= len(m.Polygons) || !m.validEdgeRange(m.Polygons[p]) {
		return nil
	}
	poly := m.Polygons[p]
	out := make([]int32, 0, poly.EdgeCount)
	for _, he := range m.HalfEdges[poly.FirstEdge : poly.FirstEdge+poly.EdgeCount] {
		out = append(out, he.VertexIndex)
	}
	return out
}

// PolygonPoints returns the positions of polygon p's vertices, skipping
// out-of-range indices.
func (m *Mesh) PolygonPoints(p int) []mgl64.Vec3 {
	indices := m.PolygonVertices(p)
	points := make([]mgl64.Vec3, 0, len(indices))
	for _, v := range indices {
		if m.validVertex(v) {
			points = append(points, m.Vertices[v])
		}
	}
	return points
}
