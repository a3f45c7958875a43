package brushmesh

import (
	"fmt"
	"math"
)

// Element names the part of a mesh a ValidationError refers to.
type Element int

const (
	ElementMesh Element = iota
	ElementVertex
	ElementHalfEdge
	ElementPolygon
)

func (e Element) String() string {
	switch e {
	case ElementMesh:
		return "mesh"
	case ElementVertex:
		return "vertex"
	case ElementHalfEdge:
		return "half-edge"
	case ElementPolygon:
		return "polygon"
	default:
		return fmt.Sprintf("Element(%d)", int(e))
	}
}

// ValidationError describes one problem found in a mesh.
type ValidationError struct {
	Element Element
	Index   int32 // -1 for mesh-level findings
	Message string
}

func (e ValidationError) Error() string {
	if e.Element == ElementMesh {
		return e.Message
	}
	return fmt.Sprintf("%s %d: %s", e.Element, e.Index, e.Message)
}

// IsValid reports whether Validate finds nothing.
func (m *Mesh) IsValid() bool {
	return len(m.Validate()) == 0
}

// Validate checks that the mesh is a closed convex polytope. It reports
// every finding instead of stopping at the first one and never mutates the
// mesh. Geometric checks run only once the topology is sound.
func (m *Mesh) Validate() []ValidationError {
	var errs []ValidationError
	if len(m.Vertices) < 4 {
		errs = append(errs, meshError("has %d vertices, need at least 4", len(m.Vertices)))
	}
	if len(m.Polygons) < 4 {
		errs = append(errs, meshError("has %d polygons, need at least 4", len(m.Polygons)))
	}
	if len(m.Planes) != len(m.Polygons) || len(m.HalfEdgePolygonIndices) != len(m.HalfEdges) {
		errs = append(errs, meshError("derived data is stale, rebuild with New"))
		return errs
	}

	topology := validatePolygons(m)
	topology = append(topology, validateHalfEdges(m)...)
	errs = append(errs, topology...)
	if len(topology) > 0 {
		return errs
	}
	errs = append(errs, validateGeometry(m)...)
	return errs
}

func meshError(format string, args ...any) ValidationError {
	return ValidationError{Element: ElementMesh, Index: -1, Message: fmt.Sprintf(format, args...)}
}

func validatePolygons(m *Mesh) []ValidationError {
	var errs []ValidationError
	owners := make([]int, len(m.HalfEdges))
	for i, p := range m.Polygons {
		if p.EdgeCount < 3 {
			errs = append(errs, ValidationError{ElementPolygon, int32(i),
				fmt.Sprintf("has %d edges, need at least 3", p.EdgeCount)})
			continue
		}
		if !m.validEdgeRange(p) {
			errs = append(errs, ValidationError{ElementPolygon, int32(i),
				fmt.Sprintf("edge range [%d, %d) out of range", p.FirstEdge, p.FirstEdge+p.EdgeCount)})
			continue
		}
		for e := p.FirstEdge; e < p.FirstEdge+p.EdgeCount; e++ {
			owners[e]++
		}
	}
	for e, n := range owners {
		switch {
		case n == 0:
			errs = append(errs, ValidationError{ElementHalfEdge, int32(e), "not part of any polygon"})
		case n > 1:
			errs = append(errs, ValidationError{ElementHalfEdge, int32(e),
				fmt.Sprintf("shared by %d polygons", n)})
		}
	}
	return errs
}

func validateHalfEdges(m *Mesh) []ValidationError {
	var errs []ValidationError
	for i, he := range m.HalfEdges {
		e := int32(i)
		if !m.validVertex(he.VertexIndex) {
			errs = append(errs, ValidationError{ElementHalfEdge, e,
				fmt.Sprintf("vertex index %d out of range", he.VertexIndex)})
			continue
		}
		if he.TwinIndex < 0 || int(he.TwinIndex) >= len(m.HalfEdges) {
			errs = append(errs, ValidationError{ElementHalfEdge, e,
				fmt.Sprintf("twin index %d out of range", he.TwinIndex)})
			continue
		}
		if he.TwinIndex == e {
			errs = append(errs, ValidationError{ElementHalfEdge, e, "is its own twin"})
			continue
		}
		twin := m.HalfEdges[he.TwinIndex]
		if twin.TwinIndex != e {
			errs = append(errs, ValidationError{ElementHalfEdge, e,
				fmt.Sprintf("twin %d points back to %d", he.TwinIndex, twin.TwinIndex)})
			continue
		}
		from, to, ok := m.EdgeVertices(e)
		tFrom, tTo, tok := m.EdgeVertices(he.TwinIndex)
		if ok && tok && (from != tTo || to != tFrom) {
			errs = append(errs, ValidationError{ElementHalfEdge, e,
				fmt.Sprintf("runs %d->%d but twin %d runs %d->%d", from, to, he.TwinIndex, tFrom, tTo)})
		}
		if ok && tok && m.HalfEdgePolygonIndices[e] == m.HalfEdgePolygonIndices[he.TwinIndex] {
			errs = append(errs, ValidationError{ElementHalfEdge, e, "twin belongs to the same polygon"})
		}
	}
	return errs
}

func validateGeometry(m *Mesh) []ValidationError {
	var errs []ValidationError
	for i := range m.Polygons {
		plane := m.Planes[i]
		if IsZeroPlane(plane) {
			errs = append(errs, ValidationError{ElementPolygon, int32(i), "has zero area"})
			continue
		}
		worst := 0.0
		for _, p := range m.PolygonPoints(i) {
			worst = math.Max(worst, math.Abs(PlaneDistance(plane, p)))
		}
		if worst > FatPlaneWidthEpsilon {
			errs = append(errs, ValidationError{ElementPolygon, int32(i),
				fmt.Sprintf("is not planar, vertex off plane by %g", worst)})
			continue
		}
		for v, p := range m.Vertices {
			if d := PlaneDistance(plane, p); d > FatPlaneWidthEpsilon {
				errs = append(errs, ValidationError{ElementPolygon, int32(i),
					fmt.Sprintf("vertex %d lies %g in front of the plane, mesh is not convex", v, d)})
				break
			}
		}
	}
	return errs
}
