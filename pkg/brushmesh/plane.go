package brushmesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CalculatePlanes derives the plane of every polygon from its vertex loop:
// the Newell normal, which tolerates slightly non-planar input, through the
// loop centroid. Polygons without a usable loop get a zero plane.
func (m *Mesh) CalculatePlanes() {
	m.Planes = make([]mgl64.Vec4, len(m.Polygons))
	for i := range m.Polygons {
		points := m.PolygonPoints(i)
		if len(points) < 3 {
			continue
		}
		normal, centroid := newell(points)
		if normal.Len() < DistanceEpsilon {
			continue
		}
		normal = normal.Normalize()
		m.Planes[i] = mgl64.Vec4{normal.X(), normal.Y(), normal.Z(), -normal.Dot(centroid)}
	}
}

// newell returns the unnormalized Newell normal and the centroid of a loop.
// The normal's length is twice the loop's area.
func newell(points []mgl64.Vec3) (normal, centroid mgl64.Vec3) {
	for i, cur := range points {
		next := points[(i+1)%len(points)]
		normal[0] += (cur.Y() - next.Y()) * (cur.Z() + next.Z())
		normal[1] += (cur.Z() - next.Z()) * (cur.X() + next.X())
		normal[2] += (cur.X() - next.X()) * (cur.Y() + next.Y())
		centroid = centroid.Add(cur)
	}
	return normal, centroid.Mul(1 / float64(len(points)))
}

// PolygonCentroid returns the average of polygon p's vertices.
func (m *Mesh) PolygonCentroid(p int) mgl64.Vec3 {
	points := m.PolygonPoints(p)
	if len(points) == 0 {
		return mgl64.Vec3{}
	}
	_, c := newell(points)
	return c
}

// PlaneNormal returns the normal part of a plane.
func PlaneNormal(plane mgl64.Vec4) mgl64.Vec3 {
	return plane.Vec3()
}

// PlaneDistance returns the signed distance of p from plane; negative is
// inside.
func PlaneDistance(plane mgl64.Vec4, p mgl64.Vec3) float64 {
	return plane.Vec3().Dot(p) + plane.W()
}

// IsZeroPlane reports whether plane has no usable normal.
func IsZeroPlane(plane mgl64.Vec4) bool {
	return plane.Vec3().Len() < DistanceEpsilon
}

// TransformPlane maps a plane through the point transform m using the
// inverse transpose, and renormalizes the result.
func TransformPlane(m mgl64.Mat4, plane mgl64.Vec4) mgl64.Vec4 {
	p := m.Inv().Transpose().Mul4x1(plane)
	l := p.Vec3().Len()
	if l < DistanceEpsilon || math.IsNaN(l) {
		return mgl64.Vec4{}
	}
	return p.Mul(1 / l)
}

// PlanesAligned reports whether two planes coincide with the same facing.
func PlanesAligned(a, b mgl64.Vec4) bool {
	return a.Vec3().Dot(b.Vec3()) >= NormalDotAlignEpsilon &&
		math.Abs(a.W()-b.W()) <= PlaneDAlignEpsilon
}

// PlanesReverseAligned reports whether two planes coincide with opposite
// facing.
func PlanesReverseAligned(a, b mgl64.Vec4) bool {
	return a.Vec3().Dot(b.Vec3()) <= -NormalDotAlignEpsilon &&
		math.Abs(a.W()+b.W()) <= PlaneDAlignEpsilon
}
