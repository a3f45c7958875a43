package brushmesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl64.Vec3
}

// CalculateBounds recomputes Bounds from the vertices. A mesh without
// vertices gets the zero box.
func (m *Mesh) CalculateBounds() {
	m.Bounds = BoundsOf(m.Vertices)
}

// BoundsOf returns the box enclosing points.
func BoundsOf(points []mgl64.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	box := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box = box.Extend(p)
	}
	return box
}

// Extend returns the box grown to include p.
func (b AABB) Extend(p mgl64.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

// Union returns the box enclosing both boxes.
func (b AABB) Union(o AABB) AABB {
	return b.Extend(o.Min).Extend(o.Max)
}

// Intersects reports whether the boxes overlap once each is grown by eps.
// Touching boxes intersect.
func (b AABB) Intersects(o AABB, eps float64) bool {
	for i := 0; i < 3; i++ {
		if b.Max[i]+eps < o.Min[i] || o.Max[i]+eps < b.Min[i] {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether p lies in the box grown by eps.
func (b AABB) ContainsPoint(p mgl64.Vec3, eps float64) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i]-eps || p[i] > b.Max[i]+eps {
			return false
		}
	}
	return true
}

// Size returns the extent of the box along each axis.
func (b AABB) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Corners returns the eight corners; corner i takes Max on axis k when bit
// k of i is set.
func (b AABB) Corners() [8]mgl64.Vec3 {
	var out [8]mgl64.Vec3
	for i := range out {
		for k := 0; k < 3; k++ {
			if i&(1<<k) != 0 {
				out[i][k] = b.Max[k]
			} else {
				out[i][k] = b.Min[k]
			}
		}
	}
	return out
}

// TransformAABB returns the box enclosing box after transformation by m.
func TransformAABB(m mgl64.Mat4, box AABB) AABB {
	corners := box.Corners()
	for i := range corners {
		corners[i] = mgl64.TransformCoordinate(corners[i], m)
	}
	return BoundsOf(corners[:])
}
