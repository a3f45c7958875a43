// Package kernel defines the solid modeling backend used to preview an
// operation tree and to cross-check categorization against an independent
// inside/outside test.
package kernel

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
)

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounds.
	BoundingBox() brushmesh.AABB
	// Contains reports whether p is strictly inside the solid, farther than
	// eps from its surface.
	Contains(p mgl64.Vec3, eps float64) bool
}

// Kernel builds solids from brushes and combines them.
type Kernel interface {
	// Brush returns the convex solid bounded by the mesh's planes, in the
	// mesh's local space.
	Brush(m *brushmesh.Mesh) (Solid, error)

	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transform maps s through a rigid transform.
	Transform(s Solid, m mgl64.Mat4) Solid

	// ToMesh triangulates s on a grid of the given number of cells along
	// the longest side; zero picks the kernel's default.
	ToMesh(s Solid, cells int) (*Mesh, error)
}
