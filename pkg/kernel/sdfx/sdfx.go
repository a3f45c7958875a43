// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. A brush is the
// intersection of its half-spaces, evaluated as the largest signed plane
// distance.
package sdfx

import (
	"errors"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// ErrInvalidBrush is returned for meshes that fail validation.
var ErrInvalidBrush = errors.New("sdfx: invalid brush mesh")

func toV3(p mgl64.Vec3) v3.Vec {
	return v3.Vec{X: p.X(), Y: p.Y(), Z: p.Z()}
}

func fromV3(p v3.Vec) mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y, p.Z}
}

func toBox3(b brushmesh.AABB) sdf.Box3 {
	return sdf.Box3{Min: toV3(b.Min), Max: toV3(b.Max)}
}

// brushSDF is a convex brush in its local space.
type brushSDF struct {
	planes []mgl64.Vec4
	bb     sdf.Box3
}

func (b *brushSDF) Evaluate(p v3.Vec) float64 {
	q := fromV3(p)
	d := math.Inf(-1)
	for _, pl := range b.planes {
		d = math.Max(d, brushmesh.PlaneDistance(pl, q))
	}
	return d
}

func (b *brushSDF) BoundingBox() sdf.Box3 {
	return b.bb
}

// transformedSDF places an SDF with a rigid transform, so distances are
// preserved.
type transformedSDF struct {
	inner   sdf.SDF3
	inverse mgl64.Mat4
	bb      sdf.Box3
}

func (t *transformedSDF) Evaluate(p v3.Vec) float64 {
	return t.inner.Evaluate(toV3(mgl64.TransformCoordinate(fromV3(p), t.inverse)))
}

func (t *transformedSDF) BoundingBox() sdf.Box3 {
	return t.bb
}

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() brushmesh.AABB {
	bb := s.s.BoundingBox()
	return brushmesh.AABB{Min: fromV3(bb.Min), Max: fromV3(bb.Max)}
}

// Contains reports whether the signed distance at p is below -eps.
func (s *sdfxSolid) Contains(p mgl64.Vec3, eps float64) bool {
	return s.s.Evaluate(toV3(p)) < -eps
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Brush returns the solid bounded by m's planes.
func (k *SdfxKernel) Brush(m *brushmesh.Mesh) (kernel.Solid, error) {
	if m == nil || !m.IsValid() {
		return nil, ErrInvalidBrush
	}
	return wrap(&brushSDF{
		planes: append([]mgl64.Vec4(nil), m.Planes...),
		bb:     toBox3(m.Bounds),
	}), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Transform places s with the rigid transform m.
func (k *SdfxKernel) Transform(s kernel.Solid, m mgl64.Mat4) kernel.Solid {
	inner := unwrap(s)
	return wrap(&transformedSDF{
		inner:   inner,
		inverse: m.Inv(),
		bb:      toBox3(brushmesh.TransformAABB(m, s.BoundingBox())),
	})
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid, cells int) (*kernel.Mesh, error) {
	if cells <= 0 {
		cells = defaultMeshCells
	}
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
