package intersect

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
)

// IntersectionType is the coarse relation between brush A and brush B.
type IntersectionType uint8

const (
	NoIntersection IntersectionType = iota
	Intersection
	AInsideB
	BInsideA
)

func (t IntersectionType) String() string {
	switch t {
	case NoIntersection:
		return "none"
	case Intersection:
		return "intersection"
	case AInsideB:
		return "a-inside-b"
	case BInsideA:
		return "b-inside-a"
	default:
		return fmt.Sprintf("IntersectionType(%d)", int(t))
	}
}

// Flip returns the relation seen with A and B swapped.
func (t IntersectionType) Flip() IntersectionType {
	switch t {
	case AInsideB:
		return BInsideA
	case BInsideA:
		return AInsideB
	default:
		return t
	}
}

// BrushPair names two brushes by processing order.
type BrushPair struct {
	A, B int32
	Type IntersectionType
}

// Flip swaps the two brushes.
func (p BrushPair) Flip() BrushPair {
	return BrushPair{A: p.B, B: p.A, Type: p.Type.Flip()}
}

// Normalized returns the pair with A < B.
func (p BrushPair) Normalized() BrushPair {
	if p.A > p.B {
		return p.Flip()
	}
	return p
}

// BrushInput is one brush as seen by the pair stage: its mesh and the
// transforms between its local space and tree space.
type BrushInput struct {
	Order     int32
	Mesh      *brushmesh.Mesh
	Transform mgl64.Mat4 // local to tree
	Inverse   mgl64.Mat4 // tree to local
	Bounds    brushmesh.AABB
}

// NewBrushInput derives the inverse transform and the tree-space bounds.
func NewBrushInput(order int32, mesh *brushmesh.Mesh, transform mgl64.Mat4) BrushInput {
	return BrushInput{
		Order:     order,
		Mesh:      mesh,
		Transform: transform,
		Inverse:   transform.Inv(),
		Bounds:    brushmesh.TransformAABB(transform, mesh.Bounds),
	}
}

// toLocal returns the transform from other's local space into b's.
func (b BrushInput) toLocal(other BrushInput) mgl64.Mat4 {
	return b.Inverse.Mul4(other.Transform)
}
