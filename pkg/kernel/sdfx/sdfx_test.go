package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/kernel"
)

// testCells keeps marching cubes fast in tests.
const testCells = 24

func cube(t *testing.T, k *SdfxKernel, size float64, offset mgl64.Vec3) kernel.Solid {
	t.Helper()
	s, err := k.Brush(brushmesh.NewCube(size))
	if err != nil {
		t.Fatalf("Brush failed: %v", err)
	}
	return k.Transform(s, mgl64.Translate3D(offset.X(), offset.Y(), offset.Z()))
}

func TestBrush(t *testing.T) {
	k := New()
	box := cube(t, k, 1, mgl64.Vec3{})
	mesh, err := k.ToMesh(box, testCells)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}

	// The surface stays within a cell of the brush.
	b := mesh.Bounds()
	cell := 1.0 / testCells * 2
	for i := 0; i < 3; i++ {
		if math.Abs(b.Min[i]) > cell || math.Abs(b.Max[i]-1) > cell {
			t.Errorf("mesh bounds %v far from the unit cube", b)
		}
	}
}

func TestBrushRejectsInvalidMesh(t *testing.T) {
	k := New()
	flat := brushmesh.NewBox(mgl64.Vec3{}, mgl64.Vec3{1, 0, 1}, brushmesh.SurfaceTag{})
	if _, err := k.Brush(flat); !errors.Is(err, ErrInvalidBrush) {
		t.Fatalf("Brush(flat) error = %v, want ErrInvalidBrush", err)
	}
	if _, err := k.Brush(nil); !errors.Is(err, ErrInvalidBrush) {
		t.Fatalf("Brush(nil) error = %v, want ErrInvalidBrush", err)
	}
}

func TestContains(t *testing.T) {
	k := New()
	box := cube(t, k, 1, mgl64.Vec3{2, 0, 0})

	tests := []struct {
		name string
		p    mgl64.Vec3
		want bool
	}{
		{"center", mgl64.Vec3{2.5, 0.5, 0.5}, true},
		{"near face inside", mgl64.Vec3{2.99, 0.5, 0.5}, true},
		{"on face", mgl64.Vec3{3, 0.5, 0.5}, false},
		{"outside", mgl64.Vec3{3.01, 0.5, 0.5}, false},
		{"untranslated position", mgl64.Vec3{0.5, 0.5, 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Contains(tt.p, 0.001); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestTransformBoundingBox(t *testing.T) {
	k := New()
	box := cube(t, k, 10, mgl64.Vec3{100, 200, 300})
	b := box.BoundingBox()

	const tol = 1e-9
	expectMin := mgl64.Vec3{100, 200, 300}
	expectMax := mgl64.Vec3{110, 210, 310}
	for i := 0; i < 3; i++ {
		if math.Abs(b.Min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, b.Min[i], expectMin[i])
		}
		if math.Abs(b.Max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, b.Max[i], expectMax[i])
		}
	}
}

func TestRotate(t *testing.T) {
	k := New()
	s, err := k.Brush(brushmesh.NewBox(mgl64.Vec3{}, mgl64.Vec3{10, 1, 1}, brushmesh.SurfaceTag{}))
	if err != nil {
		t.Fatalf("Brush failed: %v", err)
	}

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	rotated := k.Transform(s, mgl64.HomogRotate3DZ(math.Pi/2))
	b := rotated.BoundingBox()
	size := b.Size()

	const tol = 1e-6
	if math.Abs(size.X()-1) > tol {
		t.Errorf("rotated X extent = %f, expected 1", size.X())
	}
	if math.Abs(size.Y()-10) > tol {
		t.Errorf("rotated Y extent = %f, expected 10", size.Y())
	}
	if !rotated.Contains(mgl64.Vec3{-0.5, 5, 0.5}, 0.001) {
		t.Error("rotated box should contain (-0.5, 5, 0.5)")
	}
}

func TestBooleans(t *testing.T) {
	k := New()
	a := cube(t, k, 1, mgl64.Vec3{})
	b := cube(t, k, 1, mgl64.Vec3{0.5, 0, 0})

	left := mgl64.Vec3{0.25, 0.5, 0.5}
	middle := mgl64.Vec3{0.75, 0.5, 0.5}
	right := mgl64.Vec3{1.25, 0.5, 0.5}

	tests := []struct {
		name  string
		solid kernel.Solid
		want  [3]bool
	}{
		{"union", k.Union(a, b), [3]bool{true, true, true}},
		{"difference", k.Difference(a, b), [3]bool{true, false, false}},
		{"intersection", k.Intersection(a, b), [3]bool{false, true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, p := range []mgl64.Vec3{left, middle, right} {
				if got := tt.solid.Contains(p, 0.001); got != tt.want[i] {
					t.Errorf("Contains(%v) = %v, want %v", p, got, tt.want[i])
				}
			}
			mesh, err := k.ToMesh(tt.solid, testCells)
			if err != nil {
				t.Fatalf("ToMesh failed: %v", err)
			}
			if mesh.IsEmpty() {
				t.Fatal("mesh is empty")
			}
		})
	}
}

func TestDifferenceAddsCavity(t *testing.T) {
	k := New()
	outer := cube(t, k, 1, mgl64.Vec3{})
	outerMesh, err := k.ToMesh(outer, testCells)
	if err != nil {
		t.Fatalf("ToMesh(outer) failed: %v", err)
	}

	inner := cube(t, k, 0.5, mgl64.Vec3{0.25, 0.25, 0.25})
	diff := k.Difference(outer, inner)
	diffMesh, err := k.ToMesh(diff, testCells)
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	// A box with a cavity has more triangles than a plain box.
	if diffMesh.TriangleCount() <= outerMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), outerMesh.TriangleCount())
	}
	if diff.Contains(mgl64.Vec3{0.5, 0.5, 0.5}, 0.001) {
		t.Error("cavity center should not be inside")
	}
	if !diff.Contains(mgl64.Vec3{0.1, 0.5, 0.5}, 0.001) {
		t.Error("wall should be inside")
	}
}
