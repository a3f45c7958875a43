package kernel

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/routing"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshBounds(t *testing.T) {
	m := &Mesh{Vertices: []float32{0, 1, 2, -1, 4, 0.5}}
	b := m.Bounds()
	if b.Min != (mgl64.Vec3{-1, 1, 0.5}) || b.Max != (mgl64.Vec3{0, 4, 2}) {
		t.Errorf("Bounds() = %v, want min (-1 1 0.5) max (0 4 2)", b)
	}
	if (&Mesh{}).Bounds() != (brushmesh.AABB{}) {
		t.Error("Bounds() of empty mesh should be zero")
	}
}

// --- Combine against a recording stub kernel ---

// stubSolid is a named solid; combinations build a readable expression.
type stubSolid struct {
	name string
}

func (s *stubSolid) BoundingBox() brushmesh.AABB       { return brushmesh.AABB{} }
func (s *stubSolid) Contains(mgl64.Vec3, float64) bool { return false }

type stubKernel struct{}

func (k *stubKernel) Brush(m *brushmesh.Mesh) (Solid, error) {
	return &stubSolid{name: "brush"}, nil
}

func (k *stubKernel) Union(a, b Solid) Solid {
	return &stubSolid{name: "(" + name(a) + " | " + name(b) + ")"}
}

func (k *stubKernel) Difference(a, b Solid) Solid {
	return &stubSolid{name: "(" + name(a) + " - " + name(b) + ")"}
}

func (k *stubKernel) Intersection(a, b Solid) Solid {
	return &stubSolid{name: "(" + name(a) + " & " + name(b) + ")"}
}

func (k *stubKernel) Transform(s Solid, _ mgl64.Mat4) Solid { return s }

func (k *stubKernel) ToMesh(Solid, int) (*Mesh, error) {
	return &Mesh{}, nil
}

var _ Kernel = (*stubKernel)(nil)

func name(s Solid) string {
	if s == nil {
		return "empty"
	}
	return s.(*stubSolid).name
}

func TestCombine(t *testing.T) {
	a, b := &stubSolid{name: "a"}, &stubSolid{name: "b"}
	tests := []struct {
		name string
		op   routing.Operation
		acc  Solid
		s    Solid
		want string
	}{
		{"union", routing.Additive, a, b, "(a | b)"},
		{"keep inside unions", routing.AdditiveKeepInside, a, b, "(a | b)"},
		{"union into empty", routing.Additive, nil, b, "b"},
		{"union with empty", routing.Additive, a, nil, "a"},
		{"difference", routing.Subtractive, a, b, "(a - b)"},
		{"difference from empty", routing.Subtractive, nil, b, "empty"},
		{"difference of empty", routing.Subtractive, a, nil, "a"},
		{"intersection", routing.Intersecting, a, b, "(a & b)"},
		{"intersection with empty", routing.Intersecting, nil, b, "empty"},
		{"intersection of empty", routing.Intersecting, a, nil, "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Combine(&stubKernel{}, tt.op, tt.acc, tt.s)
			if err != nil {
				t.Fatalf("Combine() error = %v", err)
			}
			if name(got) != tt.want {
				t.Errorf("Combine() = %s, want %s", name(got), tt.want)
			}
		})
	}
}

func TestCombineInvalidOperation(t *testing.T) {
	if _, err := Combine(&stubKernel{}, routing.Operation(42), nil, nil); err == nil {
		t.Fatal("expected an error for an invalid operation")
	}
}
