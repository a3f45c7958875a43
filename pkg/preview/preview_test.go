package preview_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/engine"
	"github.com/radicalcsg/chisel/pkg/hierarchy"
	"github.com/radicalcsg/chisel/pkg/kernel"
	"github.com/radicalcsg/chisel/pkg/kernel/sdfx"
	"github.com/radicalcsg/chisel/pkg/preview"
	"github.com/radicalcsg/chisel/pkg/routing"
)

const testCells = 24

// newKernel returns a fresh sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New()
}

// brushSpec places a cube of the given size.
type brushSpec struct {
	size   float64
	offset mgl64.Vec3
	op     routing.Operation
}

// buildTree puts the brushes under the root of a fresh hierarchy.
func buildTree(t *testing.T, brushes ...brushSpec) (*hierarchy.Hierarchy, *brushmesh.Registry, []hierarchy.NodeID) {
	t.Helper()
	h := hierarchy.New()
	reg := brushmesh.NewRegistry()
	var ids []hierarchy.NodeID
	for _, b := range brushes {
		hash := reg.Add(brushmesh.NewCube(b.size))
		id, err := h.CreateNode(h.Root(), hierarchy.BrushNode(b.op, hash, mgl64.Translate3D(b.offset.X(), b.offset.Y(), b.offset.Z())))
		if err != nil {
			t.Fatalf("CreateNode failed: %v", err)
		}
		ids = append(ids, id)
	}
	return h, reg, ids
}

func TestEmptyTree(t *testing.T) {
	h := hierarchy.New()
	s, err := preview.Solid(h, brushmesh.NewRegistry(), newKernel())
	if err != nil {
		t.Fatalf("Solid failed: %v", err)
	}
	if s != nil {
		t.Fatal("expected an empty solid")
	}

	mesh, err := preview.Tessellate(h, brushmesh.NewRegistry(), newKernel(), testCells)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if !mesh.IsEmpty() {
		t.Error("expected an empty mesh")
	}
}

func TestSingleBrush(t *testing.T) {
	h, reg, _ := buildTree(t, brushSpec{size: 1, offset: mgl64.Vec3{2, 0, 0}, op: routing.Additive})
	mesh, err := preview.Tessellate(h, reg, newKernel(), testCells)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if mesh.Label != h.Root().String() {
		t.Errorf("Label = %q, want %q", mesh.Label, h.Root().String())
	}
	b := mesh.Bounds()
	if b.Min.X() < 1.9 || b.Max.X() > 3.1 {
		t.Errorf("mesh x range [%f, %f], want about [2, 3]", b.Min.X(), b.Max.X())
	}
}

func TestNestedTransforms(t *testing.T) {
	h := hierarchy.New()
	reg := brushmesh.NewRegistry()
	hash := reg.Add(brushmesh.NewCube(1))

	group := hierarchy.BranchNode(routing.Additive)
	group.LocalTransform = mgl64.Translate3D(10, 0, 0)
	g, err := h.CreateNode(h.Root(), group)
	if err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	if _, err := h.CreateNode(g, hierarchy.BrushNode(routing.Additive, hash, mgl64.Translate3D(0, 5, 0))); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}

	s, err := preview.Solid(h, reg, newKernel())
	if err != nil {
		t.Fatalf("Solid failed: %v", err)
	}
	if !s.Contains(mgl64.Vec3{10.5, 5.5, 0.5}, 0.001) {
		t.Error("brush should be placed at (10, 5, 0)")
	}
	if s.Contains(mgl64.Vec3{0.5, 0.5, 0.5}, 0.001) {
		t.Error("brush should not be at the origin")
	}
}

func TestBrushesOnePerBrush(t *testing.T) {
	h, reg, ids := buildTree(t,
		brushSpec{size: 1, op: routing.Additive},
		brushSpec{size: 1, offset: mgl64.Vec3{0.5, 0, 0}, op: routing.Subtractive},
	)
	// A brush without a registered mesh is skipped.
	if _, err := h.CreateNode(h.Root(), hierarchy.BrushNode(routing.Additive, 1234, mgl64.Ident4())); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}

	meshes, err := preview.Brushes(h, reg, newKernel(), testCells)
	if err != nil {
		t.Fatalf("Brushes failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	for i, m := range meshes {
		if m.Label != ids[i].String() {
			t.Errorf("mesh %d label = %q, want %q", i, m.Label, ids[i].String())
		}
		if m.IsEmpty() {
			t.Errorf("mesh %d is empty", i)
		}
	}
}

func TestMissingMeshesTakeNoPart(t *testing.T) {
	h, reg, _ := buildTree(t, brushSpec{size: 1, op: routing.Additive})
	// Intersecting with a brush that has no mesh must not empty the tree.
	if _, err := h.CreateNode(h.Root(), hierarchy.BrushNode(routing.Intersecting, 1234, mgl64.Ident4())); err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	s, err := preview.Solid(h, reg, newKernel())
	if err != nil {
		t.Fatalf("Solid failed: %v", err)
	}
	if s == nil || !s.Contains(mgl64.Vec3{0.5, 0.5, 0.5}, 0.001) {
		t.Fatal("the remaining brush should survive")
	}
}

// TestCategoriesAgreeWithSolid checks the engine's fragment categories
// against the kernel: a visible fragment has the solid on exactly one
// side, on the side its category says, and a hidden fragment has the same
// on both sides.
func TestCategoriesAgreeWithSolid(t *testing.T) {
	xFacesOnly := func(f engine.SurfaceFragment) bool {
		return f.Polygon == brushmesh.BoxNegX || f.Polygon == brushmesh.BoxPosX
	}
	tests := []struct {
		name    string
		brushes []brushSpec
		check   func(engine.SurfaceFragment) bool
	}{
		{
			name: "union",
			brushes: []brushSpec{
				{size: 1, op: routing.Additive},
				{size: 1, offset: mgl64.Vec3{0.5, 0, 0}, op: routing.Additive},
			},
		},
		{
			name: "cavity",
			brushes: []brushSpec{
				{size: 1, op: routing.Additive},
				{size: 0.5, offset: mgl64.Vec3{0.25, 0.25, 0.25}, op: routing.Subtractive},
			},
		},
		{
			// The other faces straddle the result's boundary and are only
			// resolved once they are clipped.
			name: "intersection",
			brushes: []brushSpec{
				{size: 1, op: routing.Additive},
				{size: 1, offset: mgl64.Vec3{0.5, 0, 0}, op: routing.Intersecting},
			},
			check: xFacesOnly,
		},
	}

	const (
		step = 0.02
		eps  = 0.001
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := engine.New(engine.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
			for _, b := range tt.brushes {
				hash := e.AddMesh(brushmesh.NewCube(b.size))
				err := e.Edit(func(h *hierarchy.Hierarchy) error {
					_, err := h.CreateNode(h.Root(), hierarchy.BrushNode(b.op, hash, mgl64.Translate3D(b.offset.X(), b.offset.Y(), b.offset.Z())))
					return err
				})
				if err != nil {
					t.Fatalf("Edit failed: %v", err)
				}
			}
			res, err := e.Update(context.Background())
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}

			var solid kernel.Solid
			e.View(func(h *hierarchy.Hierarchy) {
				solid, err = preview.Solid(h, e.Meshes(), newKernel())
			})
			if err != nil {
				t.Fatalf("Solid failed: %v", err)
			}

			checked := 0
			for _, f := range res.Fragments {
				if tt.check != nil && !tt.check(f) {
					continue
				}
				var c mgl64.Vec3
				for _, v := range f.Vertices {
					c = c.Add(v)
				}
				c = c.Mul(1 / float64(len(f.Vertices)))
				n := brushmesh.PlaneNormal(f.Plane)
				front := solid.Contains(c.Add(n.Mul(step)), eps)
				back := solid.Contains(c.Sub(n.Mul(step)), eps)

				var ok bool
				switch f.Category {
				case routing.SelfAligned:
					ok = back && !front
				case routing.SelfReverseAligned:
					ok = front && !back
				default:
					ok = front == back
				}
				if !ok {
					t.Errorf("brush %v polygon %d: category %v but solid in front %v, behind %v",
						f.Brush, f.Polygon, f.Category, front, back)
				}
				checked++
			}
			if checked == 0 {
				t.Fatal("no fragments checked")
			}
		})
	}
}
