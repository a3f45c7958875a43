// Package preview walks an operation tree and builds the solid it
// describes with a geometry kernel. The solid is what a viewer shows and
// what categorization results are checked against.
package preview

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/hierarchy"
	"github.com/radicalcsg/chisel/pkg/kernel"
)

// Tree is the read-only view of an operation tree the walker needs.
// *hierarchy.Hierarchy implements it.
type Tree interface {
	Root() hierarchy.NodeID
	Node(id hierarchy.NodeID) (hierarchy.Node, bool)
	Children(id hierarchy.NodeID) []hierarchy.NodeID
}

// Meshes resolves the mesh hashes of brush nodes. *brushmesh.Registry
// implements it.
type Meshes interface {
	Get(hash uint64) (*brushmesh.Mesh, bool)
}

// transformStack accumulates local transforms during tree traversal.
type transformStack struct {
	stack []mgl64.Mat4
}

func newTransformStack() *transformStack {
	return &transformStack{stack: []mgl64.Mat4{mgl64.Ident4()}}
}

// push enters a node: its local transform applies after its parent's.
func (ts *transformStack) push(local mgl64.Mat4) {
	ts.stack = append(ts.stack, ts.current().Mul4(local))
}

func (ts *transformStack) pop() {
	if len(ts.stack) > 1 {
		ts.stack = ts.stack[:len(ts.stack)-1]
	}
}

// current returns the transform from the entered node to tree space.
func (ts *transformStack) current() mgl64.Mat4 {
	return ts.stack[len(ts.stack)-1]
}

// Solid walks the tree under the root and returns the solid it describes,
// nil when it is empty. Brushes with a missing or invalid mesh are left out
// as if they were not in the tree. The walker never mutates the tree.
func Solid(t Tree, meshes Meshes, k kernel.Kernel) (kernel.Solid, error) {
	s, _, err := walkNode(t, meshes, k, t.Root(), newTransformStack())
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	return s, nil
}

// Tessellate returns the triangle mesh of the whole tree. An empty tree
// gives an empty mesh.
func Tessellate(t Tree, meshes Meshes, k kernel.Kernel, cells int) (*kernel.Mesh, error) {
	s, err := Solid(t, meshes, k)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return &kernel.Mesh{Label: t.Root().String()}, nil
	}
	mesh, err := k.ToMesh(s, cells)
	if err != nil {
		return nil, fmt.Errorf("preview: ToMesh failed for tree %s: %w", t.Root(), err)
	}
	mesh.Label = t.Root().String()
	return mesh, nil
}

// Brushes returns one mesh per brush under the root, each placed in tree
// space and labelled with its node ID.
func Brushes(t Tree, meshes Meshes, k kernel.Kernel, cells int) ([]*kernel.Mesh, error) {
	var out []*kernel.Mesh
	ts := newTransformStack()
	var visit func(id hierarchy.NodeID) error
	visit = func(id hierarchy.NodeID) error {
		n, ok := t.Node(id)
		if !ok {
			return fmt.Errorf("node %s: %w", id, hierarchy.ErrInvalidNode)
		}
		ts.push(n.LocalTransform)
		defer ts.pop()

		if n.Kind == hierarchy.Brush {
			s, ok, err := brushSolid(meshes, k, n, ts)
			if err != nil || !ok {
				return err
			}
			mesh, err := k.ToMesh(s, cells)
			if err != nil {
				return fmt.Errorf("ToMesh failed for brush %s: %w", id, err)
			}
			mesh.Label = id.String()
			out = append(out, mesh)
			return nil
		}
		for _, child := range t.Children(id) {
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(t.Root()); err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	return out, nil
}

// walkNode returns the solid of the subtree at id. present is false for
// brushes that take no part in the composition.
func walkNode(t Tree, meshes Meshes, k kernel.Kernel, id hierarchy.NodeID, ts *transformStack) (s kernel.Solid, present bool, err error) {
	n, ok := t.Node(id)
	if !ok {
		return nil, false, fmt.Errorf("node %s: %w", id, hierarchy.ErrInvalidNode)
	}
	ts.push(n.LocalTransform)
	defer ts.pop()

	switch n.Kind {
	case hierarchy.Brush:
		return brushSolid(meshes, k, n, ts)
	case hierarchy.Branch:
		return handleBranch(t, meshes, k, id, ts)
	default:
		return nil, false, fmt.Errorf("node %s has unknown kind %v", id, n.Kind)
	}
}

// brushSolid places the brush's mesh in tree space.
func brushSolid(meshes Meshes, k kernel.Kernel, n hierarchy.Node, ts *transformStack) (kernel.Solid, bool, error) {
	mesh, ok := meshes.Get(n.MeshHash)
	if !ok || !mesh.IsValid() {
		return nil, false, nil
	}
	s, err := k.Brush(mesh)
	if err != nil {
		return nil, false, err
	}
	return k.Transform(s, ts.current()), true, nil
}

// handleBranch folds the children in order, starting from the empty set.
func handleBranch(t Tree, meshes Meshes, k kernel.Kernel, id hierarchy.NodeID, ts *transformStack) (kernel.Solid, bool, error) {
	var acc kernel.Solid
	for _, child := range t.Children(id) {
		s, present, err := walkNode(t, meshes, k, child, ts)
		if err != nil {
			return nil, false, err
		}
		if !present {
			continue
		}
		n, _ := t.Node(child)
		acc, err = kernel.Combine(k, n.Operation, acc, s)
		if err != nil {
			return nil, false, fmt.Errorf("node %s: %w", child, err)
		}
	}
	return acc, true, nil
}
