package hierarchy

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"

	"github.com/radicalcsg/chisel/pkg/routing"
)

// Node returns the payload of id.
func (h *Hierarchy) Node(id NodeID) (Node, bool) {
	pos, ok := h.position(id)
	if !ok {
		return Node{}, false
	}
	return h.nodes[pos].payload, true
}

// Parent returns the parent of id; the zero NodeID for the root and for
// detached nodes.
func (h *Hierarchy) Parent(id NodeID) (NodeID, bool) {
	pos, ok := h.position(id)
	if !ok {
		return NodeID{}, false
	}
	return h.nodes[pos].parent, true
}

// Children returns the children of id in order.
func (h *Hierarchy) Children(id NodeID) []NodeID {
	pos, ok := h.position(id)
	if !ok || h.nodes[pos].childCount == 0 {
		return nil
	}
	return lo.Map(h.children(pos), func(e entry, _ int) NodeID { return e.id })
}

// ChildCount returns the number of children of id.
func (h *Hierarchy) ChildCount(id NodeID) int {
	pos, ok := h.position(id)
	if !ok {
		return 0
	}
	return int(h.nodes[pos].childCount)
}

// IsAttached reports whether id is the root or reachable from it.
func (h *Hierarchy) IsAttached(id NodeID) bool {
	if !h.IsValidCompactNodeID(id) {
		return false
	}
	return h.isAncestorOrSelf(h.root, id)
}

// TopLevel returns the root followed by every detached node.
func (h *Hierarchy) TopLevel() []NodeID {
	out := []NodeID{h.root}
	for _, e := range h.nodes {
		if !e.isHole() && e.parent.IsZero() && e.id != h.root {
			out = append(out, e.id)
		}
	}
	return out
}

func (h *Hierarchy) update(id NodeID, fn func(*Node) error) error {
	pos, ok := h.position(id)
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrInvalidNode)
	}
	payload := h.nodes[pos].payload
	if err := fn(&payload); err != nil {
		return err
	}
	h.nodes[pos].payload = payload
	h.version++
	return nil
}

// SetOperation changes the operation of id.
func (h *Hierarchy) SetOperation(id NodeID, op routing.Operation) error {
	return h.update(id, func(n *Node) error {
		if !op.Valid() {
			return fmt.Errorf("%w: %v", ErrInvalidOperation, op)
		}
		n.Operation = op
		return nil
	})
}

// SetLocalTransform changes the transform of id relative to its parent.
func (h *Hierarchy) SetLocalTransform(id NodeID, m mgl64.Mat4) error {
	return h.update(id, func(n *Node) error {
		n.LocalTransform = m
		return nil
	})
}

// SetMesh changes the mesh of the brush id.
func (h *Hierarchy) SetMesh(id NodeID, hash uint64) error {
	return h.update(id, func(n *Node) error {
		if n.Kind != Brush {
			return fmt.Errorf("set mesh on %s: %w", id, ErrNotBrush)
		}
		n.MeshHash = hash
		return nil
	})
}

// TreeTransform returns the transform from the local space of id to the
// space of its top-level ancestor: the product of the local transforms from
// that ancestor down to id.
func (h *Hierarchy) TreeTransform(id NodeID) (mgl64.Mat4, bool) {
	pos, ok := h.position(id)
	if !ok {
		return mgl64.Ident4(), false
	}
	m := h.nodes[pos].payload.LocalTransform
	for parent := h.nodes[pos].parent; !parent.IsZero(); {
		ppos, ok := h.position(parent)
		if !ok {
			return mgl64.Ident4(), false
		}
		m = h.nodes[ppos].payload.LocalTransform.Mul4(m)
		parent = h.nodes[ppos].parent
	}
	return m, true
}

// Walk visits the tree under the root depth first, parents before
// children. Returning false from fn skips the node's subtree.
func (h *Hierarchy) Walk(fn func(id NodeID, n Node, depth int) bool) {
	pos, _ := h.position(h.root)
	h.walk(pos, 0, fn)
}

func (h *Hierarchy) walk(pos int32, depth int, fn func(NodeID, Node, int) bool) {
	e := h.nodes[pos]
	if !fn(e.id, e.payload, depth) {
		return
	}
	for i := e.childOffset; i < e.childOffset+e.childCount; i++ {
		h.walk(i, depth+1, fn)
	}
}

// Brushes returns every brush reachable from the root in depth-first order,
// numbered by that order. Detached subtrees are not included.
func (h *Hierarchy) Brushes() []IndexOrder {
	var out []IndexOrder
	h.Walk(func(id NodeID, n Node, _ int) bool {
		if n.Kind == Brush {
			out = append(out, IndexOrder{ID: id, Order: int32(len(out))})
		}
		return true
	})
	return out
}

// Levels returns the branches reachable from the root grouped by depth; the
// root alone forms level 0.
func (h *Hierarchy) Levels() [][]NodeID {
	var levels [][]NodeID
	h.Walk(func(id NodeID, n Node, depth int) bool {
		if n.Kind != Branch {
			return true
		}
		for len(levels) <= depth {
			levels = append(levels, nil)
		}
		levels[depth] = append(levels[depth], id)
		return true
	})
	return levels
}
