package hierarchy

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/radicalcsg/chisel/pkg/routing"
)

// slot is one arena entry. position is the node's index in the flat array,
// or -1 while the slot is free.
type slot struct {
	generation uint32
	position   int32
}

// entry is one element of the flat node array. A zero id marks a hole.
type entry struct {
	id          NodeID
	parent      NodeID
	payload     Node
	childOffset int32
	childCount  int32
}

func (e entry) isHole() bool {
	return e.id.IsZero()
}

// Hierarchy is the operation tree.
type Hierarchy struct {
	slots []slot
	free  []int32
	nodes []entry
	root  NodeID
	live  int

	version       uint64
	layoutVersion uint64
}

// New returns a hierarchy holding only the root branch, which is additive
// and can be neither deleted nor detached.
func New() *Hierarchy {
	h := &Hierarchy{}
	h.root = h.alloc()
	h.nodes = append(h.nodes, entry{id: h.root, payload: BranchNode(routing.Additive)})
	h.slots[h.root.Index].position = 0
	h.live = 1
	return h
}

// Root returns the root identity.
func (h *Hierarchy) Root() NodeID {
	return h.root
}

// Len returns the number of live nodes, the root included.
func (h *Hierarchy) Len() int {
	return h.live
}

// Version increments on every successful edit.
func (h *Hierarchy) Version() uint64 {
	return h.version
}

// LayoutVersion increments whenever Compact moves nodes.
func (h *Hierarchy) LayoutVersion() uint64 {
	return h.layoutVersion
}

// IsValidCompactNodeID reports whether id refers to a live node.
func (h *Hierarchy) IsValidCompactNodeID(id NodeID) bool {
	_, ok := h.position(id)
	return ok
}

func (h *Hierarchy) position(id NodeID) (int32, bool) {
	if id.Index < 0 || int(id.Index) >= len(h.slots) || id.Generation == 0 {
		return -1, false
	}
	s := h.slots[id.Index]
	if s.generation != id.Generation || s.position < 0 {
		return -1, false
	}
	return s.position, true
}

func (h *Hierarchy) alloc() NodeID {
	if n := len(h.free); n > 0 {
		idx := h.free[n-1]
		h.free = h.free[:n-1]
		return NodeID{Index: idx, Generation: h.slots[idx].generation}
	}
	h.slots = append(h.slots, slot{generation: 1, position: -1})
	return NodeID{Index: int32(len(h.slots) - 1), Generation: 1}
}

// release frees the slot of id. The generation is bumped immediately so
// every copy of id turns stale.
func (h *Hierarchy) release(id NodeID) {
	s := &h.slots[id.Index]
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	s.position = -1
	h.free = append(h.free, id.Index)
	h.live--
}

// children returns a copy of the child block of the node at pos.
func (h *Hierarchy) children(pos int32) []entry {
	e := h.nodes[pos]
	out := make([]entry, e.childCount)
	copy(out, h.nodes[e.childOffset:e.childOffset+e.childCount])
	return out
}

// vacate turns pos into a hole.
func (h *Hierarchy) vacate(pos int32) {
	h.nodes[pos] = entry{}
}

// room returns how many entries a block starting at off can hold without
// moving: its current entries plus the holes behind it, unbounded at the
// tail of the array.
func (h *Hierarchy) room(off, count int32) int {
	end := int(off + count)
	for end < len(h.nodes) && h.nodes[end].isHole() {
		end++
	}
	if end == len(h.nodes) {
		return math.MaxInt
	}
	return end - int(off)
}

// placeChildren stores entries as the child block of the node at
// parentPos. The block keeps its offset when the holes behind it leave
// enough room and is relocated to the tail otherwise; positions it vacates
// become holes. Callers vacate the previous positions of entries that come
// from elsewhere before calling.
func (h *Hierarchy) placeChildren(parentPos int32, entries []entry) {
	parent := h.nodes[parentPos]
	for i := parent.childOffset; i < parent.childOffset+parent.childCount; i++ {
		h.vacate(i)
	}

	off := parent.childOffset
	if parent.childCount == 0 || h.room(off, 0) < len(entries) {
		off = int32(len(h.nodes))
	}
	for int(off)+len(entries) > len(h.nodes) {
		h.nodes = append(h.nodes, entry{})
	}
	for i, e := range entries {
		pos := off + int32(i)
		h.nodes[pos] = e
		h.slots[e.id.Index].position = pos
	}

	if len(entries) == 0 {
		off = 0
	}
	h.nodes[parentPos].childOffset = off
	h.nodes[parentPos].childCount = int32(len(entries))
	h.trimTail()
}

// appendTopLevel stores e as a node without parent at the tail.
func (h *Hierarchy) appendTopLevel(e entry) {
	e.parent = NodeID{}
	h.nodes = append(h.nodes, e)
	h.slots[e.id.Index].position = int32(len(h.nodes) - 1)
}

func (h *Hierarchy) trimTail() {
	n := len(h.nodes)
	for n > 0 && h.nodes[n-1].isHole() {
		n--
	}
	h.nodes = h.nodes[:n]
}

// indexInParent returns the index of the node at pos among its siblings.
func (h *Hierarchy) indexInParent(pos int32) (parentPos, index int32, ok bool) {
	e := h.nodes[pos]
	parentPos, ok = h.position(e.parent)
	if !ok {
		return -1, -1, false
	}
	return parentPos, pos - h.nodes[parentPos].childOffset, true
}

func (h *Hierarchy) checkPayload(n *Node) error {
	if !n.Operation.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidOperation, n.Operation)
	}
	if n.Kind != Branch && n.Kind != Brush {
		return fmt.Errorf("unknown node kind %v", n.Kind)
	}
	if n.LocalTransform == (mgl64.Mat4{}) {
		n.LocalTransform = mgl64.Ident4()
	}
	return nil
}

// CreateNode creates a node from payload. With a zero parent the node is
// created detached, as a top-level node of its own; otherwise it is
// appended after the parent's last child. A zero LocalTransform is replaced
// by the identity.
func (h *Hierarchy) CreateNode(parent NodeID, payload Node) (NodeID, error) {
	if err := h.checkPayload(&payload); err != nil {
		return NodeID{}, err
	}

	var parentPos int32 = -1
	if !parent.IsZero() {
		pos, ok := h.position(parent)
		if !ok {
			return NodeID{}, fmt.Errorf("create under %s: %w", parent, ErrInvalidNode)
		}
		if h.nodes[pos].payload.Kind != Branch {
			return NodeID{}, fmt.Errorf("create under %s: %w", parent, ErrNotBranch)
		}
		parentPos = pos
	}

	id := h.alloc()
	e := entry{id: id, parent: parent, payload: payload}
	if parentPos < 0 {
		h.appendTopLevel(e)
	} else {
		h.placeChildren(parentPos, append(h.children(parentPos), e))
	}
	h.live++
	h.version++
	return id, nil
}

// AttachToParentAt inserts the detached node child as the index-th child
// of parent, shifting later siblings. index may equal the current child
// count to append. Nothing is modified when an error is returned.
func (h *Hierarchy) AttachToParentAt(parent NodeID, index int, child NodeID) error {
	parentPos, ok := h.position(parent)
	if !ok {
		return fmt.Errorf("attach to %s: %w", parent, ErrInvalidNode)
	}
	childPos, ok := h.position(child)
	if !ok {
		return fmt.Errorf("attach %s: %w", child, ErrInvalidNode)
	}
	switch {
	case child == h.root:
		return fmt.Errorf("attach %s: %w", child, ErrRootNode)
	case h.nodes[parentPos].payload.Kind != Branch:
		return fmt.Errorf("attach to %s: %w", parent, ErrNotBranch)
	case !h.nodes[childPos].parent.IsZero():
		return fmt.Errorf("attach %s: %w", child, ErrAttached)
	case index < 0 || index > int(h.nodes[parentPos].childCount):
		return fmt.Errorf("attach %s at %d of %d: %w", child, index, h.nodes[parentPos].childCount, ErrIndexOutOfRange)
	case h.isAncestorOrSelf(child, parent):
		return fmt.Errorf("attach %s under %s: %w", child, parent, ErrCycle)
	}

	e := h.nodes[childPos]
	e.parent = parent
	h.vacate(childPos)

	siblings := h.children(parentPos)
	siblings = append(siblings, entry{})
	copy(siblings[index+1:], siblings[index:])
	siblings[index] = e
	h.placeChildren(parentPos, siblings)
	h.version++
	return nil
}

// isAncestorOrSelf reports whether ancestor is id or one of its ancestors.
func (h *Hierarchy) isAncestorOrSelf(ancestor, id NodeID) bool {
	for !id.IsZero() {
		if id == ancestor {
			return true
		}
		pos, ok := h.position(id)
		if !ok {
			return false
		}
		id = h.nodes[pos].parent
	}
	return false
}

// Detach removes id from its parent without destroying it; the node and
// its subtree become a top-level tree of their own. It returns false for
// the root, stale identities and nodes that are already detached.
func (h *Hierarchy) Detach(id NodeID) bool {
	pos, ok := h.position(id)
	if !ok || id == h.root {
		return false
	}
	parentPos, index, ok := h.indexInParent(pos)
	if !ok {
		return false
	}

	e := h.nodes[pos]
	siblings := h.children(parentPos)
	siblings = append(siblings[:index], siblings[index+1:]...)
	h.placeChildren(parentPos, siblings)
	h.appendTopLevel(e)
	h.version++
	return true
}

// Delete destroys id. With recursive set its whole subtree is destroyed;
// otherwise its children take its place among its siblings, in order, or
// become top-level nodes when id was detached. It returns false for the
// root and stale identities.
func (h *Hierarchy) Delete(id NodeID, recursive bool) bool {
	pos, ok := h.position(id)
	if !ok || id == h.root {
		return false
	}
	e := h.nodes[pos]

	var replacement []entry
	if recursive {
		h.releaseDescendants(pos)
	} else {
		replacement = h.children(pos)
		for i := range replacement {
			replacement[i].parent = e.parent
			h.vacate(e.childOffset + int32(i))
		}
	}

	if parentPos, index, ok := h.indexInParent(pos); ok {
		siblings := h.children(parentPos)
		spliced := make([]entry, 0, len(siblings)-1+len(replacement))
		spliced = append(spliced, siblings[:index]...)
		spliced = append(spliced, replacement...)
		spliced = append(spliced, siblings[index+1:]...)
		h.placeChildren(parentPos, spliced)
	} else {
		h.vacate(pos)
		for _, c := range replacement {
			h.appendTopLevel(c)
		}
		h.trimTail()
	}

	h.release(id)
	h.version++
	return true
}

func (h *Hierarchy) releaseDescendants(pos int32) {
	e := h.nodes[pos]
	for i := e.childOffset; i < e.childOffset+e.childCount; i++ {
		child := h.nodes[i]
		h.releaseDescendants(i)
		h.vacate(i)
		h.release(child.id)
	}
}

// Compact rewrites the flat array without holes, laying every child block
// out in breadth-first order from the root followed by the detached trees.
// Identities are unaffected. It returns false when there was nothing to
// remove.
func (h *Hierarchy) Compact() bool {
	if len(h.nodes) == h.live {
		return false
	}

	out := make([]entry, 0, h.live)
	rootPos, _ := h.position(h.root)
	out = append(out, h.nodes[rootPos])
	for _, e := range h.nodes {
		if !e.isHole() && e.parent.IsZero() && e.id != h.root {
			out = append(out, e)
		}
	}
	for i := 0; i < len(out); i++ {
		e := out[i]
		if e.childCount == 0 {
			out[i].childOffset = 0
			continue
		}
		out[i].childOffset = int32(len(out))
		out = append(out, h.nodes[e.childOffset:e.childOffset+e.childCount]...)
	}

	h.nodes = out
	for pos, e := range h.nodes {
		h.slots[e.id.Index].position = int32(pos)
	}
	h.layoutVersion++
	h.version++
	return true
}
