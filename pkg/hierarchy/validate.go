package hierarchy

import "fmt"

// ValidationError describes one broken storage invariant.
type ValidationError struct {
	NodeID  NodeID // zero for hierarchy-level findings
	Message string
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return e.Message
	}
	return fmt.Sprintf("node %s: %s", e.NodeID, e.Message)
}

// Validate checks the storage invariants: slots and array positions agree,
// every child block is contiguous and in range, parents and children agree,
// no node is reachable twice and the live count matches. It never mutates
// the hierarchy. An empty result means the hierarchy is consistent.
func (h *Hierarchy) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, h.validateSlots()...)
	errs = append(errs, h.validateBlocks()...)
	errs = append(errs, h.validateReachability()...)
	return errs
}

func (h *Hierarchy) validateSlots() []ValidationError {
	var errs []ValidationError
	for pos, e := range h.nodes {
		if e.isHole() {
			continue
		}
		if got, ok := h.position(e.id); !ok || got != int32(pos) {
			errs = append(errs, ValidationError{e.id, fmt.Sprintf("stored at %d but slot points to %d", pos, got)})
		}
	}
	live := 0
	for i, s := range h.slots {
		if s.position < 0 {
			continue
		}
		live++
		id := NodeID{Index: int32(i), Generation: s.generation}
		if int(s.position) >= len(h.nodes) || h.nodes[s.position].id != id {
			errs = append(errs, ValidationError{id, fmt.Sprintf("slot points to %d which holds another node", s.position)})
		}
	}
	if live != h.live {
		errs = append(errs, ValidationError{Message: fmt.Sprintf("%d live slots but live count is %d", live, h.live)})
	}
	if !h.IsValidCompactNodeID(h.root) {
		errs = append(errs, ValidationError{Message: "root is not live"})
	} else if p, _ := h.Parent(h.root); !p.IsZero() {
		errs = append(errs, ValidationError{h.root, "root has a parent"})
	}
	return errs
}

func (h *Hierarchy) validateBlocks() []ValidationError {
	var errs []ValidationError
	for pos, e := range h.nodes {
		if e.isHole() {
			continue
		}
		if e.childCount < 0 || e.childOffset < 0 || int(e.childOffset+e.childCount) > len(h.nodes) {
			errs = append(errs, ValidationError{e.id, fmt.Sprintf("child range [%d, %d) out of range", e.childOffset, e.childOffset+e.childCount)})
			continue
		}
		if e.childCount > 0 && e.payload.Kind != Branch {
			errs = append(errs, ValidationError{e.id, fmt.Sprintf("%s has children", e.payload.Kind)})
		}
		for i := e.childOffset; i < e.childOffset+e.childCount; i++ {
			c := h.nodes[i]
			if c.isHole() {
				errs = append(errs, ValidationError{e.id, fmt.Sprintf("hole at %d inside child range", i)})
				continue
			}
			if c.parent != e.id {
				errs = append(errs, ValidationError{c.id, fmt.Sprintf("in child range of %s but parent is %s", e.id, c.parent)})
			}
		}
		if e.parent.IsZero() {
			continue
		}
		ppos, ok := h.position(e.parent)
		if !ok {
			errs = append(errs, ValidationError{e.id, fmt.Sprintf("parent %s is not live", e.parent)})
			continue
		}
		p := h.nodes[ppos]
		if int32(pos) < p.childOffset || int32(pos) >= p.childOffset+p.childCount {
			errs = append(errs, ValidationError{e.id, fmt.Sprintf("outside the child range of parent %s", e.parent)})
		}
	}
	return errs
}

// validateReachability walks every top-level tree with a visited set; each
// live node must be reached exactly once.
func (h *Hierarchy) validateReachability() []ValidationError {
	var errs []ValidationError
	visited := make(map[NodeID]bool, h.live)
	var visit func(pos int32, depth int)
	visit = func(pos int32, depth int) {
		e := h.nodes[pos]
		if visited[e.id] {
			errs = append(errs, ValidationError{e.id, "reachable more than once"})
			return
		}
		if depth > h.live {
			errs = append(errs, ValidationError{e.id, "cycle in child ranges"})
			return
		}
		visited[e.id] = true
		if e.childOffset < 0 || int(e.childOffset+e.childCount) > len(h.nodes) {
			return
		}
		for i := e.childOffset; i < e.childOffset+e.childCount; i++ {
			if !h.nodes[i].isHole() {
				visit(i, depth+1)
			}
		}
	}
	for pos, e := range h.nodes {
		if !e.isHole() && e.parent.IsZero() {
			visit(int32(pos), 0)
		}
	}
	if len(visited) != h.live {
		errs = append(errs, ValidationError{Message: fmt.Sprintf("%d nodes reachable but %d live", len(visited), h.live)})
	}
	return errs
}
