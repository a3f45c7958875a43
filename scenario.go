package main

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/engine"
	"github.com/radicalcsg/chisel/pkg/hierarchy"
	"github.com/radicalcsg/chisel/pkg/routing"
)

// placement is one brush of a scenario.
type placement struct {
	size   float64
	offset mgl64.Vec3
	op     routing.Operation
}

// scenario is a small operation tree used by the CLI and the tests.
type scenario struct {
	description string
	brushes     []placement
	// group, when set, puts the brushes after the first under a branch
	// with this operation and offset.
	group *placement
}

var scenarios = map[string]scenario{
	"union": {
		description: "two unit cubes overlapping by half, both additive",
		brushes: []placement{
			{size: 1, op: routing.Additive},
			{size: 1, offset: mgl64.Vec3{0.5, 0, 0}, op: routing.Additive},
		},
	},
	"cavity": {
		description: "a unit cube with a half-size cube subtracted from its middle",
		brushes: []placement{
			{size: 1, op: routing.Additive},
			{size: 0.5, offset: mgl64.Vec3{0.25, 0.25, 0.25}, op: routing.Subtractive},
		},
	},
	"intersect": {
		description: "two unit cubes overlapping by half, the second intersecting",
		brushes: []placement{
			{size: 1, op: routing.Additive},
			{size: 1, offset: mgl64.Vec3{0.5, 0, 0}, op: routing.Intersecting},
		},
	},
	"nested": {
		description: "a unit cube with a subtractive group of two small cubes carved out of it",
		brushes: []placement{
			{size: 1, op: routing.Additive},
			{size: 0.25, offset: mgl64.Vec3{0, 0.25, 0.25}, op: routing.Additive},
			{size: 0.25, offset: mgl64.Vec3{0.5, 0.25, 0.25}, op: routing.Additive},
		},
		group: &placement{offset: mgl64.Vec3{0.125, 0, 0}, op: routing.Subtractive},
	},
}

// scenarioNames returns the known scenarios in sorted order.
func scenarioNames() []string {
	names := lo.Keys(scenarios)
	slices.Sort(names)
	return names
}

func translate(v mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(v.X(), v.Y(), v.Z())
}

// build adds the scenario's meshes and nodes to e and returns the brush ids
// in creation order.
func (s scenario) build(e *engine.Engine) ([]hierarchy.NodeID, error) {
	hashes := lo.Map(s.brushes, func(p placement, _ int) uint64 {
		return e.AddMesh(brushmesh.NewCube(p.size))
	})

	var ids []hierarchy.NodeID
	err := e.Edit(func(h *hierarchy.Hierarchy) error {
		parent := h.Root()
		for i, p := range s.brushes {
			if i == 1 && s.group != nil {
				group := hierarchy.BranchNode(s.group.op)
				group.LocalTransform = translate(s.group.offset)
				g, err := h.CreateNode(h.Root(), group)
				if err != nil {
					return fmt.Errorf("create group: %w", err)
				}
				parent = g
			}
			id, err := h.CreateNode(parent, hierarchy.BrushNode(p.op, hashes[i], translate(p.offset)))
			if err != nil {
				return fmt.Errorf("create brush %d: %w", i, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}
