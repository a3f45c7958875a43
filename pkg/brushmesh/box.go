package brushmesh

import "github.com/go-gl/mathgl/mgl64"

// boxLoops lists the faces of a box as counter-clockwise loops seen from
// outside. Vertex i is the corner with x, y and z taken from bits 0, 1 and 2.
var boxLoops = [][]int32{
	{0, 4, 6, 2}, // -X
	{1, 3, 7, 5}, // +X
	{0, 1, 5, 4}, // -Y
	{2, 6, 7, 3}, // +Y
	{0, 2, 3, 1}, // -Z
	{4, 5, 7, 6}, // +Z
}

// Box face indices, in polygon order.
const (
	BoxNegX = iota
	BoxPosX
	BoxNegY
	BoxPosY
	BoxNegZ
	BoxPosZ
)

// NewBox returns an axis-aligned box brush spanning min to max with every
// polygon carrying surface.
func NewBox(min, max mgl64.Vec3, surface SurfaceTag) *Mesh {
	corners := AABB{Min: min, Max: max}.Corners()
	surfaces := make([]SurfaceTag, len(boxLoops))
	for i := range surfaces {
		surfaces[i] = surface
	}
	return FromLoops(corners[:], boxLoops, surfaces)
}

// NewCube returns a box of edge length size with its minimum corner at the
// origin.
func NewCube(size float64) *Mesh {
	return NewBox(mgl64.Vec3{}, mgl64.Vec3{size, size, size}, SurfaceTag{})
}
