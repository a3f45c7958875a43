package brushmesh

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

// assertNear compares got with want component by component within tol.
func assertNear(t *testing.T, want, got []float64, msgAndArgs ...any) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, msgAndArgs...)
	}
}

func rebuild(m *Mesh) *Mesh {
	return New(m.Vertices, m.HalfEdges, m.Polygons)
}

func hasFinding(errs []ValidationError, fragment string) bool {
	for _, e := range errs {
		if strings.Contains(e.Error(), fragment) {
			return true
		}
	}
	return false
}

func TestNewBox(t *testing.T) {
	m := NewBox(mgl64.Vec3{-1, -2, -3}, mgl64.Vec3{1, 2, 3}, SurfaceTag{Layers: 1, Material: 7})

	require.Len(t, m.Vertices, 8)
	require.Len(t, m.HalfEdges, 24)
	require.Len(t, m.Polygons, 6)
	require.Len(t, m.Planes, 6)
	assert.Empty(t, m.Validate())
	assert.True(t, m.IsValid())

	assert.Equal(t, AABB{Min: mgl64.Vec3{-1, -2, -3}, Max: mgl64.Vec3{1, 2, 3}}, m.Bounds)
	for _, p := range m.Polygons {
		assert.Equal(t, SurfaceTag{Layers: 1, Material: 7}, p.Surface)
	}

	want := map[int]mgl64.Vec4{
		BoxNegX: {-1, 0, 0, -1},
		BoxPosX: {1, 0, 0, -1},
		BoxNegY: {0, -1, 0, -2},
		BoxPosY: {0, 1, 0, -2},
		BoxNegZ: {0, 0, -1, -3},
		BoxPosZ: {0, 0, 1, -3},
	}
	for face, plane := range want {
		assertNear(t, plane[:], m.Planes[face][:], "face %d", face)
	}
}

func TestTwinsArePaired(t *testing.T) {
	m := NewCube(1)
	for i, he := range m.HalfEdges {
		require.GreaterOrEqual(t, he.TwinIndex, int32(0), "half-edge %d", i)
		assert.Equal(t, int32(i), m.HalfEdges[he.TwinIndex].TwinIndex)

		from, to, ok := m.EdgeVertices(int32(i))
		require.True(t, ok)
		tFrom, tTo, ok := m.EdgeVertices(he.TwinIndex)
		require.True(t, ok)
		assert.Equal(t, from, tTo)
		assert.Equal(t, to, tFrom)
	}
}

func TestNextEdgeWrapsWithinPolygon(t *testing.T) {
	m := NewCube(1)
	p := m.Polygons[BoxPosZ]
	last := p.FirstEdge + p.EdgeCount - 1
	assert.Equal(t, p.FirstEdge, m.NextEdge(last))
	assert.Equal(t, p.FirstEdge+1, m.NextEdge(p.FirstEdge))
	assert.Equal(t, int32(-1), m.NextEdge(-1))
	assert.Equal(t, int32(-1), m.NextEdge(int32(len(m.HalfEdges))))
}

func TestPlanesBoundTheMesh(t *testing.T) {
	m := NewBox(mgl64.Vec3{0.25, 0, -4}, mgl64.Vec3{3, 0.5, 2}, SurfaceTag{})
	for i, plane := range m.Planes {
		assert.InDelta(t, 1, PlaneNormal(plane).Len(), tol)
		for _, p := range m.PolygonPoints(i) {
			assert.InDelta(t, 0, PlaneDistance(plane, p), tol)
		}
		for _, v := range m.Vertices {
			assert.LessOrEqual(t, PlaneDistance(plane, v), FatPlaneWidthEpsilon)
		}
	}
}

func TestValidateFindings(t *testing.T) {
	tests := []struct {
		name string
		mesh func() *Mesh
		want string
	}{
		{
			name: "too few vertices",
			mesh: func() *Mesh {
				return New([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, nil, nil)
			},
			want: "has 3 vertices",
		},
		{
			name: "polygon with two edges",
			mesh: func() *Mesh {
				m := NewCube(1)
				m.Polygons[BoxPosX].EdgeCount = 2
				return rebuild(m)
			},
			want: "has 2 edges",
		},
		{
			name: "edge range out of bounds",
			mesh: func() *Mesh {
				m := NewCube(1)
				m.Polygons[BoxPosZ].FirstEdge = 22
				return rebuild(m)
			},
			want: "out of range",
		},
		{
			name: "unpaired edge",
			mesh: func() *Mesh {
				corners := AABB{Max: mgl64.Vec3{1, 1, 1}}.Corners()
				return FromLoops(corners[:], boxLoops[:5], nil)
			},
			want: "twin index -1 out of range",
		},
		{
			name: "twin mismatch",
			mesh: func() *Mesh {
				m := NewCube(1)
				m.HalfEdges[0].TwinIndex = 1
				return rebuild(m)
			},
			want: "points back",
		},
		{
			name: "vertex index out of range",
			mesh: func() *Mesh {
				m := NewCube(1)
				m.HalfEdges[3].VertexIndex = 42
				return rebuild(m)
			},
			want: "vertex index 42 out of range",
		},
		{
			name: "zero area",
			mesh: func() *Mesh {
				return NewBox(mgl64.Vec3{}, mgl64.Vec3{0, 1, 1}, SurfaceTag{})
			},
			want: "has zero area",
		},
		{
			name: "not planar",
			mesh: func() *Mesh {
				m := NewCube(1)
				m.Vertices[7] = mgl64.Vec3{1, 1, 1.5}
				return rebuild(m)
			},
			want: "is not planar",
		},
		{
			name: "inside out",
			mesh: func() *Mesh {
				corners := AABB{Max: mgl64.Vec3{1, 1, 1}}.Corners()
				loops := make([][]int32, len(boxLoops))
				for i, loop := range boxLoops {
					for j := len(loop) - 1; j >= 0; j-- {
						loops[i] = append(loops[i], loop[j])
					}
				}
				return FromLoops(corners[:], loops, nil)
			},
			want: "not convex",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.mesh()
			errs := m.Validate()
			assert.False(t, m.IsValid())
			assert.Truef(t, hasFinding(errs, tt.want), "want %q in %v", tt.want, errs)
		})
	}
}

func TestValidateStaleDerivedData(t *testing.T) {
	m := NewCube(1)
	m.Polygons = append(m.Polygons, m.Polygons[0])
	assert.True(t, hasFinding(m.Validate(), "stale"))
}

func TestTransformPlane(t *testing.T) {
	posX := mgl64.Vec4{1, 0, 0, -1}
	tests := []struct {
		name string
		m    mgl64.Mat4
		want mgl64.Vec4
	}{
		{"identity", mgl64.Ident4(), posX},
		{"translate", mgl64.Translate3D(2, 5, 0), mgl64.Vec4{1, 0, 0, -3}},
		{"rotate", mgl64.HomogRotate3DZ(math.Pi / 2), mgl64.Vec4{0, 1, 0, -1}},
		{"scale", mgl64.Scale3D(2, 1, 1), mgl64.Vec4{1, 0, 0, -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransformPlane(tt.m, posX)
			assertNear(t, tt.want[:], got[:], "got %v want %v", got, tt.want)
		})
	}

	assert.Equal(t, mgl64.Vec4{}, TransformPlane(mgl64.Scale3D(0, 0, 0), posX))
}

func TestPlaneAlignment(t *testing.T) {
	a := mgl64.Vec4{1, 0, 0, -1}
	assert.True(t, PlanesAligned(a, mgl64.Vec4{1, 0, 0, -1.0005}))
	assert.False(t, PlanesAligned(a, mgl64.Vec4{1, 0, 0, -1.01}))
	assert.False(t, PlanesAligned(a, mgl64.Vec4{0, 1, 0, -1}))
	assert.True(t, PlanesReverseAligned(a, mgl64.Vec4{-1, 0, 0, 1}))
	assert.False(t, PlanesReverseAligned(a, a))
}

func TestTransformAABB(t *testing.T) {
	box := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{2, 1, 1}}
	got := TransformAABB(mgl64.HomogRotate3DZ(math.Pi/2), box)
	assertNear(t, []float64{-1, 0, 0}, got.Min[:], "min %v", got.Min)
	assertNear(t, []float64{0, 2, 1}, got.Max[:], "max %v", got.Max)

	moved := TransformAABB(mgl64.Translate3D(1, 1, 1), box)
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, moved.Min)
	assert.Equal(t, mgl64.Vec3{3, 2, 2}, moved.Max)
}

func TestAABBIntersects(t *testing.T) {
	a := AABB{Max: mgl64.Vec3{1, 1, 1}}
	tests := []struct {
		name string
		b    AABB
		eps  float64
		want bool
	}{
		{"overlap", AABB{Min: mgl64.Vec3{0.5, 0, 0}, Max: mgl64.Vec3{1.5, 1, 1}}, 0, true},
		{"touching", AABB{Min: mgl64.Vec3{1, 0, 0}, Max: mgl64.Vec3{2, 1, 1}}, 0, true},
		{"gap", AABB{Min: mgl64.Vec3{1.01, 0, 0}, Max: mgl64.Vec3{2, 1, 1}}, 0, false},
		{"gap within eps", AABB{Min: mgl64.Vec3{1.0005, 0, 0}, Max: mgl64.Vec3{2, 1, 1}}, FatPlaneWidthEpsilon, true},
		{"contained", AABB{Min: mgl64.Vec3{0.25, 0.25, 0.25}, Max: mgl64.Vec3{0.75, 0.75, 0.75}}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Intersects(tt.b, tt.eps))
			assert.Equal(t, tt.want, tt.b.Intersects(a, tt.eps))
		})
	}
}

func TestHash(t *testing.T) {
	a := NewCube(1)
	b := NewCube(1)
	assert.Equal(t, a.Hash(), b.Hash())

	assert.NotEqual(t, a.Hash(), NewCube(2).Hash())
	assert.NotEqual(t, a.Hash(), NewBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, SurfaceTag{Material: 3}).Hash())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	first := NewCube(1)
	h := r.Add(first)
	assert.Equal(t, h, r.Add(NewCube(1)))
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get(h)
	require.True(t, ok)
	assert.Same(t, first, got)

	h2 := r.Add(NewCube(3))
	assert.NotEqual(t, h, h2)
	assert.Equal(t, 2, r.Len())

	assert.True(t, r.Remove(h))
	assert.False(t, r.Remove(h))
	_, ok = r.Get(h)
	assert.False(t, ok)
}
