package intersect

import "github.com/go-gl/mathgl/mgl64"

// Scratch holds the buffers one worker reuses across pairs. It must not be
// shared between goroutines. The zero value is ready to use.
type Scratch struct {
	aInB, bInA   []mgl64.Vec3
	aPlanes      []bool
	bPlanes      []bool
	usedVertices []bool
}

// resize returns s with length n and every element zeroed, reallocating
// only when the capacity is too small.
func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	s = s[:n]
	clear(s)
	return s
}

func transformInto(dst []mgl64.Vec3, points []mgl64.Vec3, m mgl64.Mat4) []mgl64.Vec3 {
	dst = resize(dst, len(points))
	for i, p := range points {
		dst[i] = mgl64.TransformCoordinate(p, m)
	}
	return dst
}
