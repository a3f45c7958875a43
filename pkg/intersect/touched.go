package intersect

import "slices"

// TouchedBrushes is the set of brushes one brush touches, each with the
// intersection type seen from the owning brush. Types are packed two bits
// per brush, indexed by order minus the smallest order stored.
type TouchedBrushes struct {
	base  int32
	words []uint64
	count int
}

const typesPerWord = 32

// Get returns the intersection type recorded for order, NoIntersection
// when there is none.
func (t *TouchedBrushes) Get(order int32) IntersectionType {
	if t == nil || t.count == 0 || order < t.base {
		return NoIntersection
	}
	i := int(order - t.base)
	w := i / typesPerWord
	if w >= len(t.words) {
		return NoIntersection
	}
	return IntersectionType(t.words[w] >> (2 * (i % typesPerWord)) & 3)
}

// Set records typ for order. Setting NoIntersection removes the entry.
func (t *TouchedBrushes) Set(order int32, typ IntersectionType) {
	if typ == NoIntersection && t.Get(order) == NoIntersection {
		return
	}
	if t.count == 0 {
		t.base = order
		t.words = t.words[:0]
	}
	if order < t.base {
		t.rebase(order)
	}
	i := int(order - t.base)
	w := i / typesPerWord
	for len(t.words) <= w {
		t.words = append(t.words, 0)
	}
	shift := 2 * (i % typesPerWord)
	old := IntersectionType(t.words[w] >> shift & 3)
	t.words[w] = t.words[w]&^(3<<shift) | uint64(typ&3)<<shift
	switch {
	case old == NoIntersection && typ != NoIntersection:
		t.count++
	case old != NoIntersection && typ == NoIntersection:
		t.count--
	}
}

// rebase moves the base down to order, keeping every entry.
func (t *TouchedBrushes) rebase(order int32) {
	shift := int(t.base - order)
	words := make([]uint64, (shift+len(t.words)*typesPerWord+typesPerWord-1)/typesPerWord)
	for _, o := range t.Orders() {
		i := int(o-t.base) + shift
		words[i/typesPerWord] |= uint64(t.Get(o)) << (2 * (i % typesPerWord))
	}
	t.base = order
	t.words = words
}

// Len returns the number of touched brushes.
func (t *TouchedBrushes) Len() int {
	if t == nil {
		return 0
	}
	return t.count
}

// Orders returns the touched brushes in ascending order.
func (t *TouchedBrushes) Orders() []int32 {
	if t.Len() == 0 {
		return nil
	}
	out := make([]int32, 0, t.count)
	for w, word := range t.words {
		for j := 0; word != 0 && j < typesPerWord; j++ {
			if word>>(2*j)&3 != 0 {
				out = append(out, t.base+int32(w*typesPerWord+j))
			}
		}
	}
	return out
}

// Clone returns an independent copy.
func (t *TouchedBrushes) Clone() TouchedBrushes {
	if t == nil {
		return TouchedBrushes{}
	}
	return TouchedBrushes{base: t.base, words: slices.Clone(t.words), count: t.count}
}

// BuildTouched returns, for each of count brushes, the brushes it touches
// according to pairs. Pairs outside [0, count) are ignored.
func BuildTouched(pairs []BrushPair, count int) []TouchedBrushes {
	out := make([]TouchedBrushes, count)
	for _, p := range pairs {
		if p.Type == NoIntersection || p.A == p.B ||
			p.A < 0 || p.B < 0 || int(p.A) >= count || int(p.B) >= count {
			continue
		}
		out[p.A].Set(p.B, p.Type)
		out[p.B].Set(p.A, p.Type.Flip())
	}
	return out
}
