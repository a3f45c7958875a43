package kernel

import (
	"fmt"

	"github.com/radicalcsg/chisel/pkg/routing"
)

// Combine folds s into the accumulated solid acc with op. A nil Solid is
// the empty set: nothing minus or intersected with anything stays empty.
func Combine(k Kernel, op routing.Operation, acc, s Solid) (Solid, error) {
	switch op {
	case routing.Additive, routing.AdditiveKeepInside:
		switch {
		case acc == nil:
			return s, nil
		case s == nil:
			return acc, nil
		}
		return k.Union(acc, s), nil
	case routing.Subtractive:
		if acc == nil || s == nil {
			return acc, nil
		}
		return k.Difference(acc, s), nil
	case routing.Intersecting:
		if acc == nil || s == nil {
			return nil, nil
		}
		return k.Intersection(acc, s), nil
	default:
		return nil, fmt.Errorf("kernel: invalid operation %v", op)
	}
}
