package routing

import "fmt"

// CategoryIndex classifies a surface fragment relative to an operand.
type CategoryIndex int8

const (
	None               CategoryIndex = -1
	Inside             CategoryIndex = 0
	Aligned            CategoryIndex = 1
	SelfAligned        CategoryIndex = 2
	SelfReverseAligned CategoryIndex = 3
	ReverseAligned     CategoryIndex = 4
	Outside            CategoryIndex = 5

	LastCategory = Outside
)

// CategoryCount is the number of valid categories.
const CategoryCount = int(LastCategory) + 1

func (c CategoryIndex) String() string {
	switch c {
	case None:
		return "none"
	case Inside:
		return "inside"
	case Aligned:
		return "aligned"
	case SelfAligned:
		return "self-aligned"
	case SelfReverseAligned:
		return "self-reverse-aligned"
	case ReverseAligned:
		return "reverse-aligned"
	case Outside:
		return "outside"
	default:
		return fmt.Sprintf("CategoryIndex(%d)", int(c))
	}
}

// Valid reports whether c is one of the six real categories.
func (c CategoryIndex) Valid() bool {
	return c >= Inside && c <= LastCategory
}

// Complement returns the category of the same fragment relative to the
// complement of the operand: inside and outside swap, and every aligned
// variant swaps with its reversed counterpart.
func (c CategoryIndex) Complement() CategoryIndex {
	if !c.Valid() {
		return c
	}
	return LastCategory - c
}

// IsVisible reports whether a fragment with this final category is part
// of the output surface. Only a brush's own surfaces are emitted; aligned
// surfaces of other operands are emitted by the brush that owns them.
func (c CategoryIndex) IsVisible() bool {
	return c == SelfAligned || c == SelfReverseAligned
}

// Operation is the boolean operation a node applies when it is combined
// with the nodes that precede it under the same parent.
type Operation uint8

const (
	Additive Operation = iota
	Subtractive
	Intersecting
	// AdditiveKeepInside is a union in which the later operand's surfaces
	// are never erased by earlier overlapping operands.
	AdditiveKeepInside
)

// OperationCount is the number of operations with a routing table.
const OperationCount = int(AdditiveKeepInside) + 1

func (o Operation) String() string {
	switch o {
	case Additive:
		return "additive"
	case Subtractive:
		return "subtractive"
	case Intersecting:
		return "intersecting"
	case AdditiveKeepInside:
		return "additive-keep-inside"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// Valid reports whether o has a routing table.
func (o Operation) Valid() bool {
	return int(o) < OperationCount
}

// Flip returns the operation used when the two operands of a pair are
// swapped during pair normalization: subtractive and intersecting trade
// places, the additive operations are unchanged.
func (o Operation) Flip() Operation {
	switch o {
	case Subtractive:
		return Intersecting
	case Intersecting:
		return Subtractive
	default:
		return o
	}
}

// ParseOperation maps a name produced by Operation.String back to the
// operation.
func ParseOperation(s string) (Operation, error) {
	for o := Operation(0); int(o) < OperationCount; o++ {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("routing: unknown operation %q", s)
}
