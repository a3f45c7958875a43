package routing

const (
	in  = Inside
	al  = Aligned
	sa  = SelfAligned
	sra = SelfReverseAligned
	ra  = ReverseAligned
	out = Outside
)

// operationTables holds one 6x6 table per operation, flattened as
// op*36 + left*6 + right. The left operand is the category accumulated from
// the preceding siblings, the right operand the category against the node
// being combined.
var operationTables = [OperationCount * CategoryCount * CategoryCount]CategoryIndex{
	// Additive: left || right
	//
	//	right: inside aligned self-aligned self-reverse reverse outside   | left
	in, in, in, in, in, in, // inside
	in, al, sa, in, in, al, // aligned
	in, sa, sa, in, in, sa, // self-aligned
	in, in, in, sra, sra, sra, // self-reverse-aligned
	in, in, in, sra, ra, ra, // reverse-aligned
	in, al, sa, sra, ra, out, // outside

	// Subtractive: left && !right
	out, ra, sra, sa, al, in, // inside
	out, out, out, sa, al, al, // aligned
	out, out, out, sa, sa, sa, // self-aligned
	out, sra, sra, out, out, sra, // self-reverse-aligned
	out, ra, sra, out, out, ra, // reverse-aligned
	out, out, out, out, out, out, // outside

	// Intersecting: left && right
	in, al, sa, sra, ra, out, // inside
	al, al, sa, out, out, out, // aligned
	sa, sa, sa, out, out, out, // self-aligned
	sra, out, out, sra, sra, out, // self-reverse-aligned
	ra, out, out, sra, ra, out, // reverse-aligned
	out, out, out, out, out, out, // outside

	// AdditiveKeepInside: right wins unless the fragment is outside it
	in, al, sa, sra, ra, in, // inside
	in, al, sa, sra, ra, al, // aligned
	in, al, sa, sra, ra, sa, // self-aligned
	in, al, sa, sra, ra, sra, // self-reverse-aligned
	in, al, sa, sra, ra, ra, // reverse-aligned
	in, al, sa, sra, ra, out, // outside
}

// Combine returns the category of a fragment that has category left
// relative to the accumulated operands and category right relative to the
// next operand, when the two are combined with op. Invalid arguments yield
// None.
func Combine(op Operation, left, right CategoryIndex) CategoryIndex {
	if !op.Valid() || !left.Valid() || !right.Valid() {
		return None
	}
	return operationTables[int(op)*CategoryCount*CategoryCount+int(left)*CategoryCount+int(right)]
}
