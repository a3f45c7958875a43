package routing

import (
	"strconv"
	"strings"
)

// CategoryGroupIndex is an entry of a routing row. In a row produced by
// NewRow it is a CategoryIndex; in a composed routing table it is the index
// of the next routing state.
type CategoryGroupIndex uint16

// InvalidGroup marks an entry that must never be reached.
const InvalidGroup CategoryGroupIndex = 0xFFFF

// CategoryRoutingRow maps each incoming category to a result.
type CategoryRoutingRow [CategoryCount]CategoryGroupIndex

// NewRow pre-binds the left operand of op and tabulates every right
// operand. Invalid arguments yield AllInvalidRow.
func NewRow(op Operation, left CategoryIndex) CategoryRoutingRow {
	if !op.Valid() || !left.Valid() {
		return AllInvalidRow()
	}
	var row CategoryRoutingRow
	for right := range row {
		row[right] = CategoryGroupIndex(Combine(op, left, CategoryIndex(right)))
	}
	return row
}

// IdentityRow routes every category to itself.
func IdentityRow() CategoryRoutingRow {
	var row CategoryRoutingRow
	for i := range row {
		row[i] = CategoryGroupIndex(i)
	}
	return row
}

// AllInvalidRow is the sentinel for operand combinations that cannot occur.
func AllInvalidRow() CategoryRoutingRow {
	var row CategoryRoutingRow
	for i := range row {
		row[i] = InvalidGroup
	}
	return row
}

// AreAllTheSame reports whether every entry routes to the same result.
func (r CategoryRoutingRow) AreAllTheSame() bool {
	for _, v := range r[1:] {
		if v != r[0] {
			return false
		}
	}
	return true
}

// AreAllValue reports whether every entry equals v.
func (r CategoryRoutingRow) AreAllValue(v CategoryGroupIndex) bool {
	return r[0] == v && r.AreAllTheSame()
}

// IsInvalid reports whether the row is the AllInvalid sentinel.
func (r CategoryRoutingRow) IsInvalid() bool {
	return r.AreAllValue(InvalidGroup)
}

func (r CategoryRoutingRow) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, v := range r {
		if i > 0 {
			sb.WriteString(", ")
		}
		if v == InvalidGroup {
			sb.WriteString("invalid")
			continue
		}
		sb.WriteString(strconv.Itoa(int(v)))
	}
	sb.WriteByte(')')
	return sb.String()
}
