package routing

// RoutingLookup is the [Start, End) range of rows a routing table consults
// when the fragment is categorized against Brush.
type RoutingLookup struct {
	Brush int32
	Start int32
	End   int32
}

// Lookup returns the row for the given routing state. A state outside the
// range returns the identity row and false; callers treat it as a no-op.
func (l RoutingLookup) Lookup(t *RoutingTable, state CategoryGroupIndex) (CategoryRoutingRow, bool) {
	if t == nil || state == InvalidGroup {
		return IdentityRow(), false
	}
	idx := l.Start + int32(state)
	if idx < l.Start || idx >= l.End || int(idx) >= len(t.Rows) {
		return IdentityRow(), false
	}
	return t.Rows[idx], true
}

// RoutingTable is the flattened routing of one processed brush through the
// operation tree: one lookup per touching brush in tree order.
type RoutingTable struct {
	Rows    []CategoryRoutingRow
	Lookups []RoutingLookup
	Final   []CategoryIndex
}

// Brushes returns the brushes the table consults, in order.
func (t *RoutingTable) Brushes() []int32 {
	brushes := make([]int32, len(t.Lookups))
	for i, l := range t.Lookups {
		brushes[i] = l.Brush
	}
	return brushes
}

// Evaluate routes a fragment through the table. categorize returns the
// fragment's category relative to a brush; an invalid category is read as
// Outside. Rows that route every category alike skip categorize. A lookup
// that fails leaves the state unchanged. The second result is false when
// the final state does not resolve to a category.
func (t *RoutingTable) Evaluate(categorize func(brush int32) CategoryIndex) (CategoryIndex, bool) {
	if t == nil || len(t.Final) == 0 {
		return None, false
	}
	state := CategoryGroupIndex(0)
	for _, l := range t.Lookups {
		row, ok := l.Lookup(t, state)
		if !ok {
			continue
		}
		var next CategoryGroupIndex
		if row.AreAllTheSame() {
			next = row[0]
		} else {
			c := categorize(l.Brush)
			if !c.Valid() {
				c = Outside
			}
			next = row[c]
		}
		if next == InvalidGroup {
			continue
		}
		state = next
	}
	if int(state) >= len(t.Final) {
		return None, false
	}
	final := t.Final[state]
	return final, final.Valid()
}
