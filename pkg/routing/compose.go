package routing

import (
	"errors"
	"fmt"
)

// ErrStateOverflow is returned when a composed subtree has more routing
// states than a CategoryGroupIndex can address.
var ErrStateOverflow = errors.New("routing: too many routing states")

// Layer is one step of an Automaton: the rows consulted when the fragment
// is categorized against Brush. Rows has one row per state reached before
// this step; each entry is the state after it.
type Layer struct {
	Brush int32
	Rows  []CategoryRoutingRow
}

// Automaton routes the categories a fragment receives from the touching
// brushes of a subtree, in depth-first order, to the subtree's category.
// Layer 0 always starts from a single state. Final maps the states after
// the last layer to categories; without layers Final holds exactly one
// category, the constant result of the subtree.
type Automaton struct {
	Layers []Layer
	Final  []CategoryIndex
}

// LeafAutomaton returns the automaton of a single brush. A brush that does
// not touch the processed brush always classifies the fragment as Outside
// and needs no lookup; any other brush starts with the identity row.
func LeafAutomaton(brush int32, touching bool) Automaton {
	if !touching {
		return Automaton{Final: []CategoryIndex{Outside}}
	}
	final := make([]CategoryIndex, CategoryCount)
	for i := range final {
		final[i] = CategoryIndex(i)
	}
	return Automaton{
		Layers: []Layer{{Brush: brush, Rows: []CategoryRoutingRow{IdentityRow()}}},
		Final:  final,
	}
}

// IsConstant reports whether the automaton ignores its input.
func (a Automaton) IsConstant() bool {
	return len(a.Layers) == 0
}

// StateCount returns the number of states in front of layer i, or the
// number of final states when i == len(a.Layers).
func (a Automaton) StateCount(i int) int {
	if i < len(a.Layers) {
		return len(a.Layers[i].Rows)
	}
	return len(a.Final)
}

// ComposeBranch combines the automata of a branch's children in order.
// The accumulated category starts as Outside (nothing yet) and each child
// is folded in with its own operation.
func ComposeBranch(children []Automaton, ops []Operation) (Automaton, error) {
	if len(children) != len(ops) {
		return Automaton{}, fmt.Errorf("routing: %d children but %d operations", len(children), len(ops))
	}

	var out Automaton
	accs := []CategoryIndex{Outside}

	for k, child := range children {
		op := ops[k]
		if !op.Valid() {
			return Automaton{}, fmt.Errorf("routing: child %d has invalid operation %v", k, op)
		}
		if len(child.Final) == 0 {
			return Automaton{}, fmt.Errorf("routing: child %d has no final states", k)
		}

		n := len(accs)
		for j, layer := range child.Layers {
			next := child.StateCount(j + 1)
			if n*next >= int(InvalidGroup) {
				return Automaton{}, ErrStateOverflow
			}
			rows := make([]CategoryRoutingRow, 0, n*len(layer.Rows))
			for a := 0; a < n; a++ {
				for _, row := range layer.Rows {
					var r CategoryRoutingRow
					for c, v := range row {
						if v == InvalidGroup {
							r[c] = InvalidGroup
							continue
						}
						r[c] = CategoryGroupIndex(a*next + int(v))
					}
					rows = append(rows, r)
				}
			}
			out.Layers = append(out.Layers, Layer{Brush: layer.Brush, Rows: rows})
		}

		// Fold every (accumulated, child) state pair into the new
		// accumulated category.
		finals := len(child.Final)
		mapping := make([]int, n*finals)
		var nextAccs []CategoryIndex
		for a := 0; a < n; a++ {
			row := NewRow(op, accs[a])
			for s, c := range child.Final {
				v := None
				if c.Valid() {
					v = CategoryIndex(row[c])
				}
				mapping[a*finals+s] = indexOrAppend(&nextAccs, v)
			}
		}
		out.remapLast(mapping)
		accs = nextAccs
	}

	out.Final = accs
	out.minimize()
	return out, nil
}

// minimize merges states that route every remaining input to the same
// category, working back from the final states. Every layer is kept, so
// the automaton still consults the same brushes. Automata with invalid
// entries are left as they are.
func (a *Automaton) minimize() {
	for _, layer := range a.Layers {
		for _, row := range layer.Rows {
			for _, v := range row {
				if v == InvalidGroup {
					return
				}
			}
		}
	}

	var final []CategoryIndex
	classes := make([]int, len(a.Final))
	for s, c := range a.Final {
		classes[s] = indexOrAppend(&final, c)
	}
	a.Final = final

	for j := len(a.Layers) - 1; j >= 0; j-- {
		rows := a.Layers[j].Rows
		seen := make(map[CategoryRoutingRow]int, len(rows))
		merged := make([]CategoryRoutingRow, 0, len(rows))
		next := make([]int, len(rows))
		for i, row := range rows {
			for c, v := range row {
				row[c] = CategoryGroupIndex(classes[v])
			}
			k, ok := seen[row]
			if !ok {
				k = len(merged)
				seen[row] = k
				merged = append(merged, row)
			}
			next[i] = k
		}
		a.Layers[j].Rows = merged
		classes = next
	}
}

// remapLast rewrites the entries of the last layer through mapping. With no
// layers there is a single state and nothing to rewrite.
func (a *Automaton) remapLast(mapping []int) {
	if len(a.Layers) == 0 {
		return
	}
	rows := a.Layers[len(a.Layers)-1].Rows
	for i := range rows {
		for c, v := range rows[i] {
			if v == InvalidGroup {
				continue
			}
			rows[i][c] = CategoryGroupIndex(mapping[v])
		}
	}
}

func indexOrAppend(list *[]CategoryIndex, v CategoryIndex) int {
	for i, existing := range *list {
		if existing == v {
			return i
		}
	}
	*list = append(*list, v)
	return len(*list) - 1
}

// Table flattens the automaton into a routing table.
func (a Automaton) Table() *RoutingTable {
	t := &RoutingTable{
		Lookups: make([]RoutingLookup, 0, len(a.Layers)),
		Final:   append([]CategoryIndex(nil), a.Final...),
	}
	for _, layer := range a.Layers {
		start := int32(len(t.Rows))
		t.Rows = append(t.Rows, layer.Rows...)
		t.Lookups = append(t.Lookups, RoutingLookup{
			Brush: layer.Brush,
			Start: start,
			End:   int32(len(t.Rows)),
		})
	}
	return t
}
