package engine

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/radicalcsg/chisel/pkg/intersect"
	"github.com/radicalcsg/chisel/pkg/routing"
)

// selfAutomaton is the leaf of the processed brush itself: a fragment on
// its own surface is always SelfAligned relative to it.
var selfAutomaton = routing.Automaton{Final: []routing.CategoryIndex{routing.SelfAligned}}

func (e *Engine) workers() int {
	if e.opts.Workers > 0 {
		return e.opts.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// route builds the routing table of every valid brush. Branches are
// composed level by level from the deepest up, the branches of one level
// in parallel; each branch holds one automaton per processed brush.
// Excluded brushes take no part in the composition. A brush whose
// composition fails is left without a table and reported in Unrouted; the
// other brushes are routed as usual.
func (e *Engine) route(p *pass) func(context.Context) error {
	return func(ctx context.Context) error {
		n := len(p.inputs)
		valid := make([]bool, n)
		for i, in := range p.inputs {
			valid[i] = in.Mesh != nil
		}
		failed := make([]atomic.Bool, n)
		compose := e.compose
		if compose == nil {
			compose = func(_ int32, children []routing.Automaton, ops []routing.Operation) (routing.Automaton, error) {
				return routing.ComposeBranch(children, ops)
			}
		}

		automata := make([][]routing.Automaton, p.snap.branches)
		for level := len(p.snap.levels) - 1; level >= 0; level-- {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(e.workers())
			for _, branch := range p.snap.levels[level] {
				g.Go(func() error {
					out := make([]routing.Automaton, n)
					children := make([]routing.Automaton, 0, len(branch.children))
					ops := make([]routing.Operation, 0, len(branch.children))
					for self := range n {
						if !valid[self] || failed[self].Load() {
							continue
						}
						if err := gctx.Err(); err != nil {
							return err
						}
						children, ops = children[:0], ops[:0]
						for _, c := range branch.children {
							switch {
							case c.branch >= 0:
								children = append(children, automata[c.branch][self])
							case !valid[c.brush]:
								continue
							default:
								children = append(children, leafAutomaton(int32(self), c.brush, &p.touched[self]))
							}
							ops = append(ops, c.op)
						}
						a, err := compose(int32(self), children, ops)
						if err != nil {
							failed[self].Store(true)
							p.snap.log.Warn("routing failed",
								"brush", p.snap.brushes[self].id.String(),
								"branch", branch.id.String(),
								"error", err,
							)
							continue
						}
						out[self] = a
					}
					automata[branch.index] = out
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
		}

		for self := range n {
			entry := &p.caches.Entries[self]
			entry.Routing = nil
			if !valid[self] || len(automata) == 0 {
				continue
			}
			if failed[self].Load() {
				p.result.Unrouted = append(p.result.Unrouted, entry.ID)
				continue
			}
			entry.Routing = automata[0][self].Table()
		}
		p.brushOutputs()
		return nil
	}
}

// leafAutomaton returns the automaton of brush as seen from fragments of
// self.
func leafAutomaton(self, brush int32, touched *intersect.TouchedBrushes) routing.Automaton {
	if brush == self {
		return selfAutomaton
	}
	return routing.LeafAutomaton(brush, touched.Get(brush) != intersect.NoIntersection)
}
