package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/radicalcsg/chisel/pkg/cache"
	"github.com/radicalcsg/chisel/pkg/hierarchy"
	"github.com/radicalcsg/chisel/pkg/intersect"
	"github.com/radicalcsg/chisel/pkg/routing"
)

// ErrSuperseded is returned by an Update whose result was discarded
// because the tree changed or a newer Update started while it ran.
var ErrSuperseded = errors.New("engine: update superseded by a newer request")

type brushSnap struct {
	id        hierarchy.NodeID
	meshHash  uint64
	transform mgl64.Mat4
}

// childSnap is a child of a branch: a brush by order or a branch by index.
type childSnap struct {
	brush  int32
	branch int
	op     routing.Operation
}

type branchSnap struct {
	id       hierarchy.NodeID
	index    int
	children []childSnap
}

// snapshot is everything a pass reads from the engine, copied under the
// lock so that the pass can run without it.
type snapshot struct {
	gen    uint64
	passID string
	log    *slog.Logger

	order   []hierarchy.IndexOrder
	brushes []brushSnap
	// levels groups the branches by depth; the root is branch 0.
	levels   [][]branchSnap
	branches int

	feed    []FeedPair
	hasFeed bool
	caches  *cache.Caches
}

// passResult is what a pass hands back for committing.
type passResult struct {
	result  *Result
	caches  *cache.Caches
	records map[pairKey]*intersect.BrushIntersection
	err     error
}

func (e *Engine) snapshot() (*snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	passID := uuid.NewString()[:12]
	snap := &snapshot{
		gen:     e.generation,
		passID:  passID,
		log:     e.log.With("pass", passID),
		order:   e.tree.Brushes(),
		feed:    append([]FeedPair(nil), e.feed...),
		hasFeed: e.hasFeed,
		caches:  e.committed.caches.Clone(),
	}

	orders := make(map[hierarchy.NodeID]int32, len(snap.order))
	snap.brushes = make([]brushSnap, len(snap.order))
	for _, b := range snap.order {
		n, _ := e.tree.Node(b.ID)
		m, ok := e.tree.TreeTransform(b.ID)
		if !ok {
			return nil, fmt.Errorf("snapshot brush %v: %w", b.ID, hierarchy.ErrInvalidNode)
		}
		snap.brushes[b.Order] = brushSnap{id: b.ID, meshHash: n.MeshHash, transform: m}
		orders[b.ID] = b.Order
	}

	levels := e.tree.Levels()
	index := make(map[hierarchy.NodeID]int)
	for _, level := range levels {
		for _, id := range level {
			index[id] = len(index)
		}
	}
	snap.branches = len(index)
	snap.levels = make([][]branchSnap, len(levels))
	for d, level := range levels {
		for _, id := range level {
			b := branchSnap{id: id, index: index[id]}
			b.children = make([]childSnap, 0, e.tree.ChildCount(id))
			for _, child := range e.tree.Children(id) {
				n, _ := e.tree.Node(child)
				c := childSnap{brush: -1, branch: -1, op: n.Operation}
				if n.Kind == hierarchy.Brush {
					c.brush = orders[child]
				} else {
					c.branch = index[child]
				}
				b.children = append(b.children, c)
			}
			snap.levels[d] = append(snap.levels[d], b)
		}
	}
	return snap, nil
}

// wait waits for the pass on ch and commits its result if gen is still
// the current generation. On cancellation the pass may still be running;
// the generation check discards its result when it eventually completes.
func (e *Engine) wait(ctx context.Context, ch <-chan passResult, gen uint64) (*Result, error) {
	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return e.commit(res, gen)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && e.opts.UpdateTimeout > 0 {
			return nil, fmt.Errorf("update timed out after %s: %w", e.opts.UpdateTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("update: %w", ctx.Err())
	}
}

func (e *Engine) commit(res passResult, gen uint64) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		return nil, ErrSuperseded
	}
	e.version++
	res.result.Version = e.version
	e.committed = state{caches: res.caches, records: res.records, result: res.result}

	e.metrics.pairs.Set(float64(res.result.Pairs))
	e.metrics.excluded.Set(float64(len(res.result.Excluded)))
	e.metrics.fragments.Set(float64(len(res.result.Fragments)))
	e.metrics.invalidPairs.Add(float64(res.result.InvalidPairs))
	return res.result, nil
}
