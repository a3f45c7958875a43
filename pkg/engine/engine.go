// Package engine runs the brush categorization pipeline over an operation
// tree. Each Update takes a snapshot of the tree, works on a copy of the
// per-brush caches and commits the copy only if no newer edit or update
// started in the meantime.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/cache"
	"github.com/radicalcsg/chisel/pkg/hierarchy"
	"github.com/radicalcsg/chisel/pkg/intersect"
	"github.com/radicalcsg/chisel/pkg/routing"
)

var tracer = otel.Tracer("chisel.engine")

var (
	// ErrNoResult is returned by queries made before the first committed
	// pass.
	ErrNoResult = errors.New("engine: no committed update")
	// ErrExcluded is returned for brushes whose mesh is missing or invalid.
	ErrExcluded = errors.New("engine: brush excluded from the pass")
)

// Options configures an Engine.
type Options struct {
	// Workers bounds the goroutines of each parallel phase; zero means
	// GOMAXPROCS.
	Workers int
	// BruteForcePairs classifies every pair of brushes instead of querying
	// the broad-phase tree.
	BruteForcePairs bool
	// UpdateTimeout bounds a single Update; zero means no limit.
	UpdateTimeout time.Duration
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// Registerer receives the engine's collectors; nil registers them on a
	// private registry.
	Registerer prometheus.Registerer
}

// state is what a committed pass leaves behind.
type state struct {
	caches  *cache.Caches
	records map[pairKey]*intersect.BrushIntersection
	result  *Result
}

// pairKey names the record of brush self against brush other.
type pairKey struct {
	self, other int32
}

// Engine owns an operation tree, its meshes and the caches of the last
// committed pass. It is safe for concurrent use.
type Engine struct {
	mu         sync.Mutex
	tree       *hierarchy.Hierarchy
	meshes     *brushmesh.Registry
	feed       []FeedPair
	hasFeed    bool
	generation uint64
	version    uint64
	committed  state

	opts    Options
	log     *slog.Logger
	metrics *metrics

	// afterPhase, when set, is called after every phase of a pass.
	afterPhase func(phase string)
	// compose replaces routing.ComposeBranch when set.
	compose func(self int32, children []routing.Automaton, ops []routing.Operation) (routing.Automaton, error)
}

// New returns an engine with an empty tree.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.NewRegistry()
	}
	return &Engine{
		tree:      hierarchy.New(),
		meshes:    brushmesh.NewRegistry(),
		committed: state{caches: cache.New()},
		opts:      opts,
		log:       opts.Logger,
		metrics:   newMetrics(opts.Registerer),
	}
}

// AddMesh registers m and returns the hash brush nodes refer to it by.
func (e *Engine) AddMesh(m *brushmesh.Mesh) uint64 {
	return e.meshes.Add(m)
}

// Meshes returns the registry brush nodes refer to their meshes in.
func (e *Engine) Meshes() *brushmesh.Registry {
	return e.meshes
}

// Edit runs fn with exclusive access to the tree. Any edit supersedes a
// pass that is still running.
func (e *Engine) Edit(fn func(h *hierarchy.Hierarchy) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return fn(e.tree)
}

// View runs fn with read access to the tree. fn must not modify it.
func (e *Engine) View(fn func(h *hierarchy.Hierarchy)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.tree)
}

// SetIntersectionFeed replaces the broad phase with the given pairs from
// the next pass on. A nil feed restores the broad phase.
func (e *Engine) SetIntersectionFeed(pairs []FeedPair) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	e.feed = append([]FeedPair(nil), pairs...)
	e.hasFeed = pairs != nil
}

// Output returns the result of the last committed pass.
func (e *Engine) Output() (*Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed.result, e.committed.result != nil
}

// BrushBounds returns the tree-space bounds of brush id as of the last
// committed pass.
func (e *Engine) BrushBounds(id hierarchy.NodeID) (brushmesh.AABB, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.committed.caches.Entry(id)
	if !ok || !entry.Populated || !entry.Valid {
		return brushmesh.AABB{}, false
	}
	return entry.Bounds, true
}

// BrushesAt returns the brushes of the last committed pass whose volume
// contains p, in brush order. Points on a surface count as inside.
func (e *Engine) BrushesAt(p mgl64.Vec3) []hierarchy.NodeID {
	e.mu.Lock()
	caches := e.committed.caches
	e.mu.Unlock()

	eps := brushmesh.FatPlaneWidthEpsilon
	var out []hierarchy.NodeID
	for i := range caches.Entries {
		entry := &caches.Entries[i]
		if !entry.Valid || !entry.Bounds.ContainsPoint(p, eps) {
			continue
		}
		inside := true
		for _, pl := range entry.TreePlanes {
			if !brushmesh.IsZeroPlane(pl) && brushmesh.PlaneDistance(pl, p) > eps {
				inside = false
				break
			}
		}
		if inside {
			out = append(out, entry.ID)
		}
	}
	return out
}

// CategorizeFragment routes a fragment of brush id through the brush's
// routing table of the last committed pass. plane is the index of the
// brush polygon the fragment lies on; vertices are in tree space. This is
// the entry point for clippers that split polygons further than the
// pipeline does.
func (e *Engine) CategorizeFragment(id hierarchy.NodeID, plane int, vertices []mgl64.Vec3) (routing.CategoryIndex, error) {
	if len(vertices) == 0 {
		return routing.None, errors.New("engine: fragment has no vertices")
	}

	e.mu.Lock()
	st := e.committed
	e.mu.Unlock()

	if st.result == nil {
		return routing.None, ErrNoResult
	}
	order, ok := st.caches.Order(id)
	if !ok {
		return routing.None, fmt.Errorf("categorize %v: %w", id, hierarchy.ErrInvalidNode)
	}
	entry := &st.caches.Entries[order]
	if !entry.Valid || entry.Routing == nil {
		return routing.None, fmt.Errorf("categorize %v: %w", id, ErrExcluded)
	}
	if plane < 0 || plane >= len(entry.TreePlanes) {
		return routing.None, fmt.Errorf("categorize %v: plane %d out of range", id, plane)
	}

	var centroid mgl64.Vec3
	for _, v := range vertices {
		centroid = centroid.Add(v)
	}
	centroid = centroid.Mul(1 / float64(len(vertices)))

	frag := fragment{order: order, plane: int32(plane), treePlane: entry.TreePlanes[plane], centroid: centroid}
	c, _ := entry.Routing.Evaluate(func(brush int32) routing.CategoryIndex {
		return frag.against(brush, st.caches.Entries, st.records)
	})
	return c, nil
}

// Update runs one pass over the current tree and commits it. It returns
// ErrSuperseded when an edit or another update started while it ran; the
// committed state is then left as it was.
func (e *Engine) Update(ctx context.Context) (*Result, error) {
	start := time.Now()
	if e.opts.UpdateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.UpdateTimeout)
		defer cancel()
	}

	snap, err := e.snapshot()
	if err != nil {
		e.metrics.updates.WithLabelValues(outcomeFailed).Inc()
		return nil, err
	}

	ch := make(chan passResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- passResult{err: fmt.Errorf("panic during update: %v", r)}
			}
		}()
		ch <- e.run(ctx, snap)
	}()

	res, err := e.wait(ctx, ch, snap.gen)
	e.metrics.duration.Observe(time.Since(start).Seconds())
	switch {
	case errors.Is(err, ErrSuperseded):
		e.metrics.updates.WithLabelValues(outcomeSuperseded).Inc()
		snap.log.Info("update superseded")
	case err != nil:
		e.metrics.updates.WithLabelValues(outcomeFailed).Inc()
		snap.log.Error("update failed", "error", err)
	default:
		e.metrics.updates.WithLabelValues(outcomeCommitted).Inc()
	}
	return res, err
}
