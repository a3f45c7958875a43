package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/cache"
	"github.com/radicalcsg/chisel/pkg/hierarchy"
	"github.com/radicalcsg/chisel/pkg/intersect"
)

// pass is the working state of one run of the pipeline.
type pass struct {
	snap    *snapshot
	meshes  *brushmesh.Registry
	caches  *cache.Caches
	inputs  []intersect.BrushInput
	pairs   []intersect.BrushPair
	records map[pairKey]*intersect.BrushIntersection
	touched []intersect.TouchedBrushes
	// dirty marks, by order, the brushes whose pairs cannot be carried
	// over from the previous pass.
	dirty  []bool
	result *Result
}

// phase runs fn inside a span named after the phase.
func (e *Engine) phase(ctx context.Context, p *pass, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "engine."+name, trace.WithAttributes(
		attribute.String("pass", p.snap.passID),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", name, err)
	}
	p.snap.log.Debug("phase done", "phase", name)
	if e.afterPhase != nil {
		e.afterPhase(name)
	}
	return nil
}

// run executes every phase of a pass on the snapshot's own caches.
func (e *Engine) run(ctx context.Context, snap *snapshot) passResult {
	ctx, span := tracer.Start(ctx, "engine.Update", trace.WithAttributes(
		attribute.String("pass", snap.passID),
		attribute.Int("brushes", len(snap.order)),
	))
	defer span.End()

	p := &pass{
		snap:   snap,
		meshes: e.meshes,
		caches: snap.caches,
		result: &Result{PassID: snap.passID},
	}

	phases := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"remap", p.remap},
		{"refresh", p.refresh},
		{"pairs", e.findPairs(p)},
		{"preprocess", e.preprocess(p)},
		{"routing", e.route(p)},
		{"categorize", e.categorize(p)},
	}
	for _, ph := range phases {
		if err := e.phase(ctx, p, ph.name, ph.fn); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return passResult{err: err}
		}
	}

	span.SetAttributes(
		attribute.Int("pairs", p.result.Pairs),
		attribute.Int("fragments", len(p.result.Fragments)),
	)
	snap.log.Info("update done",
		"brushes", len(snap.order),
		"pairs", p.result.Pairs,
		"invalid_pairs", p.result.InvalidPairs,
		"excluded", len(p.result.Excluded),
		"fragments", len(p.result.Fragments),
		"reused", p.result.Reused,
		"reused_pairs", p.result.ReusedPairs,
		"unrouted", len(p.result.Unrouted),
	)
	return passResult{result: p.result, caches: p.caches, records: p.records}
}

// remap moves the cached entries to the new brush order.
func (p *pass) remap(context.Context) error {
	p.result.Remap = p.caches.Remap(p.snap.order)
	if r := p.result.Remap; r.Changed {
		p.snap.log.Debug("caches remapped",
			"removed", len(r.Removed),
			"added", len(r.Added),
			"needs_update", len(r.NeedsUpdate),
		)
	}
	return nil
}

// refresh derives the tree-space geometry of every brush, reusing the
// previous pass's when neither the mesh nor the transform changed. Brushes
// with a missing or invalid mesh are excluded. Rebuilt brushes and those
// that lost a touching brush in the remap are marked dirty.
func (p *pass) refresh(context.Context) error {
	p.inputs = make([]intersect.BrushInput, len(p.snap.brushes))
	p.dirty = make([]bool, len(p.snap.brushes))
	for _, o := range p.result.Remap.NeedsUpdate {
		p.dirty[o] = true
	}
	for i, b := range p.snap.brushes {
		order := int32(i)
		entry := &p.caches.Entries[order]
		mesh, found := p.meshes.Get(b.meshHash)

		if entry.Populated && entry.ID == b.id && entry.MeshHash == b.meshHash && entry.Transform == b.transform && found {
			p.result.Reused++
		} else {
			p.dirty[order] = true
			*entry = cache.BrushCache{
				ID:        b.id,
				Populated: true,
				MeshHash:  b.meshHash,
				Transform: b.transform,
				Inverse:   b.transform.Inv(),
			}
			if found && mesh.IsValid() {
				entry.Valid = true
				entry.TreePlanes = make([]mgl64.Vec4, len(mesh.Planes))
				for j, pl := range mesh.Planes {
					entry.TreePlanes[j] = brushmesh.TransformPlane(b.transform, pl)
				}
				entry.Bounds = brushmesh.TransformAABB(b.transform, mesh.Bounds)
			}
		}

		in := intersect.BrushInput{
			Order:     order,
			Transform: entry.Transform,
			Inverse:   entry.Inverse,
			Bounds:    entry.Bounds,
		}
		if entry.Valid {
			in.Mesh = mesh
		} else {
			p.result.Excluded = append(p.result.Excluded, b.id)
			p.snap.log.Warn("brush excluded", "brush", b.id.String(), "mesh", b.meshHash, "registered", found)
		}
		p.inputs[order] = in
	}
	return nil
}

// findPairs collects the intersecting pairs from the feed, the broad phase
// or brute force.
func (e *Engine) findPairs(p *pass) func(context.Context) error {
	return func(context.Context) error {
		switch {
		case p.snap.hasFeed:
			p.pairs = p.feedPairs()
		case e.opts.BruteForcePairs:
			p.pairs = intersect.AllPairs(p.inputs)
		default:
			p.pairs = intersect.BroadPhase(p.inputs)
		}
		p.result.Pairs = len(p.pairs)
		return nil
	}
}

// feedPairs resolves the fed pairs to orders. Pairs naming unknown or
// excluded brushes, self pairs and NoIntersection pairs are dropped; a
// pair given twice keeps its first type.
func (p *pass) feedPairs() []intersect.BrushPair {
	var pairs []intersect.BrushPair
	seen := make(map[[2]int32]bool)
	for _, f := range p.snap.feed {
		a, okA := p.caches.Order(f.A)
		b, okB := p.caches.Order(f.B)
		if !okA || !okB || a == b || f.Type == intersect.NoIntersection {
			continue
		}
		if p.inputs[a].Mesh == nil || p.inputs[b].Mesh == nil {
			continue
		}
		pair := intersect.BrushPair{A: a, B: b, Type: f.Type}.Normalized()
		key := [2]int32{pair.A, pair.B}
		if seen[key] {
			continue
		}
		seen[key] = true
		pairs = append(pairs, pair)
	}
	slices.SortFunc(pairs, func(x, y intersect.BrushPair) int {
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})
	return pairs
}

// preprocess prepares the pairs that cannot be carried over from the
// previous pass and records the touched sets.
func (e *Engine) preprocess(p *pass) func(context.Context) error {
	return func(ctx context.Context) error {
		p.records = make(map[pairKey]*intersect.BrushIntersection, 2*len(p.pairs))
		var stale []intersect.BrushPair
		for _, pair := range p.pairs {
			a, b, ok := p.carried(pair)
			if !ok {
				stale = append(stale, pair)
				continue
			}
			p.records[pairKey{pair.A, pair.B}] = a
			p.records[pairKey{pair.B, pair.A}] = b
			p.result.ReusedPairs++
		}
		p.result.PreprocessedPairs = len(stale)

		results, err := intersect.PreprocessAll(ctx, stale, p.inputs, e.opts.Workers)
		if err != nil {
			return err
		}
		for i := range results {
			r := &results[i]
			if !r.Valid() {
				p.result.InvalidPairs++
				continue
			}
			p.records[pairKey{r.Pair.A, r.Pair.B}] = &r.A
			p.records[pairKey{r.Pair.B, r.Pair.A}] = &r.B
		}

		for i := range p.caches.Entries {
			p.caches.Entries[i].Records = nil
		}
		for key, rec := range p.records {
			entry := &p.caches.Entries[key.self]
			if entry.Records == nil {
				entry.Records = make(map[hierarchy.NodeID]*intersect.BrushIntersection)
			}
			entry.Records[p.snap.brushes[key.other].id] = rec
		}

		p.touched = intersect.BuildTouched(p.pairs, len(p.inputs))
		for i := range p.touched {
			entry := &p.caches.Entries[i]
			if p.dirty[i] || !sameTouching(&entry.Touching, &p.touched[i]) {
				p.result.Updated = append(p.result.Updated, entry.ID)
			}
			entry.Touching = p.touched[i].Clone()
		}
		return nil
	}
}

// carried returns the records of pair kept from the previous pass. Both
// brushes must be unchanged and the records must agree with the pair's
// type. The copies carry the current orders.
func (p *pass) carried(pair intersect.BrushPair) (a, b *intersect.BrushIntersection, ok bool) {
	if p.dirty[pair.A] || p.dirty[pair.B] {
		return nil, nil, false
	}
	ea, eb := &p.caches.Entries[pair.A], &p.caches.Entries[pair.B]
	ra, okA := ea.Records[eb.ID]
	rb, okB := eb.Records[ea.ID]
	if !okA || !okB || ra.Type != pair.Type || rb.Type != pair.Type.Flip() {
		return nil, nil, false
	}
	return rebased(ra, pair.A, pair.B), rebased(rb, pair.B, pair.A), true
}

func rebased(rec *intersect.BrushIntersection, self, other int32) *intersect.BrushIntersection {
	if rec.Order == self && rec.Other == other {
		return rec
	}
	r := *rec
	r.Order, r.Other = self, other
	return &r
}

func sameTouching(a, b *intersect.TouchedBrushes) bool {
	orders := a.Orders()
	if !slices.Equal(orders, b.Orders()) {
		return false
	}
	for _, o := range orders {
		if a.Get(o) != b.Get(o) {
			return false
		}
	}
	return true
}

func (p *pass) ids(orders []int32) []hierarchy.NodeID {
	out := make([]hierarchy.NodeID, len(orders))
	for i, o := range orders {
		out[i] = p.snap.brushes[o].id
	}
	return out
}

// brushOutputs fills the per-brush summary of the result.
func (p *pass) brushOutputs() {
	p.result.Brushes = make([]BrushOutput, len(p.snap.brushes))
	for i, b := range p.snap.brushes {
		entry := &p.caches.Entries[i]
		out := BrushOutput{
			ID:       b.id,
			Order:    int32(i),
			Bounds:   entry.Bounds,
			Valid:    entry.Valid,
			Touching: p.ids(entry.Touching.Orders()),
		}
		if entry.Routing != nil {
			out.Routing = p.ids(entry.Routing.Brushes())
		}
		p.result.Brushes[i] = out
	}
}

