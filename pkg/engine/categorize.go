package engine

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/cache"
	"github.com/radicalcsg/chisel/pkg/intersect"
	"github.com/radicalcsg/chisel/pkg/routing"
)

// fragment is a piece of polygon plane of brush order, reduced to what
// categorization needs.
type fragment struct {
	order     int32
	plane     int32
	treePlane mgl64.Vec4
	centroid  mgl64.Vec3
}

// against returns the category of f relative to brush. The centroid
// decides: in front of any plane is Outside, behind all of them Inside. A
// centroid on a plane takes the alignment the pair preprocessing found for
// the fragment's plane, falling back to comparing the planes directly.
func (f fragment) against(brush int32, entries []cache.BrushCache, records map[pairKey]*intersect.BrushIntersection) routing.CategoryIndex {
	if brush == f.order {
		return routing.SelfAligned
	}
	if brush < 0 || int(brush) >= len(entries) || !entries[brush].Valid {
		return routing.Outside
	}

	eps := brushmesh.FatPlaneWidthEpsilon
	var on, aligned, reverse bool
	for _, pl := range entries[brush].TreePlanes {
		if brushmesh.IsZeroPlane(pl) {
			continue
		}
		d := brushmesh.PlaneDistance(pl, f.centroid)
		if d > eps {
			return routing.Outside
		}
		if d < -eps {
			continue
		}
		on = true
		switch {
		case brushmesh.PlanesAligned(f.treePlane, pl):
			aligned = true
		case brushmesh.PlanesReverseAligned(f.treePlane, pl):
			reverse = true
		}
	}
	if !on {
		return routing.Inside
	}

	if rec, ok := records[pairKey{f.order, brush}]; ok {
		if s, ok := rec.Surface(f.plane); ok {
			switch s.InteriorCategory {
			case routing.Aligned, routing.ReverseAligned:
				return s.InteriorCategory
			}
		}
	}
	switch {
	case aligned:
		return routing.Aligned
	case reverse:
		return routing.ReverseAligned
	}
	return routing.Inside
}

// categorize routes every polygon of every valid brush through the brush's
// routing table. Polygons are not split; each is one fragment.
func (e *Engine) categorize(p *pass) func(context.Context) error {
	return func(ctx context.Context) error {
		perBrush := make([][]SurfaceFragment, len(p.inputs))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers())
		for i, in := range p.inputs {
			if in.Mesh == nil {
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				perBrush[i] = p.brushFragments(int32(i), in)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, frags := range perBrush {
			p.result.Fragments = append(p.result.Fragments, frags...)
		}
		return nil
	}
}

func (p *pass) brushFragments(order int32, in intersect.BrushInput) []SurfaceFragment {
	entry := &p.caches.Entries[order]
	mesh := in.Mesh
	out := make([]SurfaceFragment, 0, len(mesh.Polygons))
	for poly := range mesh.Polygons {
		points := mesh.PolygonPoints(poly)
		for j, v := range points {
			points[j] = mgl64.TransformCoordinate(v, in.Transform)
		}
		f := fragment{
			order:     order,
			plane:     int32(poly),
			treePlane: entry.TreePlanes[poly],
			centroid:  mgl64.TransformCoordinate(mesh.PolygonCentroid(poly), in.Transform),
		}

		var relative []RelativeCategory
		c, ok := entry.Routing.Evaluate(func(brush int32) routing.CategoryIndex {
			cat := f.against(brush, p.caches.Entries, p.records)
			relative = append(relative, RelativeCategory{Brush: p.snap.brushes[brush].id, Category: cat})
			return cat
		})
		if !ok {
			c = routing.None
		}
		out = append(out, SurfaceFragment{
			Brush:    entry.ID,
			Order:    order,
			Polygon:  poly,
			Plane:    f.treePlane,
			Vertices: points,
			Surface:  mesh.Polygons[poly].Surface,
			Category: c,
			Visible:  c.IsVisible(),
			Relative: relative,
		})
	}
	return out
}
