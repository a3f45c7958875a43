package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"

	"github.com/radicalcsg/chisel/pkg/config"
	"github.com/radicalcsg/chisel/pkg/engine"
	"github.com/radicalcsg/chisel/pkg/hierarchy"
	"github.com/radicalcsg/chisel/pkg/kernel"
	"github.com/radicalcsg/chisel/pkg/kernel/sdfx"
	"github.com/radicalcsg/chisel/pkg/preview"
)

// colorPalette is a default palette used to assign distinct colors to brushes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs scenarios through the engine and converts what comes out into
// JSON-serializable data.
type App struct {
	cfg     config.Config
	log     *slog.Logger
	kernel  kernel.Kernel
	engine  *engine.Engine
	brushes []hierarchy.NodeID
}

// FragmentData is one categorized polygon.
type FragmentData struct {
	Brush    string            `json:"brush"`
	Polygon  int               `json:"polygon"`
	Category string            `json:"category"`
	Visible  bool              `json:"visible"`
	Normal   [3]float64        `json:"normal"`
	Vertices [][3]float64      `json:"vertices"`
	Relative map[string]string `json:"relative,omitempty"`
}

// BrushData summarizes one brush of a pass.
type BrushData struct {
	ID       string     `json:"id"`
	Valid    bool       `json:"valid"`
	Min      [3]float64 `json:"min"`
	Max      [3]float64 `json:"max"`
	Touching []string   `json:"touching"`
	Routing  []string   `json:"routing"`
}

// RunResult is the outcome of one update pass.
type RunResult struct {
	Scenario     string         `json:"scenario"`
	PassID       string         `json:"passId"`
	Version      uint64         `json:"version"`
	Pairs        int            `json:"pairs"`
	InvalidPairs int            `json:"invalidPairs"`
	Excluded     []string       `json:"excluded"`
	Unrouted     []string       `json:"unrouted,omitempty"`
	Brushes      []BrushData    `json:"brushes"`
	Fragments    []FragmentData `json:"fragments"`
}

// MeshData is the JSON-serializable mesh format.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Label    string    `json:"label"`
	Color    string    `json:"color"`
}

// PreviewResult holds the mesh of the whole tree followed by one mesh per
// brush.
type PreviewResult struct {
	Scenario string     `json:"scenario"`
	Solid    MeshData   `json:"solid"`
	Brushes  []MeshData `json:"brushes"`
}

// NewApp creates an App with an empty engine and the sdfx kernel.
func NewApp(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, log: logger, kernel: sdfx.New()}
	a.reset()
	return a
}

func (a *App) reset() {
	a.engine = engine.New(engine.Options{
		Workers:         a.cfg.Workers,
		BruteForcePairs: !a.cfg.BroadPhase,
		UpdateTimeout:   a.cfg.UpdateTimeout,
		Logger:          a.log,
	})
	a.brushes = nil
}

// Engine returns the engine the App currently drives.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Brushes returns the brush ids of the loaded scenario in creation order.
func (a *App) Brushes() []hierarchy.NodeID {
	return a.brushes
}

// Load replaces the current tree with the named scenario.
func (a *App) Load(name string) error {
	s, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q (known: %v)", name, scenarioNames())
	}
	a.reset()
	ids, err := s.build(a.engine)
	if err != nil {
		return fmt.Errorf("build scenario %s: %w", name, err)
	}
	a.brushes = ids
	a.log.Debug("scenario loaded", "scenario", name, "brushes", len(ids))
	return nil
}

// Run updates the engine and converts the committed result.
func (a *App) Run(ctx context.Context, name string) (RunResult, error) {
	if err := a.Load(name); err != nil {
		return RunResult{}, err
	}
	res, err := a.engine.Update(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("update: %w", err)
	}
	return toRunResult(name, res), nil
}

func vec3(v mgl64.Vec3) [3]float64 {
	return [3]float64{v.X(), v.Y(), v.Z()}
}

func idStrings(ids []hierarchy.NodeID) []string {
	return lo.Map(ids, func(id hierarchy.NodeID, _ int) string { return id.String() })
}

func toRunResult(name string, res *engine.Result) RunResult {
	out := RunResult{
		Scenario:     name,
		PassID:       res.PassID,
		Version:      res.Version,
		Pairs:        res.Pairs,
		InvalidPairs: res.InvalidPairs,
		Excluded:     idStrings(res.Excluded),
		Unrouted:     idStrings(res.Unrouted),
		Brushes:      make([]BrushData, 0, len(res.Brushes)),
		Fragments:    make([]FragmentData, 0, len(res.Fragments)),
	}
	for _, b := range res.Brushes {
		out.Brushes = append(out.Brushes, BrushData{
			ID:       b.ID.String(),
			Valid:    b.Valid,
			Min:      vec3(b.Bounds.Min),
			Max:      vec3(b.Bounds.Max),
			Touching: idStrings(b.Touching),
			Routing:  idStrings(b.Routing),
		})
	}
	for _, f := range res.Fragments {
		fd := FragmentData{
			Brush:    f.Brush.String(),
			Polygon:  f.Polygon,
			Category: f.Category.String(),
			Visible:  f.Visible,
			Normal:   [3]float64{f.Plane.X(), f.Plane.Y(), f.Plane.Z()},
			Vertices: lo.Map(f.Vertices, func(v mgl64.Vec3, _ int) [3]float64 { return vec3(v) }),
		}
		if len(f.Relative) > 0 {
			fd.Relative = make(map[string]string, len(f.Relative))
			for _, r := range f.Relative {
				fd.Relative[r.Brush.String()] = r.Category.String()
			}
		}
		out.Fragments = append(out.Fragments, fd)
	}
	return out
}

// Preview meshes the named scenario with the kernel.
func (a *App) Preview(name string) (PreviewResult, error) {
	if err := a.Load(name); err != nil {
		return PreviewResult{}, err
	}

	var (
		solid   *kernel.Mesh
		brushes []*kernel.Mesh
		err     error
	)
	a.engine.View(func(h *hierarchy.Hierarchy) {
		solid, err = preview.Tessellate(h, a.engine.Meshes(), a.kernel, a.cfg.Preview.Cells)
		if err != nil {
			return
		}
		brushes, err = preview.Brushes(h, a.engine.Meshes(), a.kernel, a.cfg.Preview.Cells)
	})
	if err != nil {
		return PreviewResult{}, fmt.Errorf("preview %s: %w", name, err)
	}

	out := PreviewResult{
		Scenario: name,
		Solid:    toMeshData(solid, colorPalette[0]),
		Brushes:  make([]MeshData, 0, len(brushes)),
	}
	for i, m := range brushes {
		out.Brushes = append(out.Brushes, toMeshData(m, colorPalette[(i+1)%len(colorPalette)]))
	}
	return out, nil
}

func toMeshData(m *kernel.Mesh, color string) MeshData {
	return MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		Label:    m.Label,
		Color:    color,
	}
}
