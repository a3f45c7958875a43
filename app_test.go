package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radicalcsg/chisel/pkg/brushmesh"
	"github.com/radicalcsg/chisel/pkg/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Preview.Cells = 24
	return NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fragment(t *testing.T, res RunResult, brush string, polygon int) FragmentData {
	t.Helper()
	for _, f := range res.Fragments {
		if f.Brush == brush && f.Polygon == polygon {
			return f
		}
	}
	t.Fatalf("no fragment for polygon %d of %s", polygon, brush)
	return FragmentData{}
}

// TestE2ECavity exercises the full pipeline: scenario -> engine -> result
// data, the same path the run command takes.
func TestE2ECavity(t *testing.T) {
	app := newTestApp(t)
	res, err := app.Run(context.Background(), "cavity")
	require.NoError(t, err)

	ids := app.Brushes()
	require.Len(t, ids, 2)
	outer, inner := ids[0].String(), ids[1].String()

	assert.Equal(t, "cavity", res.Scenario)
	assert.NotEmpty(t, res.PassID)
	assert.Equal(t, 1, res.Pairs)
	assert.Empty(t, res.Excluded)
	require.Len(t, res.Fragments, 12)

	for _, f := range res.Fragments {
		assert.True(t, f.Visible, "brush %s polygon %d", f.Brush, f.Polygon)
		assert.Len(t, f.Vertices, 4)
		switch f.Brush {
		case outer:
			assert.Equal(t, "self-aligned", f.Category)
			assert.Equal(t, map[string]string{inner: "outside"}, f.Relative)
		case inner:
			assert.Equal(t, "self-reverse-aligned", f.Category)
			assert.Equal(t, map[string]string{outer: "inside"}, f.Relative)
		default:
			t.Errorf("unexpected brush %s", f.Brush)
		}
	}

	require.Len(t, res.Brushes, 2)
	assert.Equal(t, []string{inner}, res.Brushes[0].Touching)
	assert.Equal(t, []string{outer}, res.Brushes[1].Touching)
	assert.Equal(t, [3]float64{0.25, 0.25, 0.25}, res.Brushes[1].Min)
	assert.Equal(t, [3]float64{0.75, 0.75, 0.75}, res.Brushes[1].Max)
}

func TestE2EUnion(t *testing.T) {
	app := newTestApp(t)
	res, err := app.Run(context.Background(), "union")
	require.NoError(t, err)

	ids := app.Brushes()
	require.Len(t, ids, 2)
	a, b := ids[0].String(), ids[1].String()

	hidden := fragment(t, res, a, brushmesh.BoxPosX)
	assert.Equal(t, "inside", hidden.Category)
	assert.False(t, hidden.Visible)
	assert.Equal(t, [3]float64{1, 0, 0}, hidden.Normal)

	assert.Equal(t, "inside", fragment(t, res, b, brushmesh.BoxNegX).Category)
	assert.True(t, fragment(t, res, a, brushmesh.BoxNegX).Visible)
	assert.True(t, fragment(t, res, b, brushmesh.BoxPosX).Visible)
}

func TestE2EIntersect(t *testing.T) {
	app := newTestApp(t)
	res, err := app.Run(context.Background(), "intersect")
	require.NoError(t, err)

	ids := app.Brushes()
	a, b := ids[0].String(), ids[1].String()
	assert.Equal(t, "outside", fragment(t, res, a, brushmesh.BoxNegX).Category)
	assert.Equal(t, "self-aligned", fragment(t, res, a, brushmesh.BoxPosX).Category)
	assert.Equal(t, "self-aligned", fragment(t, res, b, brushmesh.BoxNegX).Category)
	assert.Equal(t, "outside", fragment(t, res, b, brushmesh.BoxPosX).Category)
}

func TestE2ENested(t *testing.T) {
	app := newTestApp(t)
	res, err := app.Run(context.Background(), "nested")
	require.NoError(t, err)

	ids := app.Brushes()
	require.Len(t, ids, 3)
	assert.Equal(t, 2, res.Pairs)
	assert.Len(t, res.Fragments, 18)

	for poly := 0; poly < 6; poly++ {
		assert.Equal(t, "self-aligned", fragment(t, res, ids[0].String(), poly).Category)
		for _, small := range ids[1:] {
			f := fragment(t, res, small.String(), poly)
			assert.Equal(t, "self-reverse-aligned", f.Category)
			assert.Len(t, f.Relative, 1, "the small cubes do not touch each other")
		}
	}

	// The group offset moves the first small cube to x = 0.125.
	assert.InDelta(t, 0.125, res.Brushes[1].Min[0], 1e-9)
	assert.InDelta(t, 0.625, res.Brushes[2].Min[0], 1e-9)
}

func TestE2EPreview(t *testing.T) {
	app := newTestApp(t)
	res, err := app.Preview("union")
	require.NoError(t, err)

	assert.Equal(t, "union", res.Scenario)
	assert.NotEmpty(t, res.Solid.Vertices)
	assert.Len(t, res.Solid.Normals, len(res.Solid.Vertices))
	assert.Equal(t, colorPalette[0], res.Solid.Color)

	require.Len(t, res.Brushes, 2)
	for i, m := range res.Brushes {
		assert.Equal(t, app.Brushes()[i].String(), m.Label)
		assert.NotEmpty(t, m.Indices)
		assert.NotEmpty(t, m.Color)
	}
}
