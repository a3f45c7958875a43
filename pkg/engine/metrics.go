package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCommitted  = "committed"
	outcomeSuperseded = "superseded"
	outcomeFailed     = "failed"
)

type metrics struct {
	updates      *prometheus.CounterVec
	duration     prometheus.Histogram
	pairs        prometheus.Gauge
	invalidPairs prometheus.Counter
	excluded     prometheus.Gauge
	fragments    prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		updates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chisel_updates_total",
			Help: "Update passes by outcome.",
		}, []string{"outcome"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chisel_update_duration_seconds",
			Help:    "Duration of update passes.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		pairs: f.NewGauge(prometheus.GaugeOpts{
			Name: "chisel_brush_pairs",
			Help: "Intersecting brush pairs in the last committed pass.",
		}),
		invalidPairs: f.NewCounter(prometheus.CounterOpts{
			Name: "chisel_invalid_pairs_total",
			Help: "Pairs whose preprocessing produced invalid records.",
		}),
		excluded: f.NewGauge(prometheus.GaugeOpts{
			Name: "chisel_excluded_brushes",
			Help: "Brushes excluded for a missing or invalid mesh in the last committed pass.",
		}),
		fragments: f.NewGauge(prometheus.GaugeOpts{
			Name: "chisel_fragments",
			Help: "Surface fragments in the last committed pass.",
		}),
	}
}
