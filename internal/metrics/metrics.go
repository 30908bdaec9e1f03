package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_generations_started_total",
		Help: "Generation requests accepted, per surface.",
	}, []string{"surface"})

	GenerationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_generations_failed_total",
		Help: "Generation requests that ended in an error, per surface.",
	}, []string{"surface"})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studio_generation_duration_seconds",
		Help:    "Wall time of completed generations, per surface.",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"surface"})

	AssetsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studio_assets_live",
		Help: "Assets currently held in the collection.",
	})
)
