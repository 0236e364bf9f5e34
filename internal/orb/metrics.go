package orb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeEmitted   = "emitted"
	outcomeDropped   = "dropped"
	outcomeFiltered  = "filtered"
	outcomeRecovered = "recovered"
)

var (
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orb_pipeline_runs_total",
			Help: "Total number of pipeline runs per symbol",
		},
		[]string{"symbol", "status"}, // "success" or "error"
	)

	pipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orb_pipeline_duration_seconds",
			Help:    "Duration of a full pipeline run for one symbol",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"symbol"},
	)

	daysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orb_days_total",
			Help: "Trading days processed per session by outcome",
		},
		[]string{"session", "outcome"},
	)
)
