package treeindex

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treeindex",
		Subsystem: "build",
		Name:      "total",
		Help:      "Tree index builds by method and outcome",
	}, []string{"method", "outcome"})

	buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "treeindex",
		Subsystem: "build",
		Name:      "duration_seconds",
		Help:      "Successful tree index build latency",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"method"})
)
