package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treeindex",
		Subsystem: "pipeline",
		Name:      "jobs_total",
		Help:      "Build jobs finished, by final status.",
	}, []string{"status"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "treeindex",
		Subsystem: "pipeline",
		Name:      "queue_depth",
		Help:      "Jobs waiting for a worker.",
	})
)
