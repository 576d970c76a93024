package graphsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var graphWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "treeindex",
	Subsystem: "graphsync",
	Name:      "writes_total",
	Help:      "Graph writes by kind (node, edge) and outcome",
}, []string{"kind", "outcome"})
