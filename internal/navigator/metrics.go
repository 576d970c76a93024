package navigator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var selectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "treeindex",
	Subsystem: "navigator",
	Name:      "selections_total",
	Help:      "Navigator selections by outcome",
}, []string{"outcome"})
