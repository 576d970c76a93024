package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treeindex",
		Subsystem: "llm",
		Name:      "calls_total",
		Help:      "Inference calls by provider and outcome",
	}, []string{"provider", "outcome"})

	callLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "treeindex",
		Subsystem: "llm",
		Name:      "call_duration_seconds",
		Help:      "Inference call latency in seconds",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
	}, []string{"provider"})
)

// Instrumented wraps a Generator, recording every call into the rolling
// LLMStats window and the Prometheus collectors.
type Instrumented struct {
	next     Generator
	provider string
	stats    *LLMStats
}

func NewInstrumented(next Generator, provider string, stats *LLMStats) *Instrumented {
	if stats == nil {
		stats = NewLLMStats(time.Hour)
	}
	return &Instrumented{next: next, provider: provider, stats: stats}
}

// Stats exposes the latency window backing /api/stats/llm.
func (i *Instrumented) Stats() *LLMStats {
	return i.stats
}

// Provider returns the provider label of the wrapped client.
func (i *Instrumented) Provider() string {
	return i.provider
}

// Model returns the wrapped client's model name, or "" if it does not report one.
func (i *Instrumented) Model() string {
	if m, ok := i.next.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

func (i *Instrumented) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	start := time.Now()
	resp, err := i.next.Generate(ctx, prompt, opts)
	elapsed := time.Since(start)

	failed := err != nil || resp == nil || resp.Text == ""
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	i.stats.Record(elapsed.Milliseconds(), failed)
	callsTotal.WithLabelValues(i.provider, outcome).Inc()
	callLatency.WithLabelValues(i.provider).Observe(elapsed.Seconds())
	return resp, err
}
