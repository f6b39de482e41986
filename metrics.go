package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sequential-thinking/thought"
)

// Metrics exposes tool activity on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// thoughts counts accepted thoughts by tool and kind (main, revision, branch)
	thoughts *prometheus.CounterVec

	// toolErrors counts failed tool calls by tool and error kind
	toolErrors *prometheus.CounterVec

	// toolDuration tracks handler latency
	toolDuration *prometheus.HistogramVec

	historyLength  prometheus.Gauge
	branchesActive prometheus.Gauge
	tracesDropped  prometheus.Counter
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		thoughts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sequential_thinking_thoughts_total",
			Help: "Accepted thoughts by tool and kind",
		}, []string{"tool", "kind"}),
		toolErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sequential_thinking_tool_errors_total",
			Help: "Failed tool calls by tool and error kind",
		}, []string{"tool", "kind"}),
		toolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sequential_thinking_tool_duration_seconds",
			Help:    "Tool handler duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8), // 0.1ms to ~1.6s
		}, []string{"tool"}),
		historyLength: f.NewGauge(prometheus.GaugeOpts{
			Name: "sequential_thinking_history_length",
			Help: "Records in the thought history",
		}),
		branchesActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "sequential_thinking_branches_active",
			Help: "Distinct branches in the thought history",
		}),
		tracesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "sequential_thinking_traces_dropped_total",
			Help: "Traces discarded because the trace queue was full",
		}),
	}
}

func thoughtKind(res thought.ThinkResult) string {
	switch {
	case res.IsRevision:
		return "revision"
	case res.BranchID != "":
		return "branch"
	default:
		return "main"
	}
}

// ObserveThought records an accepted thought.
func (m *Metrics) ObserveThought(tool string, res thought.ThinkResult) {
	if m == nil {
		return
	}
	m.thoughts.WithLabelValues(tool, thoughtKind(res)).Inc()
	m.historyLength.Set(float64(res.HistoryLength))
	m.branchesActive.Set(float64(len(res.BranchesActive)))
}

// ObserveError records a failed tool call.
func (m *Metrics) ObserveError(tool string, kind thought.Kind) {
	if m == nil {
		return
	}
	m.toolErrors.WithLabelValues(tool, string(kind)).Inc()
}

// ObserveDuration records how long a handler ran.
func (m *Metrics) ObserveDuration(tool string, start time.Time) {
	if m == nil {
		return
	}
	m.toolDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
}

// TraceDropped counts a trace lost to a full queue.
func (m *Metrics) TraceDropped() {
	if m == nil {
		return
	}
	m.tracesDropped.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
