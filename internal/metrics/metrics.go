// Package metrics holds the Prometheus collectors for the upload pipeline
// and portrait generation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pawtrait"

// Registry is the registry every collector in this package is registered on.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Uploads counts capture attempts by path (inline, remote, api, drop) and result.
	Uploads = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Total number of photo capture attempts",
	}, []string{"path", "result"})

	// Rejections counts validation failures by reason.
	Rejections = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_rejections_total",
		Help:      "Total number of photos rejected by validation",
	}, []string{"reason"})

	// HandoffOps counts hand-off store operations by op and result.
	HandoffOps = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "handoff",
		Name:      "operations_total",
		Help:      "Total number of hand-off store operations",
	}, []string{"op", "result"})

	// FallbackResizes counts quota overflows recovered by downscaling.
	FallbackResizes = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "handoff",
		Name:      "fallback_resizes_total",
		Help:      "Total number of hand-off images downscaled after a quota overflow",
	})

	// DroppedHandoffs counts images lost after the downscaled write also failed.
	DroppedHandoffs = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "handoff",
		Name:      "dropped_total",
		Help:      "Total number of hand-off images dropped after fallback failure",
	})

	// Portraits counts generated portraits by provider and result.
	Portraits = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "portraits_total",
		Help:      "Total number of portrait generation attempts",
	}, []string{"provider", "result"})

	// GenerationDuration observes provider latency.
	GenerationDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "portrait_generation_seconds",
		Help:      "Portrait generation duration in seconds",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"provider"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
