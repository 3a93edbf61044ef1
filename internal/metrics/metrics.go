// Package metrics exposes narration pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rcliao/happy-days/internal/model"
	"github.com/rcliao/happy-days/internal/narration"
)

type jobKey struct {
	id  model.ID
	gen uint64
}

// Collector counts pipeline events and measures how long a committed
// narration waits for its transcript. It uses its own registry.
type Collector struct {
	registry *prometheus.Registry

	Events               *prometheus.CounterVec
	TranscriptionLatency prometheus.Histogram
	Memories             prometheus.Gauge

	mu      sync.Mutex
	pending map[jobKey]narration.Event
}

// NewCollector creates a collector with metric names under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narration_events_total",
			Help:      "Narration pipeline events by kind",
		},
		[]string{"kind"},
	)

	latency := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_latency_seconds",
			Help:      "Time from narration commit to transcript commit",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	memories := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memories",
			Help:      "Memories in the store after the last load",
		},
	)

	registry.MustRegister(events, latency, memories)

	return &Collector{
		registry:             registry,
		Events:               events,
		TranscriptionLatency: latency,
		Memories:             memories,
		pending:              make(map[jobKey]narration.Event),
	}
}

// Publish implements narration.EventSink.
func (c *Collector) Publish(e narration.Event) {
	c.Events.WithLabelValues(e.Kind.String()).Inc()

	key := jobKey{e.MemoryID, e.Generation}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Kind {
	case narration.NarrationCommitted:
		c.pending[key] = e
	case narration.TranscriptCommitted:
		if start, ok := c.pending[key]; ok {
			c.TranscriptionLatency.Observe(e.At.Sub(start.At).Seconds())
		}
		delete(c.pending, key)
	case narration.TranscriptDiscarded, narration.TranscriptionFailed:
		delete(c.pending, key)
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
