package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics of the sync hub. Each collector owns
// its registry so tests can build as many as they need.
type Collector struct {
	registry *prometheus.Registry

	// Connection metrics
	Connections     prometheus.Gauge
	HandshakeDenied *prometheus.CounterVec

	// Command metrics
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	RateLimited     prometheus.Counter

	// Fanout metrics
	BroadcastSent    prometheus.Counter
	BroadcastDropped prometheus.Counter

	// Monitor reporter metrics
	ReportsDropped prometheus.Counter
}

// NewCollector creates a collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of open sockets",
		}),
		HandshakeDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshake_denied_total",
			Help:      "Socket handshakes refused, by reason",
		}, []string{"reason"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Client commands handled, by type and outcome",
		}, []string{"type", "outcome"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent handling a client command",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Commands rejected by the per-user rate limiter",
		}),
		BroadcastSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_sent_total",
			Help:      "Frames queued to client sockets",
		}),
		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_dropped_total",
			Help:      "Frames dropped because a client send buffer was full",
		}),
		ReportsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_reports_dropped_total",
			Help:      "Monitoring reports dropped because the queue was full or the breaker was open",
		}),
	}

	registry.MustRegister(
		c.Connections,
		c.HandshakeDenied,
		c.Commands,
		c.CommandDuration,
		c.RateLimited,
		c.BroadcastSent,
		c.BroadcastDropped,
		c.ReportsDropped,
	)
	return c
}

// Registry returns the Prometheus registry for this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
