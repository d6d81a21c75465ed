package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for the streaming pipeline.
// Each instance carries its own registry so independent pipelines (and
// tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	// Capture metrics
	BuffersCaptured prometheus.Counter
	BuffersDropped  prometheus.Counter

	// Connection metrics
	ConnectionState   prometheus.Gauge
	ConnectAttempts   prometheus.Counter
	ReconnectAttempts prometheus.Counter
	MessagesSent      prometheus.Counter
	ConnectDuration   prometheus.Histogram

	// Decode metrics
	MessagesDecoded   prometheus.Counter
	ParseErrors       prometheus.Counter
	TranscriptLatency prometheus.Histogram

	// Coordinator metrics
	EventsPublished     prometheus.Counter
	BuffersSentUpstream prometheus.Counter
}

// New creates and registers all pipeline metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		BuffersCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxtype_buffers_captured_total",
			Help: "Total number of audio buffers produced by capture",
		}),
		BuffersDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxtype_buffers_dropped_total",
			Help: "Total number of audio buffers dropped before transmission",
		}),

		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voxtype_connection_state",
			Help: "Current connection state (0 disconnected through 4 error)",
		}),
		ConnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxtype_connect_attempts_total",
			Help: "Total number of connection attempts",
		}),
		ReconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxtype_reconnect_attempts_total",
			Help: "Total number of automatic reconnection attempts",
		}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxtype_messages_sent_total",
			Help: "Total number of audio frames sent over the transport",
		}),
		ConnectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxtype_connect_duration_seconds",
			Help:    "Time from dial to completed handshake",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),

		MessagesDecoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxtype_messages_decoded_total",
			Help: "Total number of inbound messages decoded into transcript events",
		}),
		ParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxtype_parse_errors_total",
			Help: "Total number of malformed inbound messages",
		}),
		TranscriptLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxtype_transcript_latency_seconds",
			Help:    "Server-to-client latency of transcript messages",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),

		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxtype_events_published_total",
			Help: "Total number of transcript events delivered to subscribers",
		}),
		BuffersSentUpstream: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxtype_buffers_forwarded_total",
			Help: "Total number of audio buffers forwarded to the connection",
		}),
	}
}

// Registry exposes the underlying registry for the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
