// Package metrics exposes prometheus instrumentation for the dispatch engine
// and the connection servers. All methods are nil-safe so instrumentation can
// be left out entirely.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type EngineMetrics struct {
	enqueued   *prometheus.CounterVec
	processed  *prometheus.CounterVec
	failed     *prometheus.CounterVec
	queueDepth *prometheus.GaugeVec
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abcihub",
			Subsystem: "buffer",
			Name:      "requests_enqueued_total",
			Help:      "Requests accepted into a category queue.",
		}, []string{"category"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abcihub",
			Subsystem: "buffer",
			Name:      "requests_processed_total",
			Help:      "Requests the application finished processing.",
		}, []string{"category"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abcihub",
			Subsystem: "buffer",
			Name:      "requests_failed_total",
			Help:      "Requests that resolved with an error.",
		}, []string{"category"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "abcihub",
			Subsystem: "buffer",
			Name:      "queue_depth",
			Help:      "Current number of pending requests per category queue.",
		}, []string{"category"}),
	}

	reg.MustRegister(m.enqueued, m.processed, m.failed, m.queueDepth)
	return m
}

func (m *EngineMetrics) IncEnqueued(category string) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(category).Inc()
}

func (m *EngineMetrics) IncProcessed(category string) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(category).Inc()
}

func (m *EngineMetrics) IncFailed(category string) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(category).Inc()
}

func (m *EngineMetrics) SetQueueDepth(category string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(category).Set(float64(depth))
}

type ServerMetrics struct {
	connectionsOpen  prometheus.Gauge
	connectionsTotal *prometheus.CounterVec
	requestsTotal    *prometheus.CounterVec
	decodeErrors     *prometheus.CounterVec
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	m := &ServerMetrics{
		connectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "abcihub",
			Subsystem: "server",
			Name:      "connections_open",
			Help:      "Currently open consensus engine connections.",
		}),
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abcihub",
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Connections accepted since start.",
		}, []string{"transport"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abcihub",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Requests answered per transport.",
		}, []string{"transport"}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abcihub",
			Subsystem: "server",
			Name:      "decode_errors_total",
			Help:      "Connections dropped because of malformed frames.",
		}, []string{"transport"}),
	}

	reg.MustRegister(m.connectionsOpen, m.connectionsTotal, m.requestsTotal, m.decodeErrors)
	return m
}

func (m *ServerMetrics) ConnOpened(transport string) {
	if m == nil {
		return
	}
	m.connectionsOpen.Inc()
	m.connectionsTotal.WithLabelValues(transport).Inc()
}

func (m *ServerMetrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connectionsOpen.Dec()
}

func (m *ServerMetrics) IncRequests(transport string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(transport).Inc()
}

func (m *ServerMetrics) IncDecodeErrors(transport string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(transport).Inc()
}
