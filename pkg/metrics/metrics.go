// Package metrics collects and exposes Prometheus metrics for the
// signaling server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers matchmaking and transport metrics.
type Collector struct {
	matchesFormed prometheus.Counter
	matchFailures prometheus.Counter
	joinsRejected prometheus.Counter
	signalsRelay  *prometheus.CounterVec
	queueDepth    prometheus.Gauge
	activeRooms   prometheus.Gauge
	connections   prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		matchesFormed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vcall_matches_formed_total",
			Help: "Total number of rooms created by the matchmaker",
		}),
		matchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vcall_match_failures_total",
			Help: "Total number of pairings abandoned because a queued connection had died",
		}),
		joinsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vcall_joins_rejected_total",
			Help: "Total number of join_queue requests rejected for a reused identity",
		}),
		signalsRelay: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vcall_signals_relayed_total",
			Help: "Total number of negotiation frames relayed, by event type",
		}, []string{"type"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vcall_queue_depth",
			Help: "Number of identities currently waiting to be paired",
		}),
		activeRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vcall_active_rooms",
			Help: "Number of active two-party rooms",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vcall_connections",
			Help: "Number of live WebSocket connections",
		}),
	}

	reg.MustRegister(
		c.matchesFormed,
		c.matchFailures,
		c.joinsRejected,
		c.signalsRelay,
		c.queueDepth,
		c.activeRooms,
		c.connections,
	)

	return c
}

func (c *Collector) RecordMatchFormed() {
	c.matchesFormed.Inc()
}

func (c *Collector) RecordMatchFailure() {
	c.matchFailures.Inc()
}

func (c *Collector) RecordJoinRejected() {
	c.joinsRejected.Inc()
}

func (c *Collector) RecordSignalRelayed(eventType string) {
	c.signalsRelay.WithLabelValues(eventType).Inc()
}

func (c *Collector) SetQueueDepth(n int) {
	c.queueDepth.Set(float64(n))
}

func (c *Collector) SetActiveRooms(n int) {
	c.activeRooms.Set(float64(n))
}

func (c *Collector) SetConnections(n int) {
	c.connections.Set(float64(n))
}

// Handler returns the HTTP handler serving Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
