// Package wapmetrics exposes wapbox's Prometheus metrics.
package wapmetrics

import "github.com/prometheus/client_golang/prometheus"

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const namespace = "wapbox"

// Label names.
const (
	labelLayer  = "layer"
	labelResult = "result"
)

// -------------------------------------------------------------------------
// Collector — Prometheus wapbox Metrics
// -------------------------------------------------------------------------

// Collector holds all wapbox Prometheus metrics.
type Collector struct {
	// Transactions counts completed WTP transactions, labeled by layer
	// ("responder"|"initiator") and result ("ok"|"abort"|"timeout").
	Transactions *prometheus.CounterVec

	// Retransmits counts WTP PDU retransmissions per layer.
	Retransmits *prometheus.CounterVec

	// Sessions tracks the number of currently active WSP sessions.
	Sessions prometheus.Gauge

	// Methods counts completed WSP method transactions by result.
	Methods *prometheus.CounterVec

	// TimerFires counts timer wheel deliveries.
	TimerFires prometheus.Counter

	// HeartbeatLoad1 reports the one-minute load average last sent to
	// the bearerbox in a heartbeat message (spec.md Section 6).
	HeartbeatLoad1 prometheus.Gauge

	// BearerboxReconnects counts bearerbox control-channel reconnect
	// attempts.
	BearerboxReconnects prometheus.Counter
}

// NewCollector creates a Collector with all wapbox metrics registered
// against reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Transactions,
		c.Retransmits,
		c.Sessions,
		c.Methods,
		c.TimerFires,
		c.HeartbeatLoad1,
		c.BearerboxReconnects,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	return &Collector{
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wtp",
			Name:      "transactions_total",
			Help:      "Total WTP transactions completed, labeled by layer and result.",
		}, []string{labelLayer, labelResult}),

		Retransmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wtp",
			Name:      "retransmits_total",
			Help:      "Total WTP PDU retransmissions, labeled by layer.",
		}, []string{labelLayer}),

		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "wsp",
			Name:      "sessions",
			Help:      "Number of currently active WSP sessions.",
		}),

		Methods: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wsp",
			Name:      "methods_total",
			Help:      "Total WSP method transactions completed, labeled by result.",
		}, []string{labelResult}),

		TimerFires: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "timer",
			Name:      "fires_total",
			Help:      "Total timer wheel deliveries.",
		}),

		HeartbeatLoad1: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heartbeat_load1",
			Help:      "One-minute load average last reported to the bearerbox.",
		}),

		BearerboxReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bearerbox",
			Name:      "reconnects_total",
			Help:      "Total bearerbox control-channel reconnect attempts.",
		}),
	}
}

// -------------------------------------------------------------------------
// Recording helpers
// -------------------------------------------------------------------------

// RecordTransaction increments the transaction counter for layer/result.
func (c *Collector) RecordTransaction(layer, result string) {
	c.Transactions.WithLabelValues(layer, result).Inc()
}

// RecordRetransmit increments the retransmit counter for layer.
func (c *Collector) RecordRetransmit(layer string) {
	c.Retransmits.WithLabelValues(layer).Inc()
}

// SessionCreated increments the active session gauge.
func (c *Collector) SessionCreated() { c.Sessions.Inc() }

// SessionDestroyed decrements the active session gauge.
func (c *Collector) SessionDestroyed() { c.Sessions.Dec() }

// RecordMethod increments the method counter for result ("ok"|"abort").
func (c *Collector) RecordMethod(result string) {
	c.Methods.WithLabelValues(result).Inc()
}

// RecordTimerFire increments the timer fire counter.
func (c *Collector) RecordTimerFire() { c.TimerFires.Inc() }

// SetHeartbeatLoad1 records the load average sent in the most recent
// heartbeat.
func (c *Collector) SetHeartbeatLoad1(load1 float64) { c.HeartbeatLoad1.Set(load1) }

// RecordBearerboxReconnect increments the bearerbox reconnect counter.
func (c *Collector) RecordBearerboxReconnect() { c.BearerboxReconnects.Inc() }
