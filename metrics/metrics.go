// Package metrics provides Prometheus collectors for throttle gates.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gate holds the collectors shared by every gate reporting into one registry.
// A nil *Gate is valid and records nothing.
type Gate struct {
	// Wait tracks how long callers waited to be admitted.
	Wait *prometheus.HistogramVec

	// Work tracks how long admitted work ran, excluding the trailing delay.
	Work *prometheus.HistogramVec

	// Calls counts admissions by outcome: success, error, cancelled or rejected.
	Calls *prometheus.CounterVec

	// Waiting tracks callers currently blocked on the slot.
	Waiting *prometheus.GaugeVec
}

// New registers the gate collectors with reg. Passing nil registers
// with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Gate {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Gate{
		Wait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tgthrottle_gate_wait_seconds",
			Help:    "Time callers spent waiting for the gate slot",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}, []string{"gate"}),

		Work: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tgthrottle_gate_work_seconds",
			Help:    "Duration of work executed under the gate",
			Buckets: prometheus.DefBuckets,
		}, []string{"gate", "operation"}),

		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tgthrottle_gate_calls_total",
			Help: "Total number of calls through the gate",
		}, []string{"gate", "operation", "outcome"}),

		Waiting: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tgthrottle_gate_waiting",
			Help: "Callers currently waiting for the gate slot",
		}, []string{"gate"}),
	}
}

// ObserveWait records the time a caller spent waiting for admission.
func (m *Gate) ObserveWait(gate string, d time.Duration) {
	if m == nil {
		return
	}
	m.Wait.WithLabelValues(gate).Observe(d.Seconds())
}

// ObserveWork records the duration of admitted work.
func (m *Gate) ObserveWork(gate, operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.Work.WithLabelValues(gate, operation).Observe(d.Seconds())
}

// RecordCall records a call with its outcome.
func (m *Gate) RecordCall(gate, operation, outcome string) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(gate, operation, outcome).Inc()
}

// WaitStarted marks a caller as blocked on the slot and returns a func
// undoing it.
func (m *Gate) WaitStarted(gate string) func() {
	if m == nil {
		return func() {}
	}
	g := m.Waiting.WithLabelValues(gate)
	g.Inc()
	return g.Dec
}
