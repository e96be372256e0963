package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "subscription_sync"

// Metrics holds the Prometheus collectors shared by clients, services and
// handlers.
type Metrics struct {
	webhooks            *prometheus.CounterVec
	recordsRequests     *prometheus.CounterVec
	syncRecords         *prometheus.CounterVec
	syncRuns            *prometheus.CounterVec
	mollieSubscriptions *prometheus.GaugeVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics, registering them on first use.
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
		prometheus.MustRegister(
			instance.webhooks,
			instance.recordsRequests,
			instance.syncRecords,
			instance.syncRuns,
			instance.mollieSubscriptions,
		)
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		webhooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhooks_total",
				Help:      "Webhooks received, by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		recordsRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_requests_total",
				Help:      "Requests to the records store, by operation and HTTP status.",
			},
			[]string{"operation", "status"},
		),
		syncRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_records_total",
				Help:      "Records processed by reconciliation runs, by result.",
			},
			[]string{"result"},
		),
		syncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Reconciliation runs, by trigger and outcome.",
			},
			[]string{"trigger", "outcome"},
		),
		mollieSubscriptions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mollie_subscriptions",
				Help:      "Subscriptions seen at the payment provider during the last monitor run, by status.",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) RecordWebhook(kind, outcome string) {
	m.webhooks.WithLabelValues(label(kind), label(outcome)).Inc()
}

// RecordRecordsRequest counts a records store call. A status of 0 means the
// request never got a response.
func (m *Metrics) RecordRecordsRequest(operation string, status int) {
	s := "error"
	if status > 0 {
		s = strconv.Itoa(status)
	}
	m.recordsRequests.WithLabelValues(label(operation), s).Inc()
}

func (m *Metrics) RecordSyncRecord(result string) {
	m.syncRecords.WithLabelValues(label(result)).Inc()
}

func (m *Metrics) RecordSyncRun(trigger, outcome string) {
	m.syncRuns.WithLabelValues(label(trigger), label(outcome)).Inc()
}

func (m *Metrics) SetMollieSubscriptions(counts map[string]int) {
	m.mollieSubscriptions.Reset()
	for status, n := range counts {
		m.mollieSubscriptions.WithLabelValues(label(status)).Set(float64(n))
	}
}

func label(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
