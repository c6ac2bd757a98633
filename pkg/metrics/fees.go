package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fee response outcomes recorded by the synchronizer.
const (
	OutcomeApplied     = "applied"
	OutcomeStale       = "stale"
	OutcomeUnsupported = "unsupported"
	OutcomeFailed      = "failed"
)

// FeeMetrics records shipping-fee request activity. A nil receiver is a no-op.
type FeeMetrics struct {
	requests  *prometheus.CounterVec
	responses *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewFeeMetrics registers the fee metrics on the provided registerer.
func NewFeeMetrics(reg prometheus.Registerer) *FeeMetrics {
	if reg == nil {
		return &FeeMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fee_requests_total",
		Help: "Shipping fee requests issued, by trigger.",
	}, []string{"trigger"})
	responses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fee_responses_total",
		Help: "Shipping fee responses, by reconciliation outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fee_request_duration_seconds",
		Help:    "Round trip of shipping fee requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	reg.MustRegister(requests, responses, duration)
	return &FeeMetrics{
		requests:  requests,
		responses: responses,
		duration:  duration,
	}
}

// IncRequest counts a dispatched fee request.
func (m *FeeMetrics) IncRequest(trigger string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncResponse counts a completed fee request by outcome.
func (m *FeeMetrics) IncResponse(outcome string) {
	if m == nil || m.responses == nil {
		return
	}
	m.responses.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDuration records the round trip of one fee request.
func (m *FeeMetrics) ObserveDuration(trigger string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(trigger)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
