package moderation

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks verdict outcomes, provider failures and provider latency.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Verdicts        *prometheus.CounterVec
	ProviderErrors  *prometheus.CounterVec
	QuickChecks     *prometheus.CounterVec
	ProviderLatency prometheus.Histogram
}

// NewMetrics registers the moderation metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moderation_verdicts_total",
			Help: "Total verdicts produced by Moderate, by source and outcome",
		}, []string{"source", "allowed"}),
		ProviderErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moderation_provider_errors_total",
			Help: "Provider failures that triggered the rule-based fallback",
		}, []string{"kind"}),
		QuickChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "moderation_quick_checks_total",
			Help: "Total quick checks, by outcome",
		}, []string{"allowed"}),
		ProviderLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "moderation_provider_duration_seconds",
			Help:    "Duration of provider classification calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) observeVerdict(v Verdict) {
	if m == nil {
		return
	}
	m.Verdicts.WithLabelValues(string(v.Source), strconv.FormatBool(v.Allowed)).Inc()
}

func (m *Metrics) observeProviderError(kind ErrorKind) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) observeQuickCheck(allowed bool) {
	if m == nil {
		return
	}
	m.QuickChecks.WithLabelValues(strconv.FormatBool(allowed)).Inc()
}

// Call with time.Now() at the start of the provider call.
func (m *Metrics) observeProvider(start time.Time) {
	if m == nil {
		return
	}
	m.ProviderLatency.Observe(time.Since(start).Seconds())
}
