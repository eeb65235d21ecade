package stats

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "quickexpense"

type metrics struct {
	applications      *prometheus.CounterVec
	confidence        prometheus.Histogram
	averageConfidence prometheus.Gauge
	resets            prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		applications: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rule_applications_total",
				Help:      "Total number of line items categorized, by rule",
			},
			[]string{"rule", "fallback"},
		)),
		confidence: register(reg, prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "categorization_confidence",
				Help:      "Confidence score of categorization results",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		)),
		averageConfidence: register(reg, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "categorization_average_confidence",
				Help:      "Running average confidence since the last statistics reset",
			},
		)),
		resets: register(reg, prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rule_statistics_resets_total",
				Help:      "Number of times rule statistics were reset",
			},
		)),
	}
}

func (m *metrics) observe(ruleID string, isFallback bool, confidence, average float64) {
	m.applications.WithLabelValues(ruleID, strconv.FormatBool(isFallback)).Inc()
	m.confidence.Observe(confidence)
	m.averageConfidence.Set(average)
}

func (m *metrics) reset() {
	m.averageConfidence.Set(0)
	m.resets.Inc()
}

// register adds c to reg, reusing an identical collector that is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
