// internal/blockchain/solbc/transaction/metrics.go
package transaction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	successCounter    prometheus.Counter
	failureCounter    *prometheus.CounterVec
	durationHistogram prometheus.Histogram
}

// NewMetrics создаёт метрики и регистрирует их в reg. При reg == nil метрики не регистрируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		successCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hybrid_swap_tx_success_total",
			Help: "Total number of confirmed transactions",
		}),
		failureCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hybrid_swap_tx_failure_total",
			Help: "Total number of failed transactions by stage",
		}, []string{"stage"}),
		durationHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hybrid_swap_tx_duration_seconds",
			Help:    "Time from build to confirmation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(m.successCounter, m.failureCounter, m.durationHistogram)
	}
	return m
}

func (m *Metrics) TrackTransaction(start time.Time) {
	m.durationHistogram.Observe(time.Since(start).Seconds())
}

func (m *Metrics) success() {
	m.successCounter.Inc()
}

func (m *Metrics) failure(stage string) {
	m.failureCounter.WithLabelValues(stage).Inc()
}
