package service

import (
	"time"

	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "offerd"

type metrics struct {
	transactions *prometheus.CounterVec
	applyLatency prometheus.Histogram
	sequence     prometheus.Gauge
}

// newMetrics builds the service collectors and registers them with reg
// when it is not nil.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transactions_total",
			Help:      "Submitted transactions by engine result.",
		}, []string{"result"}),
		applyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "apply_duration_seconds",
			Help:      "Time spent applying one transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		sequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_sequence",
			Help:      "Current committed ledger sequence.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.transactions, m.applyLatency, m.sequence} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) observe(res tx.ApplyResult, elapsed time.Duration) {
	m.transactions.WithLabelValues(res.Result.String()).Inc()
	m.applyLatency.Observe(elapsed.Seconds())
}
