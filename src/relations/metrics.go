package relations

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors updated by With
type Metrics struct {
	BatchFetches *prometheus.CounterVec
	Duration     prometheus.Histogram
	Unmatched    *prometheus.CounterVec
}

// NewMetrics registers the relationship collectors with reg. Collectors that
// are already registered are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syndrrel",
			Subsystem: "relations",
			Name:      "batch_fetches_total",
			Help:      "Batched any-of queries issued to resolve relationships.",
		}, []string{"bundle"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "syndrrel",
			Subsystem: "relations",
			Name:      "with_duration_seconds",
			Help:      "Time spent resolving relationships in a With call.",
			Buckets:   prometheus.DefBuckets,
		}),
		Unmatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "syndrrel",
			Subsystem: "relations",
			Name:      "unmatched_total",
			Help:      "Rows left without a related document.",
		}, []string{"bundle"}),
	}

	m.BatchFetches = register(reg, m.BatchFetches)
	m.Duration = register(reg, m.Duration)
	m.Unmatched = register(reg, m.Unmatched)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) fetched(bundle string) {
	if m == nil {
		return
	}
	m.BatchFetches.WithLabelValues(bundle).Inc()
}

func (m *Metrics) unmatched(bundle string, n int) {
	if m == nil {
		return
	}
	m.Unmatched.WithLabelValues(bundle).Add(float64(n))
}

func (m *Metrics) observe(start time.Time) {
	if m == nil {
		return
	}
	m.Duration.Observe(time.Since(start).Seconds())
}
