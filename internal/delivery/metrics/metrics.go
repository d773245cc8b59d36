package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the delivery module.
type Metrics struct {
	Evaluations        *prometheus.CounterVec
	Rejections         *prometheus.CounterVec
	DeliveriesRecorded prometheus.Counter
	PersistenceErrors  prometheus.Counter
	HistoryCacheHits   prometheus.Counter
	HistoryCacheMisses prometheus.Counter
}

// New creates and registers the delivery metrics.
func New() *Metrics {
	return &Metrics{
		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cobal_evaluations_total",
			Help: "Delivery eligibility evaluations by outcome",
		}, []string{"outcome"}),
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cobal_rejections_total",
			Help: "Per-item rule violations by code",
		}, []string{"code"}),
		DeliveriesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cobal_deliveries_recorded_total",
			Help: "Deliveries accepted and durably recorded",
		}),
		PersistenceErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cobal_delivery_persistence_errors_total",
			Help: "Accepted deliveries that failed to persist",
		}),
		HistoryCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cobal_history_cache_hits_total",
			Help: "Delivery history lookups served from cache",
		}),
		HistoryCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cobal_history_cache_misses_total",
			Help: "Delivery history lookups that fell through to storage",
		}),
	}
}
