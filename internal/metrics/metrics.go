package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Metrics exposes the engine's prometheus instruments.
type Metrics struct {
	DeliveriesRecorded prometheus.Counter
	DeliveriesReplayed prometheus.Counter
	DeliveryFailures   *prometheus.CounterVec
	EarningsSnapshots  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		DeliveriesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "settled_deliveries_recorded_total",
			Help: "Delivery events that created a payout item and credited a balance.",
		}),
		DeliveriesReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "settled_deliveries_replayed_total",
			Help: "Delivery events already recorded; returned success without effect.",
		}),
		DeliveryFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "settled_delivery_failures_total",
			Help: "Delivery events rejected, by reason.",
		}, []string{"reason"}),
		EarningsSnapshots: promauto.NewCounter(prometheus.CounterOpts{
			Name: "settled_earnings_snapshots_total",
			Help: "Categorized earnings snapshots served.",
		}),
	}
}

func (m *Metrics) IncFailure(reason string) {
	if m == nil {
		return
	}
	m.DeliveryFailures.WithLabelValues(reason).Inc()
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
