package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records stock and pricing activity.
type EngineMetrics struct {
	movements         *prometheus.CounterVec
	insufficientStock *prometheus.CounterVec
	conflicts         *prometheus.CounterVec
	pricingDuration   *prometheus.HistogramVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Stock ledger entries recorded, by movement type.",
	}, []string{"type"})
	insufficientStock := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_insufficient_total",
		Help: "Movements rejected for insufficient stock, by movement type.",
	}, []string{"type"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_tx_conflicts_total",
		Help: "Transactions retried or aborted on lock conflicts, by operation.",
	}, []string{"operation"})
	pricingDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_calc_duration_seconds",
		Help:    "Duration of pricing calculations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"scheme"})
	reg.MustRegister(movements, insufficientStock, conflicts, pricingDuration)
	return &EngineMetrics{
		movements:         movements,
		insufficientStock: insufficientStock,
		conflicts:         conflicts,
		pricingDuration:   pricingDuration,
	}
}

// IncMovement increments the ledger counter for the given movement type.
func (m *EngineMetrics) IncMovement(movementType string) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(movementType)).Inc()
}

// IncInsufficientStock increments the rejection counter for the given movement type.
func (m *EngineMetrics) IncInsufficientStock(movementType string) {
	if m == nil || m.insufficientStock == nil {
		return
	}
	m.insufficientStock.WithLabelValues(normalizeLabel(movementType)).Inc()
}

// IncConflict increments the conflict counter for the named operation.
func (m *EngineMetrics) IncConflict(operation string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObservePricing records the duration of a pricing calculation for the scheme.
func (m *EngineMetrics) ObservePricing(scheme string, duration time.Duration) {
	if m == nil || m.pricingDuration == nil {
		return
	}
	m.pricingDuration.WithLabelValues(normalizeLabel(scheme)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
