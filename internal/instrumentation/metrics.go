// Package instrumentation exposes Prometheus metrics for the tracker
// and wallet services. All methods are nil-safe so services can run
// without metrics wired (tests construct them bare).
package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the dashboard core.
type Metrics struct {
	TicksTotal          *prometheus.CounterVec
	ConsecutiveFailures prometheus.Gauge
	LastPrice           prometheus.Gauge
	WalletOpsTotal      *prometheus.CounterVec
	WalletOpErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TicksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bitdash_price_ticks_total",
			Help: "Total price tracker ticks by result",
		}, []string{"result"}),

		ConsecutiveFailures: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bitdash_price_consecutive_failures",
			Help: "Current number of consecutive fetch failures",
		}),

		LastPrice: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bitdash_bitcoin_price_usd",
			Help: "Last valid bitcoin price",
		}),

		WalletOpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bitdash_wallet_operations_total",
			Help: "Successful wallet operations by transaction type",
		}, []string{"type"}),

		WalletOpErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bitdash_wallet_operation_errors_total",
			Help: "Rejected wallet operations by transaction type",
		}, []string{"type"}),
	}
}

// RecordTick counts one tracker tick.
func (m *Metrics) RecordTick(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.TicksTotal.WithLabelValues(result).Inc()
}

// SetConsecutiveFailures updates the failure gauge.
func (m *Metrics) SetConsecutiveFailures(n int) {
	if m == nil {
		return
	}
	m.ConsecutiveFailures.Set(float64(n))
}

// SetLastPrice updates the price gauge. Display-only float conversion.
func (m *Metrics) SetLastPrice(price float64) {
	if m == nil {
		return
	}
	m.LastPrice.Set(price)
}

// RecordWalletOp counts one successful wallet operation.
func (m *Metrics) RecordWalletOp(txType string) {
	if m == nil {
		return
	}
	m.WalletOpsTotal.WithLabelValues(txType).Inc()
}

// RecordWalletOpError counts one rejected wallet operation.
func (m *Metrics) RecordWalletOpError(txType string) {
	if m == nil {
		return
	}
	m.WalletOpErrorsTotal.WithLabelValues(txType).Inc()
}
