// Package metrics provides Prometheus instrumentation for the stock market.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersCreated counts queued orders, partitioned by operation.
	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockmarket_orders_created_total",
		Help: "Total number of orders queued",
	}, []string{"operation"})

	// OrdersCancelled counts orders removed by their owner.
	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockmarket_orders_cancelled_total",
		Help: "Total number of orders cancelled",
	})

	// OrdersSettled counts processed orders by operation and result (success, failed, error).
	OrdersSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockmarket_orders_settled_total",
		Help: "Total number of orders settled",
	}, []string{"operation", "result"})

	// SettlementDuration tracks whole batch duration.
	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stockmarket_settlement_duration_seconds",
		Help:    "Settlement batch duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	// MarketOpen is 1 while the market accepts orders.
	MarketOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stockmarket_market_open",
		Help: "1 when the market is open, 0 when closed",
	})

	// StockHistoryAppended counts price changes recorded by feed imports.
	StockHistoryAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockmarket_stock_history_appended_total",
		Help: "Stock history rows appended by price feed imports",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetMarketOpen mirrors the gate state into the gauge.
func SetMarketOpen(open bool) {
	if open {
		MarketOpen.Set(1)
		return
	}
	MarketOpen.Set(0)
}
