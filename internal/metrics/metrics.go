// Package metrics holds the Prometheus instruments for the dashboard.
// All methods are safe on a nil *Metrics so components can run without them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics holds all Prometheus metrics for the dashboard
type Metrics struct {
	registry *prometheus.Registry

	PriceUpdatesTotal   prometheus.Counter
	HoldingsUpdated     prometheus.Counter
	HoldingsSkipped     prometheus.Counter
	PortfolioValue      prometheus.Gauge
	PortfolioProfitLoss prometheus.Gauge

	LiveConnected  prometheus.Gauge
	LiveReconnects prometheus.Counter
	LiveMessages   *prometheus.CounterVec // labels: result=ok|invalid

	PriceLookups *prometheus.CounterVec // labels: result=ok|not_found|error
	SellRequests *prometheus.CounterVec // labels: result=ok|error
	KafkaEvents  *prometheus.CounterVec // labels: topic, result=ok|error
}

// New creates and registers all metrics on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PriceUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_price_updates_total",
			Help: "Price updates applied to the row model",
		}),
		HoldingsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_holdings_updated_total",
			Help: "Holding rows recomputed after a price update",
		}),
		HoldingsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_holdings_skipped_total",
			Help: "Malformed holding rows skipped during a price update",
		}),
		PortfolioValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_portfolio_value",
			Help: "Total current value of the portfolio",
		}),
		PortfolioProfitLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_portfolio_profit_loss",
			Help: "Total profit or loss of the portfolio",
		}),
		LiveConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_live_connected",
			Help: "1 while the live price channel is connected",
		}),
		LiveReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_live_reconnects_total",
			Help: "Reconnection attempts of the live price channel",
		}),
		LiveMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_live_messages_total",
			Help: "Messages received on the live price channel",
		}, []string{"result"}),
		PriceLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_price_lookups_total",
			Help: "Current price lookups against the backend",
		}, []string{"result"}),
		SellRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_sell_requests_total",
			Help: "Sell requests submitted to the backend",
		}, []string{"result"}),
		KafkaEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_kafka_events_total",
			Help: "Kafka messages processed",
		}, []string{"topic", "result"}),
	}

	m.registry.MustRegister(
		m.PriceUpdatesTotal,
		m.HoldingsUpdated,
		m.HoldingsSkipped,
		m.PortfolioValue,
		m.PortfolioProfitLoss,
		m.LiveConnected,
		m.LiveReconnects,
		m.LiveMessages,
		m.PriceLookups,
		m.SellRequests,
		m.KafkaEvents,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObservePriceUpdate(updated, skipped int) {
	if m == nil {
		return
	}
	m.PriceUpdatesTotal.Inc()
	m.HoldingsUpdated.Add(float64(updated))
	m.HoldingsSkipped.Add(float64(skipped))
}

func (m *Metrics) ObserveSummary(value, profitLoss decimal.Decimal) {
	if m == nil {
		return
	}
	m.PortfolioValue.Set(value.InexactFloat64())
	m.PortfolioProfitLoss.Set(profitLoss.InexactFloat64())
}

func (m *Metrics) SetLiveConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.LiveConnected.Set(1)
	} else {
		m.LiveConnected.Set(0)
	}
}

func (m *Metrics) IncLiveReconnect() {
	if m == nil {
		return
	}
	m.LiveReconnects.Inc()
}

func (m *Metrics) IncLiveMessage(result string) {
	if m == nil {
		return
	}
	m.LiveMessages.WithLabelValues(result).Inc()
}

func (m *Metrics) IncPriceLookup(result string) {
	if m == nil {
		return
	}
	m.PriceLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) IncSellRequest(result string) {
	if m == nil {
		return
	}
	m.SellRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) IncKafkaEvent(topic, result string) {
	if m == nil {
		return
	}
	m.KafkaEvents.WithLabelValues(topic, result).Inc()
}
