package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trend classifies the direction of the last price change for a holding
type Trend string

const (
	TrendUnchanged Trend = "unchanged"
	TrendUp        Trend = "up"
	TrendDown      Trend = "down"
)

// TrendOf returns the trend for a price change; only the sign matters.
func TrendOf(change decimal.Decimal) Trend {
	switch change.Sign() {
	case 1:
		return TrendUp
	case -1:
		return TrendDown
	default:
		return TrendUnchanged
	}
}

// Holding represents one owned stock position as shown on the dashboard
type Holding struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	InvestedAmount decimal.Decimal `json:"invested_amount"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	ProfitLoss     decimal.Decimal `json:"profit_loss"`
	ProfitLossPct  decimal.Decimal `json:"profit_loss_pct"`
	Trend          Trend           `json:"trend"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PortfolioSummary holds the aggregate figures over all holdings
type PortfolioSummary struct {
	TotalCurrentValue  decimal.Decimal `json:"total_current_value"`
	TotalInvestment    decimal.Decimal `json:"total_investment"`
	TotalProfitLoss    decimal.Decimal `json:"total_profit_loss"`
	TotalProfitLossPct decimal.Decimal `json:"total_profit_loss_pct"`
	Positive           bool            `json:"positive"`
	Holdings           int             `json:"holdings"`
	ComputedAt         time.Time       `json:"computed_at"`
}

// HoldingsEvent represents a Kafka message with a holdings snapshot
type HoldingsEvent struct {
	EventType string            `json:"event_type"`
	Source    string            `json:"source"`
	Timestamp string            `json:"timestamp"`
	Data      HoldingsEventData `json:"data"`
}

// HoldingsEventData contains the holdings of one user
type HoldingsEventData struct {
	Username string        `json:"username"`
	Holdings []HoldingData `json:"holdings"`
}

// HoldingData represents a single holding as sent on the wire
type HoldingData struct {
	ID             string `json:"id"`
	Symbol         string `json:"symbol"`
	Name           string `json:"name"`
	Quantity       string `json:"quantity"`
	AveragePrice   string `json:"average_price"`
	InvestedAmount string `json:"invested_amount"`
	CurrentPrice   string `json:"current_price"`
}
