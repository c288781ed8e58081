package render

import (
	"time"

	"github.com/trogers1052/portfolio-dashboard/internal/models"
	"github.com/trogers1052/portfolio-dashboard/internal/portfolio"
)

// Visual classes for rows and the summary
const (
	ClassUp        = "up"
	ClassDown      = "down"
	ClassUnchanged = "unchanged"
	ClassPositive  = "positive"
	ClassNegative  = "negative"
)

// Status labels for the live channel indicator
const (
	StatusLive         = "Live Updates"
	StatusDisconnected = "Disconnected"
)

// Row is one holding formatted for display
type Row struct {
	ID             string `json:"id"`
	Symbol         string `json:"symbol"`
	Name           string `json:"name,omitempty"`
	Quantity       string `json:"quantity"`
	InvestedAmount string `json:"invested_amount"`
	CurrentPrice   string `json:"current_price"`
	CurrentValue   string `json:"current_value"`
	ProfitLoss     string `json:"profit_loss"`
	ProfitLossPct  string `json:"profit_loss_pct"`
	// TrendClass reflects the last price change, ResultClass the sign of P/L.
	TrendClass  string `json:"trend_class"`
	ResultClass string `json:"result_class"`
}

// Summary is the aggregate figures formatted for display
type Summary struct {
	TotalCurrentValue  string    `json:"total_current_value"`
	TotalInvestment    string    `json:"total_investment"`
	TotalProfitLoss    string    `json:"total_profit_loss"`
	TotalProfitLossPct string    `json:"total_profit_loss_pct"`
	Class              string    `json:"class"`
	Holdings           int       `json:"holdings"`
	ComputedAt         time.Time `json:"computed_at"`
}

// Dashboard is a fully formatted projection of a snapshot
type Dashboard struct {
	Rows    []Row   `json:"rows"`
	Summary Summary `json:"summary"`
}

// TrendClass maps a trend onto its visual class
func TrendClass(t models.Trend) string {
	switch t {
	case models.TrendUp:
		return ClassUp
	case models.TrendDown:
		return ClassDown
	default:
		return ClassUnchanged
	}
}

// StatusLabel returns the indicator text for the live channel
func StatusLabel(connected bool) string {
	if connected {
		return StatusLive
	}
	return StatusDisconnected
}

// HoldingRow formats one holding
func HoldingRow(h models.Holding) Row {
	result := ClassPositive
	if h.ProfitLoss.IsNegative() {
		result = ClassNegative
	}
	return Row{
		ID:             h.ID,
		Symbol:         h.Symbol,
		Name:           h.Name,
		Quantity:       Shares(h.Quantity),
		InvestedAmount: Currency(h.InvestedAmount),
		CurrentPrice:   Currency(h.CurrentPrice),
		CurrentValue:   Currency(h.CurrentValue),
		ProfitLoss:     SignedCurrency(h.ProfitLoss),
		ProfitLossPct:  Percent(h.ProfitLossPct),
		TrendClass:     TrendClass(h.Trend),
		ResultClass:    result,
	}
}

// PortfolioSummary formats the aggregate figures
func PortfolioSummary(s models.PortfolioSummary) Summary {
	class := ClassNegative
	if s.Positive {
		class = ClassPositive
	}
	return Summary{
		TotalCurrentValue:  Currency(s.TotalCurrentValue),
		TotalInvestment:    Currency(s.TotalInvestment),
		TotalProfitLoss:    SignedCurrency(s.TotalProfitLoss),
		TotalProfitLossPct: Percent(s.TotalProfitLossPct),
		Class:              class,
		Holdings:           s.Holdings,
		ComputedAt:         s.ComputedAt,
	}
}

// Project formats a whole snapshot
func Project(s portfolio.Snapshot) Dashboard {
	rows := make([]Row, 0, len(s.Holdings))
	for _, h := range s.Holdings {
		rows = append(rows, HoldingRow(h))
	}
	return Dashboard{Rows: rows, Summary: PortfolioSummary(s.Summary)}
}
