package portfolio

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ErrMalformedHolding marks a row whose stored figures cannot be recomputed.
var ErrMalformedHolding = errors.New("malformed holding")

// currentValue returns quantity × price.
func currentValue(quantity, price decimal.Decimal) decimal.Decimal {
	return quantity.Mul(price)
}

// profitLossPct returns profitLoss / invested × 100, or zero when nothing
// was invested.
func profitLossPct(profitLoss, invested decimal.Decimal) decimal.Decimal {
	if !invested.IsPositive() {
		return decimal.Zero
	}
	return profitLoss.Div(invested).Mul(hundred)
}

// recompute refreshes the derived figures of h from its quantity, current
// price and invested amount.
func recompute(h *models.Holding) {
	h.CurrentValue = currentValue(h.Quantity, h.CurrentPrice)
	h.ProfitLoss = h.CurrentValue.Sub(h.InvestedAmount)
	h.ProfitLossPct = profitLossPct(h.ProfitLoss, h.InvestedAmount)
}

func validateHolding(h *models.Holding) error {
	switch {
	case h == nil:
		return fmt.Errorf("%w: nil row", ErrMalformedHolding)
	case h.Symbol == "":
		return fmt.Errorf("%w: empty symbol", ErrMalformedHolding)
	case h.Quantity.IsNegative():
		return fmt.Errorf("%w: negative quantity %s", ErrMalformedHolding, h.Quantity)
	case h.InvestedAmount.IsNegative():
		return fmt.Errorf("%w: negative invested amount %s", ErrMalformedHolding, h.InvestedAmount)
	case h.CurrentPrice.IsNegative():
		return fmt.Errorf("%w: negative price %s", ErrMalformedHolding, h.CurrentPrice)
	}
	return nil
}

// summarize sums current value and investment over all rows and derives the
// aggregate profit/loss. Zero rows give zero totals.
func summarize(rows []*models.Holding) models.PortfolioSummary {
	totalValue := decimal.Zero
	totalInvestment := decimal.Zero
	for _, h := range rows {
		if h == nil {
			continue
		}
		totalValue = totalValue.Add(h.CurrentValue)
		totalInvestment = totalInvestment.Add(h.InvestedAmount)
	}

	profitLoss := totalValue.Sub(totalInvestment)
	return models.PortfolioSummary{
		TotalCurrentValue:  totalValue,
		TotalInvestment:    totalInvestment,
		TotalProfitLoss:    profitLoss,
		TotalProfitLossPct: profitLossPct(profitLoss, totalInvestment),
		Positive:           !profitLoss.IsNegative(),
		Holdings:           len(rows),
	}
}
