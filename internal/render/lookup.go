package render

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-dashboard/internal/client"
)

// CurrentPrice is the line shown after a successful lookup
func CurrentPrice(price decimal.Decimal) string {
	return "Current market price: " + Price(price)
}

// LookupFailure is the neutral message shown in place of a price
func LookupFailure(symbol string, err error) string {
	var te *client.TransientError
	switch {
	case errors.Is(err, client.ErrEmptySymbol):
		return "Please enter a stock symbol first"
	case errors.As(err, &te) && te.StatusCode == 0:
		return "Error fetching current price"
	default:
		return fmt.Sprintf("Could not fetch current price for %s", symbol)
	}
}
