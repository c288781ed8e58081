// Package render projects the row model into display strings. It is the only
// place amounts are rounded.
package render

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyCode is the currency all backend amounts are quoted in
const CurrencyCode = money.USD

const displayPlaces = 2

// Currency formats an amount as dollars rounded to 2 places, e.g. "$1,234.50".
func Currency(amount decimal.Decimal) string {
	cur := money.GetCurrency(CurrencyCode)
	minor := amount.Round(displayPlaces).Shift(int32(cur.Fraction)).IntPart()
	return money.New(minor, CurrencyCode).Display()
}

// SignedCurrency prefixes the absolute amount with "+" or "-".
// Zero is shown as "+$0.00".
func SignedCurrency(amount decimal.Decimal) string {
	sign := "+"
	if amount.IsNegative() {
		sign = "-"
	}
	return sign + Currency(amount.Abs())
}

// Percent formats a percentage to 2 places, e.g. "25.00%".
func Percent(pct decimal.Decimal) string {
	return pct.StringFixed(displayPlaces) + "%"
}

// Shares formats a share quantity without trailing fractional zeros.
func Shares(qty decimal.Decimal) string {
	return qty.String()
}

// Price formats a looked-up price
func Price(price decimal.Decimal) string {
	return Currency(price)
}
