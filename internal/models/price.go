package models

import "github.com/shopspring/decimal"

// PriceUpdateEvent is a live price notification for one symbol. The wire
// format is the backend's stock price update message.
type PriceUpdateEvent struct {
	Symbol                string              `json:"symbol"`
	Name                  string              `json:"name,omitempty"`
	CurrentPrice          decimal.Decimal     `json:"currentPrice"`
	PreviousPrice         decimal.NullDecimal `json:"previousPrice"`
	PriceChange           decimal.Decimal     `json:"priceChange"`
	PriceChangePercentage decimal.NullDecimal `json:"priceChangePercentage"`
	// Timestamp is kept verbatim; the backend sends local date-times without a zone.
	Timestamp string `json:"timestamp,omitempty"`
}

// PriceQuote is the result of a current price lookup
type PriceQuote struct {
	Symbol        string              `json:"symbol"`
	Name          string              `json:"name"`
	CurrentPrice  decimal.Decimal     `json:"currentPrice"`
	PreviousPrice decimal.NullDecimal `json:"previousPrice"`
	Live          bool                `json:"live"`
}
