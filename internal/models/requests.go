package models

import "github.com/shopspring/decimal"

// SellRequest is the sell form submitted to the backend
type SellRequest struct {
	OwnedStockID string          `json:"ownedStockId" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity" validate:"gt=0"`
}

// BuyRequest is the buy form submitted to the backend. PurchasePrice is
// optional; the backend uses the market price when it is absent.
type BuyRequest struct {
	Symbol        string           `json:"symbol" validate:"required,stocksymbol"`
	Quantity      decimal.Decimal  `json:"quantity" validate:"gt=0"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice,omitempty" validate:"omitempty,gt=0"`
}
