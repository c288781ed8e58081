// Package trading holds the sell, sell-all and delete-holding flows.
package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
)

var (
	ErrDraftUnavailable = errors.New("sell form is not available for this holding")
	ErrInvalidMaxShares = errors.New("invalid number of owned shares")
	ErrNoSharesToSell   = errors.New("no shares available to sell")
	ErrInvalidQuantity  = errors.New("invalid sell quantity")
)

// SellDraft is a pending sell request for one holding. MaxShares is the sell
// ceiling: the number of shares currently owned.
type SellDraft struct {
	OwnedStockID     string
	Symbol           string
	MaxShares        decimal.Decimal
	MaxSharesDisplay string
	Quantity         *decimal.Decimal
}

// Submitter sends a sell request to the trading backend
type Submitter interface {
	SellStock(ctx context.Context, req models.SellRequest) error
}

// Confirmer asks the user to confirm an irreversible action
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// PrepareSell creates a draft for selling shares of a holding. maxShares is
// the owned quantity as displayed, e.g. "4.2500".
func PrepareSell(ownedStockID, symbol, maxShares string) (*SellDraft, error) {
	ownedStockID = strings.TrimSpace(ownedStockID)
	symbol = strings.TrimSpace(symbol)
	if ownedStockID == "" || symbol == "" {
		return nil, ErrDraftUnavailable
	}

	ceiling, err := decimal.NewFromString(strings.TrimSpace(maxShares))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMaxShares, maxShares)
	}
	if ceiling.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidMaxShares, maxShares)
	}

	return &SellDraft{
		OwnedStockID:     ownedStockID,
		Symbol:           symbol,
		MaxShares:        ceiling,
		MaxSharesDisplay: ceiling.String(),
	}, nil
}

// DraftFor prepares a sell draft from a row of the model
func DraftFor(h models.Holding) (*SellDraft, error) {
	return PrepareSell(h.ID, h.Symbol, h.Quantity.String())
}

// SetQuantity parses user input as the quantity to sell
func (d *SellDraft) SetQuantity(input string) error {
	if d == nil {
		return ErrDraftUnavailable
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(input))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidQuantity, input)
	}
	if !qty.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidQuantity)
	}
	if qty.GreaterThan(d.MaxShares) {
		return fmt.Errorf("%w: only %s shares owned", ErrInvalidQuantity, d.MaxSharesDisplay)
	}
	d.Quantity = &qty
	return nil
}

// SellAll sets the pending quantity to the sell ceiling
func (d *SellDraft) SellAll() error {
	if d == nil || !d.MaxShares.IsPositive() {
		return ErrNoSharesToSell
	}
	qty := d.MaxShares
	d.Quantity = &qty
	return nil
}

// Request builds the form request for the backend
func (d *SellDraft) Request() (models.SellRequest, error) {
	if d == nil {
		return models.SellRequest{}, ErrDraftUnavailable
	}
	if d.Quantity == nil {
		return models.SellRequest{}, fmt.Errorf("%w: no quantity entered", ErrInvalidQuantity)
	}
	return models.SellRequest{OwnedStockID: d.OwnedStockID, Quantity: *d.Quantity}, nil
}

// Submit sends the draft's request
func (d *SellDraft) Submit(ctx context.Context, s Submitter) error {
	req, err := d.Request()
	if err != nil {
		return err
	}
	if err := s.SellStock(ctx, req); err != nil {
		return fmt.Errorf("failed to sell %s: %w", d.Symbol, err)
	}
	log.Info().
		Str("symbol", d.Symbol).
		Str("owned_stock_id", d.OwnedStockID).
		Str("quantity", req.Quantity.String()).
		Msg("Submitted sell request")
	return nil
}

// DeletePrompt describes the effect of deleting a holding
func DeletePrompt(d *SellDraft) string {
	symbol, shares := "this stock", "0"
	if d != nil {
		symbol, shares = d.Symbol, d.MaxSharesDisplay
	}
	return fmt.Sprintf("WARNING: This will permanently delete %s from your portfolio!\n\n"+
		"This action will:\n"+
		"  - Sell ALL %s shares at current market price\n"+
		"  - Remove the stock from your portfolio entirely\n"+
		"  - Cannot be undone\n\n"+
		"Are you sure you want to continue?", symbol, shares)
}

// ConfirmDelete liquidates a holding after explicit confirmation. It reports
// whether the liquidation was submitted; a decline is not an error.
func ConfirmDelete(ctx context.Context, d *SellDraft, c Confirmer, s Submitter) (bool, error) {
	if d == nil {
		return false, ErrDraftUnavailable
	}
	ok, err := c.Confirm(ctx, DeletePrompt(d))
	if err != nil {
		return false, fmt.Errorf("failed to confirm deletion: %w", err)
	}
	if !ok {
		log.Debug().Str("symbol", d.Symbol).Msg("Deletion declined")
		return false, nil
	}
	if err := d.SellAll(); err != nil {
		return false, err
	}
	if err := d.Submit(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}
