package portfolio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
)

// HoldingsSource loads the owned stocks of one user
type HoldingsSource interface {
	GetHoldingsForUser(ctx context.Context, username string) ([]*models.Holding, error)
}

// Reloader replaces the row model with the holdings stored for a user. It runs
// at startup and after every sell, so quantities and the sell ceiling follow
// what the backend recorded.
type Reloader struct {
	recalc   *Recalculator
	source   HoldingsSource
	username string
}

// NewReloader creates a Reloader for username
func NewReloader(r *Recalculator, source HoldingsSource, username string) *Reloader {
	return &Reloader{recalc: r, source: source, username: username}
}

// Reload fetches the user's holdings and loads them. The row model is left
// untouched when the fetch fails.
func (l *Reloader) Reload(ctx context.Context) error {
	holdings, err := l.source.GetHoldingsForUser(ctx, l.username)
	if err != nil {
		return fmt.Errorf("failed to reload holdings: %w", err)
	}
	l.recalc.Load(holdings)
	log.Debug().Str("username", l.username).Int("holdings", len(holdings)).Msg("Reloaded holdings")
	return nil
}
