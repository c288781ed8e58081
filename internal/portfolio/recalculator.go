// Package portfolio keeps the dashboard's in-memory row model and recomputes
// per-holding and aggregate figures when prices move.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-dashboard/internal/metrics"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
)

// ErrInvalidUpdate is returned for a price update the caller should never send.
var ErrInvalidUpdate = errors.New("invalid price update")

// Snapshot is a consistent copy of the row model and its summary
type Snapshot struct {
	Holdings []models.Holding
	Summary  models.PortfolioSummary
	// Symbol is the symbol whose update produced this snapshot; empty for loads.
	Symbol string
}

// View receives a projection of the row model after every change
type View interface {
	Render(s Snapshot)
}

// ViewFunc adapts a function to View
type ViewFunc func(s Snapshot)

// Render calls f(s)
func (f ViewFunc) Render(s Snapshot) { f(s) }

// Recalculator owns the row model. All mutations happen under its lock, and
// every mutation ends with a single render to the registered views.
type Recalculator struct {
	mu      sync.RWMutex
	rows    []*models.Holding
	summary models.PortfolioSummary

	viewsMu sync.RWMutex
	views   []View

	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a Recalculator with an empty row model
func New(m *metrics.Metrics, views ...View) *Recalculator {
	r := &Recalculator{
		metrics: m,
		views:   views,
		now:     time.Now,
	}
	r.summary = summarize(nil)
	r.summary.ComputedAt = r.now()
	return r
}

// AddView registers another projection target
func (r *Recalculator) AddView(v View) {
	r.viewsMu.Lock()
	r.views = append(r.views, v)
	r.viewsMu.Unlock()
}

// Load replaces the row model. Derived figures are recomputed from quantity,
// current price and invested amount; malformed rows are kept as given.
func (r *Recalculator) Load(holdings []*models.Holding) {
	rows := make([]*models.Holding, 0, len(holdings))
	now := r.now()
	for _, h := range holdings {
		if h == nil {
			continue
		}
		row := *h
		if err := validateHolding(&row); err != nil {
			log.Warn().Err(err).Str("id", row.ID).Msg("Loaded malformed holding")
		} else {
			recompute(&row)
		}
		if row.Trend == "" {
			row.Trend = models.TrendUnchanged
		}
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = now
		}
		rows = append(rows, &row)
	}

	r.mu.Lock()
	r.rows = rows
	r.recomputeLocked()
	snap := r.snapshotLocked("")
	r.mu.Unlock()

	log.Info().Int("holdings", len(rows)).Msg("Loaded portfolio holdings")
	r.render(snap)
}

// Apply applies a decoded price update event
func (r *Recalculator) Apply(ev models.PriceUpdateEvent) (int, error) {
	return r.ApplyPriceUpdate(ev.Symbol, ev.CurrentPrice, ev.PriceChange)
}

// ApplyPriceUpdate sets the current price of every holding whose symbol
// equals symbol exactly, recomputes those rows, then the summary. It returns
// the number of rows updated. An unknown symbol is a no-op; malformed rows
// are skipped and logged.
func (r *Recalculator) ApplyPriceUpdate(symbol string, currentPrice, priceChange decimal.Decimal) (int, error) {
	if symbol == "" {
		return 0, fmt.Errorf("%w: empty symbol", ErrInvalidUpdate)
	}
	if currentPrice.IsNegative() {
		return 0, fmt.Errorf("%w: negative price %s for %s", ErrInvalidUpdate, currentPrice, symbol)
	}

	trend := models.TrendOf(priceChange)
	now := r.now()
	updated, skipped := 0, 0

	r.mu.Lock()
	for _, h := range r.rows {
		if h == nil || h.Symbol != symbol {
			continue
		}
		if err := validateHolding(h); err != nil {
			skipped++
			log.Warn().Err(err).Str("symbol", symbol).Str("id", h.ID).Msg("Skipping holding")
			continue
		}
		h.CurrentPrice = currentPrice
		h.Trend = trend
		h.UpdatedAt = now
		recompute(h)
		updated++
	}
	r.recomputeLocked()
	snap := r.snapshotLocked(symbol)
	r.mu.Unlock()

	r.metrics.ObservePriceUpdate(updated, skipped)
	log.Debug().
		Str("symbol", symbol).
		Str("price", currentPrice.String()).
		Int("rows", updated).
		Msg("Applied price update")

	r.render(snap)
	return updated, nil
}

// RecomputeSummary re-aggregates all rows and renders the result
func (r *Recalculator) RecomputeSummary() models.PortfolioSummary {
	r.mu.Lock()
	r.recomputeLocked()
	snap := r.snapshotLocked("")
	r.mu.Unlock()

	r.render(snap)
	return snap.Summary
}

// Snapshot returns a copy of the current rows and summary
func (r *Recalculator) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked("")
}

// Summary returns the summary from the last recomputation
func (r *Recalculator) Summary() models.PortfolioSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.summary
}

// Holding looks up a row by owned-stock id
func (r *Recalculator) Holding(id string) (models.Holding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.rows {
		if h != nil && h.ID == id {
			return *h, true
		}
	}
	return models.Holding{}, false
}

// Run applies updates one at a time, in arrival order, until ctx is done or
// updates is closed.
func (r *Recalculator) Run(ctx context.Context, updates <-chan models.PriceUpdateEvent) error {
	log.Info().Msg("Starting price update loop")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Price update loop shutting down...")
			return nil
		case ev, ok := <-updates:
			if !ok {
				return nil
			}
			if _, err := r.Apply(ev); err != nil {
				log.Warn().Err(err).Msg("Rejected price update")
			}
		}
	}
}

func (r *Recalculator) recomputeLocked() {
	r.summary = summarize(r.rows)
	r.summary.ComputedAt = r.now()
	r.metrics.ObserveSummary(r.summary.TotalCurrentValue, r.summary.TotalProfitLoss)
}

func (r *Recalculator) snapshotLocked(symbol string) Snapshot {
	holdings := make([]models.Holding, 0, len(r.rows))
	for _, h := range r.rows {
		holdings = append(holdings, *h)
	}
	return Snapshot{Holdings: holdings, Summary: r.summary, Symbol: symbol}
}

func (r *Recalculator) render(s Snapshot) {
	r.viewsMu.RLock()
	views := make([]View, len(r.views))
	copy(views, r.views)
	r.viewsMu.RUnlock()

	for _, v := range views {
		v.Render(s)
	}
}
