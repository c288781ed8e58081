package portfolio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func holding(id, symbol, qty, invested, price string) *models.Holding {
	return &models.Holding{
		ID:             id,
		Symbol:         symbol,
		Quantity:       d(qty),
		InvestedAmount: d(invested),
		CurrentPrice:   d(price),
	}
}

// ---------------------------------------------------------------------------
// Recording view
// ---------------------------------------------------------------------------

type recordingView struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (v *recordingView) Render(s Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snaps = append(v.snaps, s)
}

func (v *recordingView) Snaps() []Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	cp := make([]Snapshot, len(v.snaps))
	copy(cp, v.snaps)
	return cp
}

func findRow(t *testing.T, s Snapshot, symbol string) models.Holding {
	t.Helper()
	for _, h := range s.Holdings {
		if h.Symbol == symbol {
			return h
		}
	}
	t.Fatalf("no row for %s", symbol)
	return models.Holding{}
}

// ---------------------------------------------------------------------------
// ApplyPriceUpdate
// ---------------------------------------------------------------------------

func TestRecalculator_ApplyPriceUpdate_Scenario(t *testing.T) {
	r := New(nil)
	r.Load([]*models.Holding{holding("1", "AAPL", "10", "100.00", "10.00")})

	n, err := r.ApplyPriceUpdate("AAPL", d("12.50"), d("2.50"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	row := findRow(t, r.Snapshot(), "AAPL")
	assert.True(t, row.CurrentPrice.Equal(d("12.50")))
	assert.True(t, row.CurrentValue.Equal(d("125")), "current value %s", row.CurrentValue)
	assert.True(t, row.ProfitLoss.Equal(d("25")), "profit/loss %s", row.ProfitLoss)
	assert.True(t, row.ProfitLossPct.Equal(d("25")), "percent %s", row.ProfitLossPct)
	assert.Equal(t, models.TrendUp, row.Trend)

	summary := r.Summary()
	assert.True(t, summary.Positive)
	assert.True(t, summary.TotalProfitLoss.Equal(d("25")))
}

func TestRecalculator_ApplyPriceUpdate_PercentFormula(t *testing.T) {
	r := New(nil)
	r.Load([]*models.Holding{
		holding("1", "MSFT", "3.5", "1000.00", "300"),
		holding("2", "TSLA", "7", "1234.56", "180"),
	})

	_, err := r.ApplyPriceUpdate("MSFT", d("321.17"), d("-1"))
	require.NoError(t, err)
	_, err = r.ApplyPriceUpdate("TSLA", d("171.03"), d("0"))
	require.NoError(t, err)

	for _, row := range r.Snapshot().Holdings {
		want := row.CurrentValue.Sub(row.InvestedAmount).Div(row.InvestedAmount).Mul(decimal.NewFromInt(100))
		assert.True(t, row.ProfitLossPct.Equal(want), "%s: got %s want %s", row.Symbol, row.ProfitLossPct, want)
	}
	assert.Equal(t, models.TrendDown, findRow(t, r.Snapshot(), "MSFT").Trend)
	assert.Equal(t, models.TrendUnchanged, findRow(t, r.Snapshot(), "TSLA").Trend)
}

func TestRecalculator_ApplyPriceUpdate_ZeroInvestment(t *testing.T) {
	r := New(nil)
	r.Load([]*models.Holding{holding("1", "GIFT", "5", "0", "1")})

	_, err := r.ApplyPriceUpdate("GIFT", d("20"), d("19"))
	require.NoError(t, err)

	row := findRow(t, r.Snapshot(), "GIFT")
	assert.True(t, row.CurrentValue.Equal(d("100")))
	assert.True(t, row.ProfitLoss.Equal(d("100")))
	assert.True(t, row.ProfitLossPct.IsZero())
	assert.True(t, r.Summary().TotalProfitLossPct.IsZero())
}

func TestRecalculator_ApplyPriceUpdate_UnknownSymbol(t *testing.T) {
	view := &recordingView{}
	r := New(nil, view)
	r.Load([]*models.Holding{holding("1", "AAPL", "10", "100", "10")})
	before := r.Snapshot()

	n, err := r.ApplyPriceUpdate("NOPE", d("1"), d("1"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	after := r.Snapshot()
	assert.Equal(t, before.Holdings, after.Holdings)
	assert.True(t, before.Summary.TotalCurrentValue.Equal(after.Summary.TotalCurrentValue))
	assert.True(t, before.Summary.TotalProfitLoss.Equal(after.Summary.TotalProfitLoss))
	// The no-op recomputation still renders once.
	assert.Len(t, view.Snaps(), 2)
}

func TestRecalculator_ApplyPriceUpdate_IsCaseSensitive(t *testing.T) {
	r := New(nil)
	r.Load([]*models.Holding{holding("1", "AAPL", "10", "100", "10")})

	n, err := r.ApplyPriceUpdate("aapl", d("50"), d("40"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, findRow(t, r.Snapshot(), "AAPL").CurrentPrice.Equal(d("10")))
}

func TestRecalculator_ApplyPriceUpdate_OtherSymbolUntouched(t *testing.T) {
	r := New(nil)
	r.Load([]*models.Holding{
		holding("1", "AAPL", "10", "100", "10"),
		holding("2", "GOOG", "2", "200", "100"),
	})
	goog := findRow(t, r.Snapshot(), "GOOG")
	summaryBefore := r.Summary()

	_, err := r.ApplyPriceUpdate("AAPL", d("12.50"), d("2.50"))
	require.NoError(t, err)

	assert.Equal(t, goog, findRow(t, r.Snapshot(), "GOOG"))

	summary := r.Summary()
	assert.True(t, summary.TotalCurrentValue.Equal(d("325")), "total %s", summary.TotalCurrentValue)
	assert.True(t, summary.TotalInvestment.Equal(d("300")))
	assert.False(t, summary.TotalCurrentValue.Equal(summaryBefore.TotalCurrentValue))
}

func TestRecalculator_ApplyPriceUpdate_DuplicateSymbolRows(t *testing.T) {
	r := New(nil)
	r.Load([]*models.Holding{
		holding("1", "AAPL", "1", "10", "10"),
		holding("2", "AAPL", "2", "20", "10"),
	})

	n, err := r.ApplyPriceUpdate("AAPL", d("11"), d("1"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, r.Summary().TotalCurrentValue.Equal(d("33")))
}

func TestRecalculator_ApplyPriceUpdate_SkipsMalformedRow(t *testing.T) {
	r := New(nil)
	r.Load([]*models.Holding{
		holding("bad", "AAPL", "-1", "10", "10"),
		holding("good", "AAPL", "2", "20", "10"),
	})

	n, err := r.ApplyPriceUpdate("AAPL", d("15"), d("5"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	bad, ok := r.Holding("bad")
	require.True(t, ok)
	assert.True(t, bad.CurrentPrice.Equal(d("10")), "malformed row must not change")

	good, ok := r.Holding("good")
	require.True(t, ok)
	assert.True(t, good.CurrentValue.Equal(d("30")))
}

func TestValidateHolding(t *testing.T) {
	tests := []struct {
		name string
		row  *models.Holding
		ok   bool
	}{
		{"valid", holding("1", "AAPL", "1", "10", "10"), true},
		{"zero price", holding("1", "AAPL", "1", "10", "0"), true},
		{"nil", nil, false},
		{"empty symbol", holding("1", "", "1", "10", "10"), false},
		{"negative quantity", holding("1", "AAPL", "-1", "10", "10"), false},
		{"negative invested", holding("1", "AAPL", "1", "-10", "10"), false},
		{"negative price", holding("1", "AAPL", "1", "10", "-0.01"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateHolding(tt.row)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrMalformedHolding)
			}
		})
	}
}

func TestRecalculator_ApplyPriceUpdate_SkipsNegativePriceRow(t *testing.T) {
	r := New(nil)
	r.Load([]*models.Holding{
		holding("bad", "AAPL", "1", "10", "-5"),
		holding("good", "AAPL", "2", "20", "10"),
	})

	n, err := r.ApplyPriceUpdate("AAPL", d("15"), d("5"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	bad, ok := r.Holding("bad")
	require.True(t, ok)
	assert.True(t, bad.CurrentPrice.Equal(d("-5")), "malformed row must not change")
}

func TestRecalculator_ApplyPriceUpdate_InvalidInput(t *testing.T) {
	r := New(nil)
	r.Load([]*models.Holding{holding("1", "AAPL", "10", "100", "10")})

	_, err := r.ApplyPriceUpdate("", d("1"), d("0"))
	assert.ErrorIs(t, err, ErrInvalidUpdate)

	_, err = r.ApplyPriceUpdate("AAPL", d("-0.01"), d("0"))
	assert.ErrorIs(t, err, ErrInvalidUpdate)

	assert.True(t, findRow(t, r.Snapshot(), "AAPL").CurrentPrice.Equal(d("10")))
}

func TestRecalculator_ApplyPriceUpdate_Idempotent(t *testing.T) {
	r := New(nil)
	r.Load([]*models.Holding{holding("1", "AAPL", "10", "100", "10")})

	_, err := r.ApplyPriceUpdate("AAPL", d("9"), d("-1"))
	require.NoError(t, err)
	first := r.Snapshot()
	_, err = r.ApplyPriceUpdate("AAPL", d("9"), d("-1"))
	require.NoError(t, err)
	second := r.Snapshot()

	assert.True(t, first.Summary.TotalProfitLoss.Equal(second.Summary.TotalProfitLoss))
	assert.False(t, second.Summary.Positive)
	assert.True(t, second.Summary.TotalProfitLoss.Equal(d("-10")))
}

// ---------------------------------------------------------------------------
// RecomputeSummary
// ---------------------------------------------------------------------------

func TestRecalculator_RecomputeSummary_Empty(t *testing.T) {
	r := New(nil)

	s := r.RecomputeSummary()
	assert.True(t, s.TotalCurrentValue.IsZero())
	assert.True(t, s.TotalInvestment.IsZero())
	assert.True(t, s.TotalProfitLoss.IsZero())
	assert.True(t, s.TotalProfitLossPct.IsZero())
	assert.True(t, s.Positive, "exactly zero profit counts as positive")
	assert.Equal(t, 0, s.Holdings)
}

func TestRecalculator_RecomputeSummary_SumsAllRows(t *testing.T) {
	r := New(nil)
	r.Load([]*models.Holding{
		holding("1", "AAPL", "10", "100", "12.5"),
		holding("2", "GOOG", "1", "150", "100"),
		holding("3", "MSFT", "0", "0", "400"),
	})

	s := r.RecomputeSummary()
	assert.Equal(t, 3, s.Holdings)
	assert.True(t, s.TotalCurrentValue.Equal(d("225")))
	assert.True(t, s.TotalInvestment.Equal(d("250")))
	assert.True(t, s.TotalProfitLoss.Equal(d("-25")))
	assert.True(t, s.TotalProfitLossPct.Equal(d("-10")))
	assert.False(t, s.Positive)
}

// ---------------------------------------------------------------------------
// Load / views / Run
// ---------------------------------------------------------------------------

func TestRecalculator_Load_DoesNotAliasInput(t *testing.T) {
	input := []*models.Holding{holding("1", "AAPL", "10", "100", "10"), nil}
	r := New(nil)
	r.Load(input)

	input[0].Quantity = d("999")
	row, ok := r.Holding("1")
	require.True(t, ok)
	assert.True(t, row.Quantity.Equal(d("10")))
	assert.Equal(t, 1, r.Summary().Holdings)
	assert.Equal(t, models.TrendUnchanged, row.Trend)
}

func TestRecalculator_RendersSymbolOfUpdate(t *testing.T) {
	view := &recordingView{}
	r := New(nil)
	r.AddView(view)
	r.Load([]*models.Holding{holding("1", "AAPL", "10", "100", "10")})

	_, err := r.ApplyPriceUpdate("AAPL", d("11"), d("1"))
	require.NoError(t, err)

	snaps := view.Snaps()
	require.Len(t, snaps, 2)
	assert.Equal(t, "", snaps[0].Symbol)
	assert.Equal(t, "AAPL", snaps[1].Symbol)
	assert.True(t, snaps[1].Summary.TotalCurrentValue.Equal(d("110")))
}

func TestRecalculator_Run_AppliesInArrivalOrder(t *testing.T) {
	view := &recordingView{}
	r := New(nil, view)
	r.Load([]*models.Holding{holding("1", "AAPL", "1", "10", "10")})

	updates := make(chan models.PriceUpdateEvent, 3)
	updates <- models.PriceUpdateEvent{Symbol: "AAPL", CurrentPrice: d("11"), PriceChange: d("1")}
	updates <- models.PriceUpdateEvent{Symbol: "", CurrentPrice: d("1")}
	updates <- models.PriceUpdateEvent{Symbol: "AAPL", CurrentPrice: d("9"), PriceChange: d("-2")}
	close(updates)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx, updates))

	row, _ := r.Holding("1")
	assert.True(t, row.CurrentPrice.Equal(d("9")))
	assert.Equal(t, models.TrendDown, row.Trend)
	// load + two accepted updates
	assert.Len(t, view.Snaps(), 3)
}

func TestRecalculator_Run_StopsOnCancel(t *testing.T) {
	r := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, make(chan models.PriceUpdateEvent)) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
