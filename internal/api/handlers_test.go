package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-dashboard/internal/client"
	"github.com/trogers1052/portfolio-dashboard/internal/live"
	"github.com/trogers1052/portfolio-dashboard/internal/metrics"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
	"github.com/trogers1052/portfolio-dashboard/internal/portfolio"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockPrices struct {
	quote *models.PriceQuote
	err   error
}

func (m *mockPrices) FetchCurrentPrice(_ context.Context, symbol string) (*models.PriceQuote, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.quote, nil
}

type mockSeller struct {
	requests []models.SellRequest
	err      error
}

func (m *mockSeller) SellStock(_ context.Context, req models.SellRequest) error {
	m.requests = append(m.requests, req)
	return m.err
}

// mockBackend applies sells to its stored holdings, the way the trading
// backend updates owned_stocks.
type mockBackend struct {
	holdings []*models.Holding
	requests []models.SellRequest
}

func (b *mockBackend) SellStock(_ context.Context, req models.SellRequest) error {
	b.requests = append(b.requests, req)
	for i, h := range b.holdings {
		if h.ID != req.OwnedStockID {
			continue
		}
		remaining := h.Quantity.Sub(req.Quantity)
		if !remaining.IsPositive() {
			b.holdings = append(b.holdings[:i], b.holdings[i+1:]...)
			return nil
		}
		h.InvestedAmount = h.InvestedAmount.Mul(remaining).Div(h.Quantity)
		h.Quantity = remaining
		return nil
	}
	return errors.New("owned stock not found")
}

func (b *mockBackend) GetHoldingsForUser(_ context.Context, _ string) ([]*models.Holding, error) {
	out := make([]*models.Holding, 0, len(b.holdings))
	for _, h := range b.holdings {
		cp := *h
		out = append(out, &cp)
	}
	return out, nil
}

type mockReloader struct{ err error }

func (m mockReloader) Reload(context.Context) error { return m.err }

type mockLive struct{ state live.State }

func (m mockLive) State() live.State { return m.state }

type mockPinger struct{ err error }

func (m mockPinger) Ping(context.Context) error { return m.err }

func newTestRecalculator() *portfolio.Recalculator {
	r := portfolio.New(nil)
	r.Load([]*models.Holding{{
		ID:             "7",
		Symbol:         "AAPL",
		Quantity:       decimal.RequireFromString("4.0000"),
		InvestedAmount: decimal.NewFromInt(40),
		CurrentPrice:   decimal.NewFromInt(10),
	}})
	return r
}

func do(t *testing.T, h *Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	SetupRoutes(h).ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

// ---------------------------------------------------------------------------
// Portfolio / status
// ---------------------------------------------------------------------------

func TestHandler_GetPortfolio(t *testing.T) {
	h := NewHandler(Deps{Portfolio: newTestRecalculator()})

	rec, body := do(t, h, "GET", "/api/v1/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rows := body["rows"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "AAPL", row["symbol"])
	assert.Equal(t, "4", row["quantity"])
	assert.Equal(t, "$40.00", row["current_value"])
	assert.Equal(t, "+$0.00", row["profit_loss"])

	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, "positive", summary["class"])
}

func TestHandler_GetSummary(t *testing.T) {
	h := NewHandler(Deps{Portfolio: newTestRecalculator()})

	rec, body := do(t, h, "GET", "/api/v1/portfolio/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "$40.00", body["total_investment"])
	assert.Equal(t, float64(1), body["holdings"])
}

func TestHandler_GetStatus(t *testing.T) {
	h := NewHandler(Deps{Live: mockLive{state: live.Connected}})
	_, body := do(t, h, "GET", "/api/v1/status", "")
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, "Live Updates", body["label"])

	h = NewHandler(Deps{Live: mockLive{state: live.Connecting}})
	_, body = do(t, h, "GET", "/api/v1/status", "")
	assert.Equal(t, false, body["connected"])
	assert.Equal(t, "Disconnected", body["label"])

	h = NewHandler(Deps{})
	_, body = do(t, h, "GET", "/api/v1/status", "")
	assert.Equal(t, "disconnected", body["state"])
}

// ---------------------------------------------------------------------------
// Price lookup
// ---------------------------------------------------------------------------

func TestHandler_GetPrice(t *testing.T) {
	h := NewHandler(Deps{Prices: &mockPrices{quote: &models.PriceQuote{
		Symbol:       "AAPL",
		Name:         "Apple Inc.",
		CurrentPrice: decimal.RequireFromString("187.4561"),
	}}})

	rec, body := do(t, h, "GET", "/api/v1/price/aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "187.46", body["current_price"])
	assert.Equal(t, "Current market price: $187.46", body["display"])
}

func TestHandler_GetPrice_Failures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", client.ErrPriceNotFound, http.StatusNotFound, "Could not fetch current price for ZZZ"},
		{"backend error", &client.TransientError{Symbol: "ZZZ", StatusCode: 500}, http.StatusBadGateway, "Could not fetch current price for ZZZ"},
		{"transport", &client.TransientError{Symbol: "ZZZ", Err: errors.New("refused")}, http.StatusBadGateway, "Error fetching current price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(Deps{Prices: &mockPrices{err: tt.err}})
			rec, body := do(t, h, "GET", "/api/v1/price/zzz", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

// ---------------------------------------------------------------------------
// Price injection
// ---------------------------------------------------------------------------

func TestHandler_InjectPriceUpdate(t *testing.T) {
	updates := make(chan models.PriceUpdateEvent, 1)
	h := NewHandler(Deps{Updates: updates})

	rec, _ := do(t, h, "POST", "/api/v1/price-updates", `{"symbol":"AAPL","currentPrice":12.5,"priceChange":2.5}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	ev := <-updates
	assert.Equal(t, "AAPL", ev.Symbol)
	assert.Equal(t, "12.5", ev.CurrentPrice.String())
}

func TestHandler_InjectPriceUpdate_Invalid(t *testing.T) {
	updates := make(chan models.PriceUpdateEvent, 1)
	h := NewHandler(Deps{Updates: updates})

	for _, body := range []string{`{`, `{"currentPrice":1}`, `{"symbol":"AAPL","currentPrice":-1}`} {
		rec, _ := do(t, h, "POST", "/api/v1/price-updates", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, updates)
}

// ---------------------------------------------------------------------------
// Sell / liquidate
// ---------------------------------------------------------------------------

func TestHandler_SellHolding(t *testing.T) {
	seller := &mockSeller{}
	h := NewHandler(Deps{Portfolio: newTestRecalculator(), Seller: seller})

	rec, body := do(t, h, "POST", "/api/v1/holdings/7/sell", `{"quantity":"1.5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.5", body["quantity"])
	require.Len(t, seller.requests, 1)
	assert.Equal(t, "7", seller.requests[0].OwnedStockID)
}

func TestHandler_SellHolding_All(t *testing.T) {
	seller := &mockSeller{}
	h := NewHandler(Deps{Portfolio: newTestRecalculator(), Seller: seller})

	rec, body := do(t, h, "POST", "/api/v1/holdings/7/sell", `{"all":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", body["quantity"])
}

func TestHandler_SellHolding_TooMany(t *testing.T) {
	seller := &mockSeller{}
	h := NewHandler(Deps{Portfolio: newTestRecalculator(), Seller: seller})

	rec, _ := do(t, h, "POST", "/api/v1/holdings/7/sell", `{"quantity":"5"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, seller.requests)
}

func TestHandler_SellHolding_UnknownHolding(t *testing.T) {
	h := NewHandler(Deps{Portfolio: newTestRecalculator(), Seller: &mockSeller{}})

	rec, _ := do(t, h, "POST", "/api/v1/holdings/99/sell", `{"all":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_LiquidateHolding_RequiresConfirmation(t *testing.T) {
	seller := &mockSeller{}
	h := NewHandler(Deps{Portfolio: newTestRecalculator(), Seller: seller})

	rec, body := do(t, h, "POST", "/api/v1/holdings/7/liquidate", "")
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	assert.Contains(t, body["prompt"], "permanently delete AAPL")
	assert.Empty(t, seller.requests)
}

func TestHandler_LiquidateHolding_Confirmed(t *testing.T) {
	seller := &mockSeller{}
	h := NewHandler(Deps{Portfolio: newTestRecalculator(), Seller: seller})

	rec, body := do(t, h, "POST", "/api/v1/holdings/7/liquidate?confirm=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "liquidated", body["status"])
	require.Len(t, seller.requests, 1)
	assert.True(t, seller.requests[0].Quantity.Equal(decimal.NewFromInt(4)))
}

func TestHandler_LiquidateHolding_BackendError(t *testing.T) {
	seller := &mockSeller{err: errors.New("status 500")}
	h := NewHandler(Deps{Portfolio: newTestRecalculator(), Seller: seller})

	rec, _ := do(t, h, "POST", "/api/v1/holdings/7/liquidate?confirm=true", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func newBackedHandler() (*Handler, *mockBackend) {
	backend := &mockBackend{holdings: []*models.Holding{{
		ID:             "7",
		Symbol:         "AAPL",
		Quantity:       decimal.RequireFromString("4.0000"),
		InvestedAmount: decimal.NewFromInt(40),
		CurrentPrice:   decimal.NewFromInt(10),
	}}}
	r := newTestRecalculator()
	h := NewHandler(Deps{
		Portfolio: r,
		Seller:    backend,
		Reloader:  portfolio.NewReloader(r, backend, "demo"),
	})
	return h, backend
}

func TestHandler_LiquidateHolding_RemovesRow(t *testing.T) {
	h, backend := newBackedHandler()

	rec, _ := do(t, h, "POST", "/api/v1/holdings/7/liquidate?confirm=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, h, "GET", "/api/v1/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["rows"])
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, "$0.00", summary["total_current_value"])

	rec, _ = do(t, h, "POST", "/api/v1/holdings/7/liquidate?confirm=true", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, backend.requests, 1)
}

func TestHandler_SellHolding_RefreshesCeiling(t *testing.T) {
	h, backend := newBackedHandler()

	rec, _ := do(t, h, "POST", "/api/v1/holdings/7/sell", `{"quantity":"1.5"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	_, body := do(t, h, "GET", "/api/v1/portfolio", "")
	rows := body["rows"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "2.5", rows[0].(map[string]interface{})["quantity"])

	rec, body = do(t, h, "POST", "/api/v1/holdings/7/sell", `{"all":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2.5", body["quantity"])
	require.Len(t, backend.requests, 2)
	assert.Equal(t, "2.5", backend.requests[1].Quantity.String())
}

func TestHandler_SellHolding_ReloadFailureStillSucceeds(t *testing.T) {
	seller := &mockSeller{}
	h := NewHandler(Deps{
		Portfolio: newTestRecalculator(),
		Seller:    seller,
		Reloader:  mockReloader{err: errors.New("database down")},
	})

	rec, _ := do(t, h, "POST", "/api/v1/holdings/7/sell", `{"quantity":"1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, seller.requests, 1)
}

// ---------------------------------------------------------------------------
// Health / metrics
// ---------------------------------------------------------------------------

func TestHandler_HealthCheck(t *testing.T) {
	h := NewHandler(Deps{
		DB:           mockPinger{},
		Redis:        mockPinger{err: errors.New("connection refused")},
		KafkaEnabled: true,
		Live:         mockLive{state: live.Connected},
	})

	rec, body := do(t, h, "GET", "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	services := body["services"].(map[string]interface{})
	assert.Equal(t, "healthy", services["postgres"])
	assert.Equal(t, "unhealthy: connection refused", services["redis"])
	assert.Equal(t, "configured", services["kafka"])
	assert.Equal(t, "connected", services["live"])
}

func TestHandler_HealthCheck_Degraded(t *testing.T) {
	h := NewHandler(Deps{
		DB:   mockPinger{err: errors.New("down")},
		Live: mockLive{state: live.Disconnected},
	})

	_, body := do(t, h, "GET", "/health", "")
	assert.Equal(t, "degraded", body["status"])
	services := body["services"].(map[string]interface{})
	assert.Equal(t, "not configured", services["redis"])
}

func TestRoutes_Metrics(t *testing.T) {
	m := metrics.New()
	m.IncPriceLookup("ok")
	h := NewHandler(Deps{Metrics: m})

	rec, _ := do(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dashboard_price_lookups_total{result="ok"} 1`)
}
