package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/trogers1052/portfolio-dashboard/internal/client"
	"github.com/trogers1052/portfolio-dashboard/internal/live"
	"github.com/trogers1052/portfolio-dashboard/internal/metrics"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
	"github.com/trogers1052/portfolio-dashboard/internal/portfolio"
	"github.com/trogers1052/portfolio-dashboard/internal/render"
	"github.com/trogers1052/portfolio-dashboard/internal/trading"
)

// Portfolio is the read side of the row model
type Portfolio interface {
	Snapshot() portfolio.Snapshot
	Holding(id string) (models.Holding, bool)
}

// PriceLookup fetches a symbol's current price from the backend
type PriceLookup interface {
	FetchCurrentPrice(ctx context.Context, symbol string) (*models.PriceQuote, error)
}

// LiveStatus reports the live channel state
type LiveStatus interface {
	State() live.State
}

// Reloader refreshes the row model after a trade
type Reloader interface {
	Reload(ctx context.Context) error
}

// Pinger is a health-checked dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP handlers. Nil optional fields are
// reported as "not configured".
type Deps struct {
	Portfolio    Portfolio
	Prices       PriceLookup
	Seller       trading.Submitter
	Reloader     Reloader
	Updates      chan<- models.PriceUpdateEvent
	Live         LiveStatus
	DB           Pinger
	Redis        Pinger
	KafkaEnabled bool
	Metrics      *metrics.Metrics
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	Deps
}

// NewHandler creates a new Handler
func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d}
}

// GetPortfolio handles GET /api/v1/portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, render.Project(h.Portfolio.Snapshot()))
}

// GetSummary handles GET /api/v1/portfolio/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, render.PortfolioSummary(h.Portfolio.Snapshot().Summary))
}

// GetStatus handles GET /api/v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	state := live.Disconnected
	if h.Live != nil {
		state = h.Live.State()
	}
	connected := state == live.Connected
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connected": connected,
		"state":     state.String(),
		"label":     render.StatusLabel(connected),
	})
}

// GetPrice handles GET /api/v1/price/{symbol}
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))

	quote, err := h.Prices.FetchCurrentPrice(r.Context(), symbol)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, client.ErrEmptySymbol):
			status = http.StatusBadRequest
		case errors.Is(err, client.ErrPriceNotFound):
			status = http.StatusNotFound
		}
		log.Warn().Err(err).Str("symbol", symbol).Msg("Price lookup failed")
		respondError(w, status, render.LookupFailure(symbol, err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":        quote.Symbol,
		"name":          quote.Name,
		"current_price": quote.CurrentPrice.StringFixed(2),
		"display":       render.CurrentPrice(quote.CurrentPrice),
		"live":          quote.Live,
	})
}

// InjectPriceUpdate handles POST /api/v1/price-updates
func (h *Handler) InjectPriceUpdate(w http.ResponseWriter, r *http.Request) {
	var ev models.PriceUpdateEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if ev.Symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if ev.CurrentPrice.IsNegative() {
		respondError(w, http.StatusBadRequest, "currentPrice must not be negative")
		return
	}

	select {
	case h.Updates <- ev:
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "symbol": ev.Symbol})
	case <-r.Context().Done():
		respondError(w, http.StatusServiceUnavailable, "update loop is busy")
	}
}

type sellBody struct {
	Quantity string `json:"quantity"`
	All      bool   `json:"all"`
}

// SellHolding handles POST /api/v1/holdings/{id}/sell
func (h *Handler) SellHolding(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.draft(w, r)
	if !ok {
		return
	}

	var body sellBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	if body.All {
		err = draft.SellAll()
	} else {
		err = draft.SetQuantity(body.Quantity)
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := draft.Submit(r.Context(), h.Seller); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.reload(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{
		"symbol":   draft.Symbol,
		"quantity": draft.Quantity.String(),
	})
}

// LiquidateHolding handles POST /api/v1/holdings/{id}/liquidate. The request
// must carry confirm=true; without it the confirmation prompt is returned.
func (h *Handler) LiquidateHolding(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.draft(w, r)
	if !ok {
		return
	}

	confirmed := trading.ConfirmFunc(func(context.Context, string) (bool, error) {
		return r.URL.Query().Get("confirm") == "true", nil
	})
	done, err := trading.ConfirmDelete(r.Context(), draft, confirmed, h.Seller)
	switch {
	case errors.Is(err, trading.ErrNoSharesToSell):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusBadGateway, err.Error())
		return
	case !done:
		respondJSON(w, http.StatusPreconditionRequired, map[string]string{
			"error":  "confirmation required",
			"prompt": trading.DeletePrompt(draft),
		})
		return
	}

	h.reload(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{
		"symbol":   draft.Symbol,
		"quantity": draft.Quantity.String(),
		"status":   "liquidated",
	})
}

// reload brings the row model in line with the backend after a trade. The
// trade itself already succeeded, so a failure is only logged.
func (h *Handler) reload(ctx context.Context) {
	if h.Reloader == nil {
		return
	}
	if err := h.Reloader.Reload(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to refresh holdings after sell")
	}
}

func (h *Handler) draft(w http.ResponseWriter, r *http.Request) (*trading.SellDraft, bool) {
	id := mux.Vars(r)["id"]
	holding, ok := h.Portfolio.Holding(id)
	if !ok {
		respondError(w, http.StatusNotFound, "holding not found")
		return nil, false
	}
	draft, err := trading.DraftFor(holding)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return draft, true
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	// Check database
	if h.DB != nil {
		if err := h.DB.Ping(ctx); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
	}

	// Check Redis
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if h.KafkaEnabled {
		services["kafka"] = "configured"
	} else {
		services["kafka"] = "not configured"
	}

	if h.Live != nil {
		services["live"] = h.Live.State().String()
		if h.Live.State() != live.Connected {
			allHealthy = false
		}
	} else {
		services["live"] = "not configured"
	}

	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
