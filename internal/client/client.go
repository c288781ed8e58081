// Package client talks to the trading backend over HTTP: current price
// lookups and the buy / sell form submissions.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-dashboard/internal/metrics"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
)

var (
	// ErrLookupFailed matches every failed price lookup
	ErrLookupFailed  = errors.New("price lookup failed")
	ErrEmptySymbol   = errors.New("please enter a stock symbol")
	ErrPriceNotFound = fmt.Errorf("%w: price not found", ErrLookupFailed)
)

// TransientError is a lookup failure caused by the transport or the backend.
// The caller may try again later.
type TransientError struct {
	Symbol     string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("price lookup for %s failed: status %d", e.Symbol, e.StatusCode)
	}
	return fmt.Sprintf("price lookup for %s failed: %v", e.Symbol, e.Err)
}

func (e *TransientError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrLookupFailed}
	}
	return []error{ErrLookupFailed, e.Err}
}

// PriceCache stores looked-up prices for other processes
type PriceCache interface {
	SetStockPrice(ctx context.Context, symbol string, price decimal.Decimal) error
}

// Client is the backend HTTP client
type Client struct {
	baseURL string
	http    *http.Client
	cache   PriceCache
	metrics *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithCache writes successful lookups to c
func WithCache(c PriceCache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithMetrics counts lookups and sell requests
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.http = h }
}

// New creates a client for the backend at baseURL
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			// The form endpoints answer with a redirect back to the dashboard.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCurrentPrice looks up the current price of symbol. It does not retry.
func (c *Client) FetchCurrentPrice(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}

	endpoint := c.baseURL + "/api/stocks/price/" + url.PathEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.IncPriceLookup("error")
		return nil, &TransientError{Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.metrics.IncPriceLookup("not_found")
		return nil, fmt.Errorf("%w: %s", ErrPriceNotFound, symbol)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.metrics.IncPriceLookup("error")
		return nil, &TransientError{Symbol: symbol, StatusCode: resp.StatusCode}
	}

	var quote models.PriceQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		c.metrics.IncPriceLookup("error")
		return nil, &TransientError{Symbol: symbol, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	c.metrics.IncPriceLookup("ok")

	if c.cache != nil {
		if err := c.cache.SetStockPrice(ctx, quote.Symbol, quote.CurrentPrice); err != nil {
			log.Warn().Err(err).Str("symbol", quote.Symbol).Msg("Failed to cache price")
		}
	}
	return &quote, nil
}

// BuyStock submits the buy form
func (c *Client) BuyStock(ctx context.Context, r models.BuyRequest) error {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid buy request: %w", err)
	}

	form := url.Values{}
	form.Set("symbol", r.Symbol)
	form.Set("quantity", r.Quantity.String())
	if r.PurchasePrice != nil {
		form.Set("purchasePrice", r.PurchasePrice.StringFixed(2))
	}
	if err := c.postForm(ctx, "/buy-stock", form); err != nil {
		return fmt.Errorf("failed to buy %s: %w", r.Symbol, err)
	}
	log.Info().Str("symbol", r.Symbol).Str("quantity", r.Quantity.String()).Msg("Submitted buy request")
	return nil
}

// SellStock submits the sell form
func (c *Client) SellStock(ctx context.Context, r models.SellRequest) error {
	if err := validate.Struct(r); err != nil {
		c.metrics.IncSellRequest("error")
		return fmt.Errorf("invalid sell request: %w", err)
	}

	form := url.Values{}
	form.Set("ownedStockId", r.OwnedStockID)
	form.Set("quantity", r.Quantity.String())
	if err := c.postForm(ctx, "/sell-stock", form); err != nil {
		c.metrics.IncSellRequest("error")
		return err
	}
	c.metrics.IncSellRequest("ok")
	return nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("backend rejected %s: status %d", path, resp.StatusCode)
	}
	return nil
}
