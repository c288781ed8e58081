package redis

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-dashboard/internal/portfolio"
	"github.com/trogers1052/portfolio-dashboard/internal/render"
)

const publishTimeout = 2 * time.Second

type store interface {
	SetStockPrice(ctx context.Context, symbol string, price decimal.Decimal) error
	Publish(ctx context.Context, channel string, message interface{}) error
}

// SummaryMessage is published after every recomputation
type SummaryMessage struct {
	Symbol  string         `json:"symbol,omitempty"`
	Summary render.Summary `json:"summary"`
}

// Publisher is a portfolio view that mirrors prices and the summary into Redis
type Publisher struct {
	store   store
	channel string
}

// NewPublisher creates a publisher on the client's summary channel
func NewPublisher(c *Client) *Publisher {
	return &Publisher{store: c, channel: c.SummaryChannel()}
}

// Render caches the updated symbol's price and publishes the summary.
// Failures are logged; the dashboard keeps working without Redis.
func (p *Publisher) Render(s portfolio.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if s.Symbol != "" {
		for _, h := range s.Holdings {
			if h.Symbol != s.Symbol {
				continue
			}
			if err := p.store.SetStockPrice(ctx, h.Symbol, h.CurrentPrice); err != nil {
				log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Failed to cache price")
			}
			break
		}
	}

	msg := SummaryMessage{Symbol: s.Symbol, Summary: render.PortfolioSummary(s.Summary)}
	if err := p.store.Publish(ctx, p.channel, msg); err != nil {
		log.Warn().Err(err).Str("channel", p.channel).Msg("Failed to publish portfolio summary")
	}
}
