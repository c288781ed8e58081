package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-dashboard/internal/metrics"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
)

// EventHoldingsSnapshot is the only holdings event type acted upon
const EventHoldingsSnapshot = "POSITIONS_SNAPSHOT"

// HoldingsSink receives a full replacement of the row model
type HoldingsSink interface {
	Load(holdings []*models.Holding)
}

// HoldingsConsumer replaces the row model whenever a holdings snapshot for
// the dashboard user arrives.
type HoldingsConsumer struct {
	reader   messageReader
	sink     HoldingsSink
	username string
	metrics  *metrics.Metrics
}

// NewHoldingsConsumer creates a consumer that only reads new snapshots
func NewHoldingsConsumer(brokers []string, topic, groupID, username string, sink HoldingsSink, m *metrics.Metrics) *HoldingsConsumer {
	return &HoldingsConsumer{
		reader:   newReader(brokers, topic, groupID+"-holdings", kafka.LastOffset),
		sink:     sink,
		username: username,
		metrics:  m,
	}
}

// Start consumes until ctx is cancelled
func (c *HoldingsConsumer) Start(ctx context.Context) error {
	return consume(ctx, "holdings", c.reader, c.processMessage)
}

func (c *HoldingsConsumer) processMessage(_ context.Context, msg kafka.Message) error {
	topic := c.reader.Config().Topic

	var event models.HoldingsEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.metrics.IncKafkaEvent(topic, "error")
		return fmt.Errorf("failed to unmarshal holdings event: %w", err)
	}

	if event.EventType != EventHoldingsSnapshot {
		log.Debug().Str("event_type", event.EventType).Msg("Ignoring event type")
		return nil
	}
	if event.Data.Username != "" && !strings.EqualFold(event.Data.Username, c.username) {
		log.Debug().Str("username", event.Data.Username).Msg("Ignoring snapshot for another user")
		return nil
	}

	holdings := make([]*models.Holding, 0, len(event.Data.Holdings))
	now := time.Now()
	for _, hd := range event.Data.Holdings {
		h, err := convertHoldingData(hd, now)
		if err != nil {
			log.Warn().Err(err).Str("symbol", hd.Symbol).Msg("Failed to convert holding")
			continue
		}
		holdings = append(holdings, h)
	}

	c.sink.Load(holdings)
	c.metrics.IncKafkaEvent(topic, "ok")
	log.Info().
		Int("holdings", len(holdings)).
		Int("skipped", len(event.Data.Holdings)-len(holdings)).
		Msg("Applied holdings snapshot")
	return nil
}

// convertHoldingData converts wire holding data to a row. The invested
// amount falls back to quantity × average price when absent.
func convertHoldingData(hd models.HoldingData, now time.Time) (*models.Holding, error) {
	if hd.ID == "" || hd.Symbol == "" {
		return nil, fmt.Errorf("holding is missing id or symbol")
	}

	quantity, err := decimal.NewFromString(hd.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %s: %w", hd.Quantity, err)
	}

	invested, err := decimal.NewFromString(hd.InvestedAmount)
	if err != nil {
		avg, avgErr := decimal.NewFromString(hd.AveragePrice)
		if avgErr != nil {
			return nil, fmt.Errorf("invalid invested_amount %s: %w", hd.InvestedAmount, err)
		}
		invested = avg.Mul(quantity)
	}

	currentPrice, err := decimal.NewFromString(hd.CurrentPrice)
	if err != nil {
		currentPrice = decimal.Zero
	}

	return &models.Holding{
		ID:             hd.ID,
		Symbol:         hd.Symbol,
		Name:           hd.Name,
		Quantity:       quantity,
		InvestedAmount: invested,
		CurrentPrice:   currentPrice,
		Trend:          models.TrendUnchanged,
		UpdatedAt:      now,
	}, nil
}

// Close closes the Kafka consumer
func (c *HoldingsConsumer) Close() error {
	return c.reader.Close()
}
