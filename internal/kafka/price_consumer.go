package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/portfolio-dashboard/internal/metrics"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
)

// PriceConsumer feeds price ticks from a Kafka topic into the update loop.
// Messages carry the same JSON as the live channel.
type PriceConsumer struct {
	reader  messageReader
	out     chan<- models.PriceUpdateEvent
	metrics *metrics.Metrics
}

// NewPriceConsumer creates a consumer that starts at the newest offset
func NewPriceConsumer(brokers []string, topic, groupID string, out chan<- models.PriceUpdateEvent, m *metrics.Metrics) *PriceConsumer {
	return &PriceConsumer{
		reader:  newReader(brokers, topic, groupID+"-prices", kafka.LastOffset),
		out:     out,
		metrics: m,
	}
}

// Start consumes until ctx is cancelled
func (c *PriceConsumer) Start(ctx context.Context) error {
	return consume(ctx, "prices", c.reader, c.processMessage)
}

func (c *PriceConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	topic := c.reader.Config().Topic

	var ev models.PriceUpdateEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.metrics.IncKafkaEvent(topic, "error")
		return fmt.Errorf("failed to unmarshal price update: %w", err)
	}
	if ev.Symbol == "" {
		ev.Symbol = string(msg.Key)
	}
	if ev.Symbol == "" {
		c.metrics.IncKafkaEvent(topic, "error")
		return fmt.Errorf("price update at offset %d has no symbol", msg.Offset)
	}

	select {
	case c.out <- ev:
		c.metrics.IncKafkaEvent(topic, "ok")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the Kafka consumer
func (c *PriceConsumer) Close() error {
	return c.reader.Close()
}
