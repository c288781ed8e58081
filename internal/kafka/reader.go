package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageReader is the part of *kafka.Reader the consumers use
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

func newReader(brokers []string, topic, groupID string, startOffset int64) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        500 * time.Millisecond,
		StartOffset:    startOffset,
		CommitInterval: time.Second,
	})
}

// consume reads until ctx is cancelled, handing every message to process.
// Processing errors are logged and do not stop the loop.
func consume(ctx context.Context, name string, r messageReader, process func(context.Context, kafka.Message) error) error {
	log := logger(name, r.Config().Topic)
	log.Info().Msg("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Kafka consumer shutting down...")
			return nil
		default:
			msg, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Error().Err(err).Msg("Error reading message")
				continue
			}

			if err := process(ctx, msg); err != nil {
				log.Error().Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("Error processing message")
			}
		}
	}
}
