package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
	"github.com/trogers1052/portfolio-dashboard/internal/client"
	"github.com/trogers1052/portfolio-dashboard/internal/config"
	"github.com/trogers1052/portfolio-dashboard/internal/kafka"
	"github.com/trogers1052/portfolio-dashboard/internal/live"
	"github.com/trogers1052/portfolio-dashboard/internal/metrics"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
	"github.com/trogers1052/portfolio-dashboard/internal/portfolio"
	"github.com/trogers1052/portfolio-dashboard/internal/redis"
)

const updateBuffer = 64

// feeds are the price sources running for one command
type feeds struct {
	live     *live.Channel
	prices   *kafka.PriceConsumer
	holdings *kafka.HoldingsConsumer
}

// startFeeds starts the live channel and, when enabled, the Kafka consumers.
// All of them write into updates, which the recalculator drains in order.
func startFeeds(ctx context.Context, cfg *config.Config, m *metrics.Metrics, r *portfolio.Recalculator,
	updates chan<- models.PriceUpdateEvent, status live.StatusFunc) (*feeds, error) {
	f := &feeds{}

	if cfg.Live.Enabled {
		opts := []live.Option{live.WithMetrics(m)}
		if status != nil {
			opts = append(opts, live.WithStatus(status))
		}
		ch, err := live.New(cfg.Live, opts...)
		if err != nil {
			return nil, err
		}
		f.live = ch
		go func() {
			if err := ch.Run(ctx, updates); err != nil {
				log.Error().Err(err).Msg("Live price channel stopped")
			}
		}()
	} else {
		log.Info().Msg("Live price channel disabled")
		if status != nil {
			status(false)
		}
	}

	if cfg.Kafka.Enabled {
		f.prices = kafka.NewPriceConsumer(cfg.Kafka.Brokers, cfg.Kafka.PricesTopic, cfg.Kafka.ConsumerGroup, updates, m)
		go func() {
			log.Info().
				Str("topic", cfg.Kafka.PricesTopic).
				Str("group", cfg.Kafka.ConsumerGroup+"-prices").
				Msg("Starting Kafka price consumer")
			if err := f.prices.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Kafka price consumer error")
			}
		}()

		f.holdings = kafka.NewHoldingsConsumer(cfg.Kafka.Brokers, cfg.Kafka.HoldingsTopic, cfg.Kafka.ConsumerGroup,
			cfg.Dashboard.Username, r, m)
		go func() {
			log.Info().
				Str("topic", cfg.Kafka.HoldingsTopic).
				Str("group", cfg.Kafka.ConsumerGroup+"-holdings").
				Msg("Starting Kafka holdings consumer")
			if err := f.holdings.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Kafka holdings consumer error")
			}
		}()
	}

	return f, nil
}

// Close stops the Kafka readers. The live channel stops with its context.
func (f *feeds) Close() {
	if f.prices != nil {
		if err := f.prices.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Kafka price consumer")
		}
	}
	if f.holdings != nil {
		if err := f.holdings.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Kafka holdings consumer")
		}
	}
}

func newBackendClient(cfg *config.Config, m *metrics.Metrics, cache client.PriceCache) *client.Client {
	opts := []client.Option{client.WithMetrics(m)}
	if cache != nil {
		opts = append(opts, client.WithCache(cache))
	}
	return client.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, opts...)
}

func runMigrations(databaseURL string) error {
	m, err := migrate.New("file://./db/migrations", databaseURL)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("No migrations to apply; database is up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	log.Info().Msg("Applied database migrations")
	return nil
}

// cacheOrNil keeps a nil *redis.Client from becoming a non-nil interface
func cacheOrNil(c *redis.Client) client.PriceCache {
	if c == nil {
		return nil
	}
	return c
}
