package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-dashboard/internal/config"
)

// ErrCacheMiss is returned when a key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// Client wraps the Redis client with price cache and summary operations
type Client struct {
	rdb            *redis.Client
	priceTTL       time.Duration
	summaryChannel string
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, priceTTL: cfg.PriceTTL, summaryChannel: cfg.SummaryKey}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SummaryChannel is the channel portfolio summaries are published on
func (c *Client) SummaryChannel() string {
	return c.summaryChannel
}

// PriceKey returns the cache key for a symbol's last price
func PriceKey(symbol string) string {
	return fmt.Sprintf("stock:%s:price", strings.ToUpper(symbol))
}

// SetStockPrice caches a stock price with the configured TTL
func (c *Client) SetStockPrice(ctx context.Context, symbol string, price decimal.Decimal) error {
	if err := c.rdb.Set(ctx, PriceKey(symbol), price.String(), c.priceTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache price for %s: %w", symbol, err)
	}
	return nil
}

// GetStockPrice retrieves a cached stock price
func (c *Client) GetStockPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	val, err := c.rdb.Get(ctx, PriceKey(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, ErrCacheMiss
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read cached price for %s: %w", symbol, err)
	}
	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse cached price %q: %w", val, err)
	}
	return price, nil
}

// Publish publishes a message to a channel
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) error {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.rdb.Publish(ctx, channel, jsonData).Err()
}
