// Package live subscribes to the backend's STOMP price topic over a
// WebSocket and feeds decoded price updates into the recalculator loop.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/trogers1052/portfolio-dashboard/internal/config"
	"github.com/trogers1052/portfolio-dashboard/internal/metrics"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
)

const (
	defaultReconnectDelay = 5 * time.Second
	writeTimeout          = 5 * time.Second
	disconnectTimeout     = 2 * time.Second
)

// State of the live channel
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// StatusFunc is told whenever the channel becomes connected or disconnected
type StatusFunc func(connected bool)

// Channel is a reconnecting STOMP subscription. Reconnection uses a fixed
// delay with no attempt limit.
type Channel struct {
	url     string
	host    string
	topic   string
	delay   time.Duration
	dialer  *websocket.Dialer
	metrics *metrics.Metrics

	mu        sync.RWMutex
	state     State
	reported  bool
	observers []StatusFunc
}

// Option configures a Channel
type Option func(*Channel)

// WithStatus registers a status observer
func WithStatus(fn StatusFunc) Option {
	return func(c *Channel) { c.observers = append(c.observers, fn) }
}

// WithMetrics records connection state and message counts
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Channel) { c.metrics = m }
}

// New creates a Channel from configuration
func New(cfg config.LiveConfig, opts ...Option) (*Channel, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse live URL: %w", err)
	}
	c := &Channel{
		url:    cfg.URL,
		host:   u.Hostname(),
		topic:  cfg.Topic,
		delay:  cfg.ReconnectDelay,
		dialer: websocket.DefaultDialer,
	}
	if c.delay <= 0 {
		c.delay = defaultReconnectDelay
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// OnStatus registers another status observer
func (c *Channel) OnStatus(fn StatusFunc) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// State returns the current state
func (c *Channel) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Connected reports whether the subscription is live
func (c *Channel) Connected() bool {
	return c.State() == Connected
}

// Run connects and forwards every decoded price update to out, in arrival
// order, until ctx is cancelled. Session errors are followed by a reconnect
// after the configured delay.
func (c *Channel) Run(ctx context.Context, out chan<- models.PriceUpdateEvent) error {
	log.Info().Str("url", c.url).Str("topic", c.topic).Msg("Starting live price channel")
	defer c.setState(Disconnected)

	for {
		if ctx.Err() != nil {
			return nil
		}

		c.setState(Connecting)
		err := c.session(ctx, out)
		c.setState(Disconnected)
		if ctx.Err() != nil {
			log.Info().Msg("Live price channel shutting down...")
			return nil
		}

		log.Warn().Err(err).Dur("delay", c.delay).Msg("Live price channel disconnected, reconnecting")
		c.metrics.IncLiveReconnect()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.delay):
		}
	}
}

// session runs one connection until it fails or ctx is cancelled
func (c *Channel) session(ctx context.Context, out chan<- models.PriceUpdateEvent) error {
	ws, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	transport := newWSConn(ws)
	defer transport.Close()

	// Unblock the handshake if ctx ends before CONNECTED arrives.
	handshake := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			transport.Close()
		case <-handshake:
		}
	}()

	conn, err := stomp.Connect(transport,
		stomp.ConnOpt.AcceptVersion(stomp.V12),
		stomp.ConnOpt.Host(c.host),
		stomp.ConnOpt.HeartBeat(0, 0),
	)
	close(handshake)
	if err != nil {
		return c.stompErr(ctx, "failed to connect", err)
	}

	sub, err := conn.Subscribe(c.topic, stomp.AckAuto, stomp.SubscribeOpt.Id("sub-"+uuid.NewString()))
	if err != nil {
		conn.MustDisconnect()
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	c.setState(Connected)
	log.Info().Str("topic", c.topic).Str("version", string(conn.Version())).Msg("Live price channel connected")

	for {
		select {
		case <-ctx.Done():
			c.disconnect(conn)
			return nil
		case msg, ok := <-sub.C:
			if !ok {
				return c.stompErr(ctx, "subscription closed", errors.New("no more messages"))
			}
			if msg.Err != nil {
				return c.stompErr(ctx, "failed to read message", msg.Err)
			}

			var ev models.PriceUpdateEvent
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				c.metrics.IncLiveMessage("invalid")
				log.Warn().Err(err).Str("body", string(msg.Body)).Msg("Failed to decode price update")
				continue
			}
			c.metrics.IncLiveMessage("ok")
			select {
			case out <- ev:
			case <-ctx.Done():
				c.disconnect(conn)
				return nil
			}
		}
	}
}

// disconnect sends DISCONNECT and waits briefly for the broker's receipt
func (c *Channel) disconnect(conn *stomp.Conn) {
	done := make(chan error, 1)
	go func() { done <- conn.Disconnect() }()
	select {
	case err := <-done:
		if err != nil {
			log.Debug().Err(err).Msg("DISCONNECT was not acknowledged")
		}
	case <-time.After(disconnectTimeout):
		log.Debug().Msg("Timed out waiting for DISCONNECT receipt")
	}
}

// stompErr wraps a session failure; anything after ctx ends is a clean
// shutdown. An ERROR frame from the broker arrives here carrying its message.
func (c *Channel) stompErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// setState records s and notifies observers when connectivity changes.
// Connecting is internal and never reported.
func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	if s == Connecting {
		c.mu.Unlock()
		return
	}
	connected := s == Connected
	changed := connected != c.reported
	c.reported = connected
	observers := append([]StatusFunc(nil), c.observers...)
	c.mu.Unlock()

	if !changed {
		return
	}
	c.metrics.SetLiveConnected(connected)
	for _, fn := range observers {
		fn(connected)
	}
}
