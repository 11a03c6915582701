package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
)

// State is the broker connection state.
type State int32

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Options configures a Client. BrokerURL is required; everything else
// has a default.
type Options struct {
	// BrokerURL is the full broker URL, e.g. "tcp://192.168.1.36:1883".
	BrokerURL string

	// ClientID identifies this device to the broker. Empty generates
	// a "tempmon-" prefixed random ID for this process.
	ClientID string

	// KeepAlive is the MQTT keep-alive interval in seconds
	// (default 30). Serviced by autopaho's pinger.
	KeepAlive uint16

	// RetryDelay is the minimum wait between connection checks inside
	// EnsureConnected (default 100ms). It bounds the retry rate but
	// not the visual blink rate, which the caller throttles itself.
	RetryDelay time.Duration

	// PublishTimeout bounds a single publish attempt (default 5s).
	PublishTimeout time.Duration

	// Logger for structured logging. Uses slog.Default() if nil.
	Logger *slog.Logger
}

// Client wraps an autopaho connection manager with the two-state
// connection model the monitor cares about. Safe for use from a single
// loop goroutine; the connected flag is atomic because autopaho's
// callbacks update it from its own goroutines.
type Client struct {
	opts      Options
	logger    *slog.Logger
	cm        *autopaho.ConnectionManager
	connected atomic.Bool
}

// NewClient creates a Client but does not connect. Call [Client.Start]
// to begin connection management.
func NewClient(opts Options) *Client {
	if opts.ClientID == "" {
		opts.ClientID = "tempmon-" + uuid.NewString()[:8]
	}
	if opts.KeepAlive == 0 {
		opts.KeepAlive = 30
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{opts: opts, logger: opts.Logger}
}

// ClientID returns the identifier used on the broker connection.
func (c *Client) ClientID() string {
	return c.opts.ClientID
}

// Start begins connection management. It returns once the manager is
// running; it does not wait for the first successful connect — use
// [Client.EnsureConnected] for that. Reconnection after transport
// errors is automatic and continues until ctx is cancelled.
func (c *Client) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(c.opts.BrokerURL)
	if err != nil {
		return fmt.Errorf("parse broker URL: %w", err)
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls: []*url.URL{brokerURL},
		KeepAlive:  c.opts.KeepAlive,
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			c.connected.Store(true)
			c.logger.Info("mqtt connected", "broker", c.opts.BrokerURL, "client_id", c.opts.ClientID)
		},
		OnConnectError: func(err error) {
			c.connected.Store(false)
			c.logger.Warn("mqtt connect failed", "broker", c.opts.BrokerURL, "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: c.opts.ClientID,
			OnClientError: func(err error) {
				c.connected.Store(false)
				c.logger.Warn("mqtt transport error", "error", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				c.connected.Store(false)
				c.logger.Warn("mqtt server disconnect", "reason_code", d.ReasonCode)
			},
		},
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connection manager: %w", err)
	}
	c.cm = cm
	return nil
}

// Stop disconnects from the broker. The context bounds how long to
// wait for a clean disconnect.
func (c *Client) Stop(ctx context.Context) error {
	if c.cm == nil {
		return nil
	}
	c.connected.Store(false)
	return c.cm.Disconnect(ctx)
}

// State returns the current connection state.
func (c *Client) State() State {
	if c.connected.Load() {
		return Connected
	}
	return Disconnected
}

// Connected reports whether the broker link is up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// EnsureConnected blocks until the broker link is up or ctx is
// cancelled. Between checks it waits RetryDelay, and it calls onRetry
// before each wait so the caller can drive a degraded-mode side
// effect (the display blink) at its own cadence. The wait is what
// keeps this from busy-spinning; the actual reconnect attempts run on
// autopaho's schedule independently.
func (c *Client) EnsureConnected(ctx context.Context, onRetry func()) error {
	for !c.connected.Load() {
		if onRetry != nil {
			onRetry()
		}

		waitCtx, cancel := context.WithTimeout(ctx, c.opts.RetryDelay)
		err := c.cm.AwaitConnection(waitCtx)
		cancel()
		if err == nil {
			// AwaitConnection returned before the delay elapsed: the
			// manager believes the link is up. The callback may not
			// have fired yet, so mirror it here.
			c.connected.Store(true)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// Publish sends payload to topic at QoS 0 without retain. It returns
// false on any transport failure and never panics; interpreting a
// false is the caller's job.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) bool {
	if c.cm == nil || !c.connected.Load() {
		return false
	}

	pubCtx, cancel := context.WithTimeout(ctx, c.opts.PublishTimeout)
	defer cancel()

	if _, err := c.cm.Publish(pubCtx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
	}); err != nil {
		c.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
		return false
	}

	c.logger.Debug("mqtt published", "topic", topic, "payload", string(payload))
	return true
}
