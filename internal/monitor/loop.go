package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/caklutfi/tempmon/internal/mqtt"
	"github.com/caklutfi/tempmon/internal/sensor"
)

// DefaultTickRate is how often Run invokes Tick. It is deliberately
// much faster than any sane poll interval so connection loss is
// noticed quickly and the failure blink stays smooth.
const DefaultTickRate = 100 * time.Millisecond

// Sensor produces one reading per call. Satisfied by sensor.DS18B20
// and sensor.Fake.
type Sensor interface {
	Read() sensor.Reading
}

// Publisher is the broker connection as the loop sees it. Satisfied by
// mqtt.Client.
type Publisher interface {
	// Connected reports whether the broker link is up.
	Connected() bool
	// EnsureConnected blocks until the link is up or ctx is cancelled,
	// calling onRetry between attempts.
	EnsureConnected(ctx context.Context, onRetry func()) error
	// Publish sends one payload; false means transport failure.
	Publish(ctx context.Context, topic string, payload []byte) bool
}

// Display receives render and inversion calls. Satisfied by
// display.Renderer.
type Display interface {
	Render(current, lastGood sensor.Reading, publishFailed bool)
	SetInverted(on bool)
}

// DeviceState is the transient state the loop owns: the audit trail of
// the last confirmed transmission, the failure flag, the blink, and
// the poll timer. There is exactly one, held by the Loop, mutated only
// from the loop goroutine.
type DeviceState struct {
	// LastGood is the most recent reading whose publish was confirmed.
	// It advances only on publish success: a failed publish must not
	// move the displayed "previous" reading.
	LastGood sensor.Reading
	// PublishFailed is true from a failed publish until the next
	// successful one.
	PublishFailed bool
	// Blink is the degraded-mode display inversion.
	Blink BlinkState
	// LastFire is when the poll timer last fired.
	LastFire time.Time
}

// Config wires a Loop.
type Config struct {
	// Topic readings are published to.
	Topic string
	// Interval is the poll cadence. Values below one second are
	// clamped to one second.
	Interval time.Duration
	// TickRate is how often Run calls Tick (default DefaultTickRate).
	TickRate time.Duration

	Sensor    Sensor
	Publisher Publisher
	Display   Display

	// Logger for structured logging. Uses slog.Default() if nil.
	Logger *slog.Logger
	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Loop is the control loop orchestrator.
type Loop struct {
	cfg   Config
	state DeviceState
}

// New creates a Loop. The poll interval is clamped here so every
// caller gets the same floor.
func New(cfg Config) *Loop {
	if cfg.Interval < time.Second {
		cfg.Interval = time.Second
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Loop{cfg: cfg}
}

// State returns a snapshot of the loop's transient state.
func (l *Loop) State() DeviceState {
	return l.state
}

// Run drives Tick at the configured tick rate until ctx is cancelled.
// It blocks.
func (l *Loop) Run(ctx context.Context) {
	l.cfg.Logger.Info("control loop started",
		"topic", l.cfg.Topic,
		"interval", l.cfg.Interval,
	)

	ticker := time.NewTicker(l.cfg.TickRate)
	defer ticker.Stop()

	l.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			l.cfg.Logger.Info("control loop stopped")
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick is one loop iteration:
//
//  1. If the broker link is down, block in EnsureConnected, blinking
//     the display while waiting. On reconnect the inversion resets.
//  2. Keep-alive needs no servicing here — the MQTT client's own
//     goroutines handle it continuously, which is why Tick can return
//     early without starving the connection.
//  3. If the poll timer has not elapsed, return without side effects
//     (after servicing an outstanding failure blink, which runs at
//     tick rate, not poll rate).
//  4. On elapse: restart the timer from now, read the sensor, publish.
//  5. Success clears the failure flag and inversion and advances
//     LastGood; failure sets the flag and toggles the blink.
//  6. Render.
func (l *Loop) Tick(ctx context.Context) {
	if !l.cfg.Publisher.Connected() {
		l.cfg.Logger.Debug("broker link down, reconnecting")
		err := l.cfg.Publisher.EnsureConnected(ctx, func() {
			if l.state.Blink.toggle(l.cfg.Now()) {
				l.cfg.Display.SetInverted(l.state.Blink.Inverted)
			}
		})
		if err != nil {
			return // shutting down
		}
		if l.state.Blink.reset() {
			l.cfg.Display.SetInverted(false)
		}
	}

	now := l.cfg.Now()

	// A publish failure keeps blinking between polls until the next
	// success, independent of the poll cadence.
	if l.state.PublishFailed && l.state.Blink.toggle(now) {
		l.cfg.Display.SetInverted(l.state.Blink.Inverted)
	}

	if now.Sub(l.state.LastFire) < l.cfg.Interval {
		return
	}
	l.state.LastFire = now

	current := l.cfg.Sensor.Read()

	// Invalid readings are published anyway: subscribers see the
	// sentinel instead of a silent gap.
	ok := l.cfg.Publisher.Publish(ctx, l.cfg.Topic, mqtt.FormatPayload(current))
	if ok {
		l.state.PublishFailed = false
		if l.state.Blink.reset() {
			l.cfg.Display.SetInverted(false)
		}
		l.state.LastGood = current
		l.cfg.Logger.Debug("reading published", "reading", current.String(), "topic", l.cfg.Topic)
	} else {
		l.state.PublishFailed = true
		if l.state.Blink.toggle(now) {
			l.cfg.Display.SetInverted(l.state.Blink.Inverted)
		}
		l.cfg.Logger.Warn("publish failed, keeping previous last-good reading",
			"reading", current.String(),
			"last_good", l.state.LastGood.String(),
		)
	}

	l.cfg.Display.Render(current, l.state.LastGood, l.state.PublishFailed)
}
