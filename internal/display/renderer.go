// Package display renders monitor state on a two-row bitmap screen.
//
// The Renderer decides what is shown and when; putting pixels on glass
// is the Device's problem. The layout contract: the primary row shows
// the current reading (or a placeholder when the sensor is unhealthy),
// the secondary row shows the last reading whose publish was confirmed
// plus its timestamp, with an "X" marker appended while publishing is
// failing. Inversion (the degraded-mode blink) is driven separately
// from rendering so the blink cadence is independent of the poll
// cadence.
package display

import (
	"fmt"
	"log/slog"

	"github.com/caklutfi/tempmon/internal/sensor"
)

// Placeholders shown before the first valid sample or confirmed
// publish.
const (
	PlaceholderTemp  = "--.--C"
	PlaceholderStamp = "--:--:--"
)

// Device is a two-row text screen with inversion. Implementations:
// OLED (SSD1306 over I²C) and Console (stderr, for bench runs).
type Device interface {
	// Draw replaces the screen contents with the two rows.
	Draw(primary, secondary string) error
	// SetInverted switches the whole screen to inverse video.
	SetInverted(on bool) error
	// Close releases the device.
	Close() error
}

// Renderer formats monitor state for a Device. Not safe for concurrent
// use; the control loop is its only caller.
type Renderer struct {
	dev    Device
	logger *slog.Logger
}

// NewRenderer creates a Renderer on the given device.
func NewRenderer(dev Device, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{dev: dev, logger: logger}
}

// FormatTemp renders a reading's temperature for display: "23.45C",
// or the placeholder when the reading is invalid or zero-valued.
func FormatTemp(r sensor.Reading) string {
	if !r.Valid {
		return PlaceholderTemp
	}
	return fmt.Sprintf("%.2fC", r.Celsius)
}

// FormatStamp renders a reading's time of day: "15:04:05", or the
// placeholder when wall-clock time was never established.
func FormatStamp(r sensor.Reading) string {
	if !r.HasTime {
		return PlaceholderStamp
	}
	return r.At.Format("15:04:05")
}

// Render draws the current and last-good readings. publishFailed
// appends the failure marker to the secondary row. Device errors are
// logged, not returned: a broken display must not stop the loop.
func (r *Renderer) Render(current, lastGood sensor.Reading, publishFailed bool) {
	secondary := FormatTemp(lastGood) + " @ " + FormatStamp(lastGood)
	if publishFailed {
		secondary += " X"
	}

	if err := r.dev.Draw(FormatTemp(current), secondary); err != nil {
		r.logger.Warn("display draw failed", "error", err)
	}
}

// SetInverted switches inverse video on or off. Decoupled from Render
// so the blink mechanism can toggle without redrawing content.
func (r *Renderer) SetInverted(on bool) {
	if err := r.dev.SetInverted(on); err != nil {
		r.logger.Warn("display invert failed", "error", err)
	}
}

// Message shows a standalone status line (boot, provisioning,
// provisioning failure). Uses the primary row with an empty secondary.
func (r *Renderer) Message(text string) {
	if err := r.dev.Draw(text, ""); err != nil {
		r.logger.Warn("display message failed", "error", err)
	}
}
