package monitor

import "time"

// BlinkPeriod is the minimum time between display inversion toggles.
// The connect-retry and publish-failure paths may run far more often
// than this; the throttle keeps the visual blink rate fixed no matter
// how hot those paths are.
const BlinkPeriod = 500 * time.Millisecond

// BlinkState tracks the degraded-mode display inversion.
type BlinkState struct {
	Inverted   bool
	LastToggle time.Time
}

// toggle flips the inversion if at least BlinkPeriod has elapsed since
// the last flip. Returns whether the state changed; the caller pushes
// the change to the display only when it did.
func (b *BlinkState) toggle(now time.Time) bool {
	if !b.LastToggle.IsZero() && now.Sub(b.LastToggle) < BlinkPeriod {
		return false
	}
	b.Inverted = !b.Inverted
	b.LastToggle = now
	return true
}

// reset returns the blink to non-inverted. Returns whether the display
// needs to be told.
func (b *BlinkState) reset() bool {
	changed := b.Inverted
	b.Inverted = false
	b.LastToggle = time.Time{}
	return changed
}
