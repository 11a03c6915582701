// Package sensor reads the DS18B20 temperature probe. The real
// implementation goes through the Linux w1 sysfs interface; a fake
// satisfies the same interface for tests and bench runs without
// hardware.
package sensor

import (
	"fmt"
	"time"
)

// DS18B20 sentinel values. A probe that is disconnected mid-bus reads
// -127; one that lost power and reset reads +85.0 (the power-on value
// of its scratchpad) until the first completed conversion.
const (
	DisconnectedC = -127.0
	PowerOnResetC = 85.0
)

// Reading is one sensor sample. Celsius carries whatever the bus
// returned, sentinel or not, so the raw value can still be published
// and inspected; Valid says whether it is a usable temperature.
// HasTime is false when wall-clock time was never established (NTP
// sync failed at boot), in which case At is meaningless.
type Reading struct {
	Celsius float64
	Valid   bool
	At      time.Time
	HasTime bool
}

// String formats a reading for logs: "23.44C" or "invalid (-127.00C)".
func (r Reading) String() string {
	if !r.Valid {
		return fmt.Sprintf("invalid (%.2fC)", r.Celsius)
	}
	return fmt.Sprintf("%.2fC", r.Celsius)
}

// Reader produces one Reading per call. Read blocks for the duration
// of a sensor conversion (bounded by hardware, typically under a
// second) and never fails: bus errors come back as an invalid
// Reading. Retrying is the caller's policy, not the reader's — the
// next poll cycle tries again naturally.
type Reader interface {
	Read() Reading
}

// TimeSource supplies wall-clock time for reading timestamps. The
// bool reports whether the clock has been established (NTP synced);
// before that, readings carry HasTime=false and the display shows a
// placeholder stamp.
type TimeSource func() (time.Time, bool)

// classify marks the DS18B20 sentinel values invalid.
func classify(celsius float64) bool {
	return celsius != DisconnectedC && celsius != PowerOnResetC
}
