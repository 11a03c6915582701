// Package timesync establishes wall-clock validity at boot. The
// monitor targets headless boards without a battery-backed RTC, so the
// system clock is not trusted for reading timestamps until one NTP
// exchange has succeeded. Until then readings carry no usable time and
// the display shows a placeholder stamp. This is the explicit fallback
// path — sync failure is logged, never fatal.
package timesync

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/beevik/ntp"
)

// queryFunc matches ntp.Time; replaced in tests.
type queryFunc func(host string) (time.Time, error)

// Clock reports wall-clock time together with whether that time has
// been established. Safe for concurrent use; the synced flag is
// written once by Sync and read from the loop goroutine.
type Clock struct {
	synced atomic.Bool
	offset atomic.Int64 // nanoseconds, NTP time minus system time
	query  queryFunc
	logger *slog.Logger
}

// NewClock creates an unsynced Clock.
func NewClock(logger *slog.Logger) *Clock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clock{query: ntp.Time, logger: logger}
}

// Sync queries the NTP server, retrying a few times, and marks the
// clock established on success. It honors ctx between attempts. A
// total failure leaves the clock unsynced and returns the last error;
// callers log it and carry on with placeholder time.
func (c *Clock) Sync(ctx context.Context, server string) error {
	const attempts = 3
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		t, err := c.query(server)
		if err == nil {
			c.offset.Store(int64(time.Until(t)))
			c.synced.Store(true)
			c.logger.Info("time synchronized", "server", server, "time", t.Format(time.RFC3339))
			return nil
		}
		lastErr = err
		c.logger.Warn("ntp query failed", "server", server, "attempt", i+1, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}

	return fmt.Errorf("ntp sync against %s: %w", server, lastErr)
}

// Synced reports whether wall-clock time has been established.
func (c *Clock) Synced() bool {
	return c.synced.Load()
}

// Now returns the corrected wall-clock time and whether it can be
// trusted. This is the sensor package's TimeSource.
func (c *Clock) Now() (time.Time, bool) {
	if !c.synced.Load() {
		return time.Time{}, false
	}
	return time.Now().Add(time.Duration(c.offset.Load())), true
}
