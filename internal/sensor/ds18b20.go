package sensor

import (
	"fmt"
	"log/slog"

	"github.com/yryz/ds18b20"
)

// DS18B20 reads a single probe through the Linux w1 sysfs interface
// (/sys/bus/w1/devices). Each Read triggers a conversion, which blocks
// for the sensor's conversion time (up to ~750ms at 12-bit
// resolution).
type DS18B20 struct {
	id     string
	clock  TimeSource
	logger *slog.Logger
}

// Discover returns a DS18B20 for the first probe on the w1 bus. The
// monitor is single-sensor; additional probes on the bus are logged
// and ignored.
func Discover(clock TimeSource, logger *slog.Logger) (*DS18B20, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ids, err := ds18b20.Sensors()
	if err != nil {
		return nil, fmt.Errorf("scan w1 bus: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no DS18B20 probes on w1 bus")
	}
	if len(ids) > 1 {
		logger.Warn("multiple probes on w1 bus, using first", "count", len(ids), "using", ids[0])
	}

	logger.Info("sensor discovered", "id", ids[0])
	return &DS18B20{id: ids[0], clock: clock, logger: logger}, nil
}

// ID returns the w1 device identifier of the probe.
func (d *DS18B20) ID() string {
	return d.id
}

// Read triggers a conversion and returns the sample. A bus error or a
// sentinel value produces an invalid Reading; the loop keeps running
// and the next cycle retries on its own.
func (d *DS18B20) Read() Reading {
	at, hasTime := d.clock()

	celsius, err := ds18b20.Temperature(d.id)
	if err != nil {
		d.logger.Warn("sensor read failed", "id", d.id, "error", err)
		return Reading{Celsius: DisconnectedC, At: at, HasTime: hasTime}
	}

	r := Reading{Celsius: celsius, Valid: classify(celsius), At: at, HasTime: hasTime}
	if !r.Valid {
		d.logger.Warn("sensor returned sentinel value", "id", d.id, "celsius", celsius)
	}
	return r
}
