package mqtt

import (
	"fmt"

	"github.com/caklutfi/tempmon/internal/sensor"
)

// FormatPayload renders a reading as the wire payload: the ASCII
// temperature with two decimal places, e.g. "23.45". Invalid readings
// are formatted the same way — the sentinel value goes out as-is so
// subscribers can see the sensor is unhealthy rather than silently
// missing a cycle.
func FormatPayload(r sensor.Reading) []byte {
	return []byte(fmt.Sprintf("%.2f", r.Celsius))
}
