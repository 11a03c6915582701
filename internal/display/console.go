package display

import (
	"fmt"
	"io"
	"sync"
)

// Console is a Device that writes rows to an io.Writer. It exists for
// bench runs and development on machines without the OLED attached.
// Inversion is rendered as a "[!]" prefix since a terminal line has no
// inverse-video state to keep.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	inverted bool
}

// NewConsole creates a console device writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Draw prints both rows on one line.
func (c *Console) Draw(primary, secondary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := ""
	if c.inverted {
		prefix = "[!] "
	}
	_, err := fmt.Fprintf(c.w, "%s%s | %s\n", prefix, primary, secondary)
	return err
}

// SetInverted records the inversion state for subsequent draws.
func (c *Console) SetInverted(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inverted = on
	return nil
}

// Close is a no-op.
func (c *Console) Close() error {
	return nil
}
