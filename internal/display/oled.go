package display

import (
	"fmt"
	"image"
	"log/slog"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

// Row baselines in the 128x64 framebuffer. The primary row sits high
// with headroom below; the secondary row hugs the bottom edge.
const (
	primaryBaseline   = 28
	secondaryBaseline = 60
)

// OLED drives an SSD1306 128x64 display over I²C via periph.io.
// Inversion uses the panel's hardware inverse-video command, so a
// blink toggle costs one command byte, not a framebuffer rewrite.
type OLED struct {
	dev *ssd1306.Dev
	bus i2c.BusCloser
}

// OpenOLED initializes the periph host, opens the named I²C bus
// (empty selects the first available), and probes the SSD1306.
func OpenOLED(busName string, logger *slog.Logger) (*OLED, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("probe ssd1306: %w", err)
	}

	logger.Info("display initialized", "device", dev.String())
	return &OLED{dev: dev, bus: bus}, nil
}

// Draw renders both rows into a fresh 1-bit framebuffer and pushes it
// to the panel in one transfer.
func (o *OLED) Draw(primary, secondary string) error {
	img := image1bit.NewVerticalLSB(o.dev.Bounds())

	drawString(img, primary, primaryBaseline)
	drawString(img, secondary, secondaryBaseline)

	if err := o.dev.Draw(o.dev.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("ssd1306 draw: %w", err)
	}
	return nil
}

// SetInverted toggles the panel's inverse-video mode.
func (o *OLED) SetInverted(on bool) error {
	return o.dev.Invert(on)
}

// Close releases the I²C bus. The panel keeps its last frame.
func (o *OLED) Close() error {
	return o.bus.Close()
}

func drawString(img *image1bit.VerticalLSB, text string, baseline int) {
	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(0, baseline),
	}
	d.DrawString(text)
}
