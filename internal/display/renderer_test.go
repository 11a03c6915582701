package display

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/caklutfi/tempmon/internal/sensor"
)

// fakeDevice records draw calls for assertions.
type fakeDevice struct {
	primary   string
	secondary string
	inverted  bool
	draws     int
	drawErr   error
}

func (f *fakeDevice) Draw(primary, secondary string) error {
	f.draws++
	if f.drawErr != nil {
		return f.drawErr
	}
	f.primary = primary
	f.secondary = secondary
	return nil
}

func (f *fakeDevice) SetInverted(on bool) error {
	f.inverted = on
	return nil
}

func (f *fakeDevice) Close() error { return nil }

func validReading(celsius float64) sensor.Reading {
	return sensor.Reading{
		Celsius: celsius,
		Valid:   true,
		At:      time.Date(2026, 2, 14, 15, 4, 5, 0, time.UTC),
		HasTime: true,
	}
}

func TestRender_Layout(t *testing.T) {
	tests := []struct {
		name          string
		current       sensor.Reading
		lastGood      sensor.Reading
		publishFailed bool
		wantPrimary   string
		wantSecondary string
	}{
		{
			name:          "steady state",
			current:       validReading(23.45),
			lastGood:      validReading(23.40),
			wantPrimary:   "23.45C",
			wantSecondary: "23.40C @ 15:04:05",
		},
		{
			name:          "publish failing",
			current:       validReading(23.45),
			lastGood:      validReading(23.40),
			publishFailed: true,
			wantPrimary:   "23.45C",
			wantSecondary: "23.40C @ 15:04:05 X",
		},
		{
			name:          "no publish ever succeeded",
			current:       validReading(19.00),
			lastGood:      sensor.Reading{},
			wantPrimary:   "19.00C",
			wantSecondary: "--.--C @ --:--:--",
		},
		{
			name:          "invalid current reading",
			current:       sensor.Reading{Celsius: sensor.DisconnectedC, At: validReading(0).At, HasTime: true},
			lastGood:      validReading(21.10),
			wantPrimary:   "--.--C",
			wantSecondary: "21.10C @ 15:04:05",
		},
		{
			name: "no wall clock yet",
			current: sensor.Reading{
				Celsius: 20.5,
				Valid:   true,
			},
			lastGood: sensor.Reading{
				Celsius: 20.0,
				Valid:   true,
			},
			wantPrimary:   "20.50C",
			wantSecondary: "20.00C @ --:--:--",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{}
			r := NewRenderer(dev, slog.New(slog.NewTextHandler(io.Discard, nil)))

			r.Render(tt.current, tt.lastGood, tt.publishFailed)

			if dev.primary != tt.wantPrimary {
				t.Errorf("primary = %q, want %q", dev.primary, tt.wantPrimary)
			}
			if dev.secondary != tt.wantSecondary {
				t.Errorf("secondary = %q, want %q", dev.secondary, tt.wantSecondary)
			}
		})
	}
}

func TestRender_DeviceErrorDoesNotPanic(t *testing.T) {
	dev := &fakeDevice{drawErr: errors.New("i2c timeout")}
	r := NewRenderer(dev, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Must log and carry on.
	r.Render(validReading(23.45), validReading(23.40), false)
	if dev.draws != 1 {
		t.Errorf("draws = %d, want 1", dev.draws)
	}
}

func TestSetInverted(t *testing.T) {
	dev := &fakeDevice{}
	r := NewRenderer(dev, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r.SetInverted(true)
	if !dev.inverted {
		t.Error("device not inverted after SetInverted(true)")
	}
	r.SetInverted(false)
	if dev.inverted {
		t.Error("device still inverted after SetInverted(false)")
	}
}

func TestMessage(t *testing.T) {
	dev := &fakeDevice{}
	r := NewRenderer(dev, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r.Message("provisioning...")
	if dev.primary != "provisioning..." || dev.secondary != "" {
		t.Errorf("Message drew %q / %q", dev.primary, dev.secondary)
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	if err := c.Draw("23.45C", "23.40C @ 15:04:05"); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if got := buf.String(); !strings.Contains(got, "23.45C | 23.40C @ 15:04:05") {
		t.Errorf("console output = %q", got)
	}

	buf.Reset()
	c.SetInverted(true)
	c.Draw("a", "b")
	if got := buf.String(); !strings.HasPrefix(got, "[!] ") {
		t.Errorf("inverted console output = %q, want [!] prefix", got)
	}
}
