package sensor

import "sync"

// Fake is a Reader for tests and bench runs without hardware. Set the
// next value (or a sequence) and every Read consumes from it; when the
// sequence is exhausted the last value repeats.
type Fake struct {
	mu     sync.Mutex
	clock  TimeSource
	values []float64
	pos    int
}

// NewFake returns a Fake that reports the given temperatures in order.
func NewFake(clock TimeSource, values ...float64) *Fake {
	if len(values) == 0 {
		values = []float64{20.0}
	}
	return &Fake{clock: clock, values: values}
}

// Set replaces the remaining value sequence.
func (f *Fake) Set(values ...float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = values
	f.pos = 0
}

// Read returns the next queued value, classifying sentinels the same
// way the hardware reader does.
func (f *Fake) Read() Reading {
	f.mu.Lock()
	defer f.mu.Unlock()

	at, hasTime := f.clock()
	celsius := f.values[f.pos]
	if f.pos < len(f.values)-1 {
		f.pos++
	}
	return Reading{Celsius: celsius, Valid: classify(celsius), At: at, HasTime: hasTime}
}
