package sensor

// Offline is a Reader for a monitor whose probe was not found at
// boot. Every read is the disconnected sentinel, so the loop, the
// broker, and the display all see an honestly-failing sensor instead
// of the process refusing to start. Plugging the probe in takes
// effect on the next restart.
type Offline struct {
	clock TimeSource
}

// NewOffline returns an always-invalid Reader.
func NewOffline(clock TimeSource) *Offline {
	return &Offline{clock: clock}
}

// Read returns the disconnected sentinel.
func (o *Offline) Read() Reading {
	at, hasTime := o.clock()
	return Reading{Celsius: DisconnectedC, At: at, HasTime: hasTime}
}
