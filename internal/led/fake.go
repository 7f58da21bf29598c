package led

// FakeDriver is a test double that records every LED state change.
type FakeDriver struct {
	// States holds each value passed to Set, in order.
	States []bool

	// SetError, if set, will be returned by Set()
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeDriver creates an empty FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// Set records the requested state.
func (f *FakeDriver) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.States = append(f.States, on)
	return nil
}

// On reports the most recently set state. A driver that was never set is
// off.
func (f *FakeDriver) On() bool {
	if len(f.States) == 0 {
		return false
	}
	return f.States[len(f.States)-1]
}

// Close turns the LED off and marks the driver closed.
func (f *FakeDriver) Close() error {
	f.States = append(f.States, false)
	f.Closed = true
	return nil
}

// Reset clears recorded state.
func (f *FakeDriver) Reset() {
	f.States = nil
	f.Closed = false
}
