// Package led drives the recording-indicator LED with hardware
// abstraction. The real implementation uses the Linux GPIO character
// device. The fake implementation allows testing without hardware.
//
// The LED is a physical privacy affordance: it is lit only while evidence
// capture is active, so anyone in the room can see when frames are being
// saved. It stays dark whenever a person is visible.
package led

// Driver sets the LED state.
type Driver interface {
	// Set turns the LED on or off.
	Set(on bool) error

	// Close turns the LED off and releases GPIO resources.
	Close() error
}

// DefaultPin is the recording-indicator pin (BCM numbering).
const DefaultPin = 17

// NopDriver discards all LED writes. It stands in when no LED is wired.
type NopDriver struct{}

// Set does nothing.
func (NopDriver) Set(on bool) error { return nil }

// Close does nothing.
func (NopDriver) Close() error { return nil }
