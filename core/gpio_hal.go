package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// NoPin marks an optional pin that is not wired
const NoPin GPIOPin = 0xFFFFFFFF

// GPIODriver is the abstract digital output interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	// Returns error if pin is invalid
	ConfigureOutput(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	// Called from the tick interrupt for step and direction pins,
	// so implementations must not allocate or block
	SetPin(pin GPIOPin, value bool) error
}
