package core

// GPIOBackend emits step pulses by writing pins through a GPIODriver.
// It is the default backend when the platform does not provide one.
type GPIOBackend struct {
	gpio       GPIODriver
	stepPin    GPIOPin
	dirPin     GPIOPin
	invertStep bool
	invertDir  bool
	direction  bool
}

// NewGPIOBackend creates a backend writing through the given driver
func NewGPIOBackend(gpio GPIODriver) *GPIOBackend {
	return &GPIOBackend{gpio: gpio}
}

// Init configures both pins as outputs and drives them to idle levels
func (b *GPIOBackend) Init(stepPin, dirPin GPIOPin, invertStep, invertDir bool) error {
	b.stepPin = stepPin
	b.dirPin = dirPin
	b.invertStep = invertStep
	b.invertDir = invertDir

	if err := b.gpio.ConfigureOutput(stepPin); err != nil {
		return err
	}
	if err := b.gpio.ConfigureOutput(dirPin); err != nil {
		return err
	}

	// Step idle low (or high when inverted), direction forward
	if err := b.gpio.SetPin(stepPin, invertStep); err != nil {
		return err
	}
	b.SetDirection(true)
	return nil
}

// Step pulses the step pin high then low
func (b *GPIOBackend) Step() {
	b.gpio.SetPin(b.stepPin, !b.invertStep)
	b.gpio.SetPin(b.stepPin, b.invertStep)
}

// SetDirection sets the direction output
func (b *GPIOBackend) SetDirection(dir bool) {
	b.direction = dir
	b.gpio.SetPin(b.dirPin, dir != b.invertDir)
}

// Stop leaves the step pin at its idle level
func (b *GPIOBackend) Stop() {
	b.gpio.SetPin(b.stepPin, b.invertStep)
}

// GetName returns the backend name
func (b *GPIOBackend) GetName() string {
	return "GPIO"
}
