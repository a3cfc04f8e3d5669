//go:build rp2040

package pio

import (
	"device/arm"
	"device/rp"
	"machine"

	"astrostepper/core"
)

// SIOStepperBackend drives step and direction through the SIO set/clear
// registers, skipping the GPIODriver indirection in the tick interrupt.
// Performance: ~200ns pulse width, no FIFO latency
type SIOStepperBackend struct {
	stepMask   uint32
	dirMask    uint32
	invertStep bool
	invertDir  bool
}

// NewSIOStepperBackend creates a new SIO-based stepper backend
func NewSIOStepperBackend() *SIOStepperBackend {
	return &SIOStepperBackend{}
}

// Init configures both pins as outputs at their idle levels
func (b *SIOStepperBackend) Init(stepPin, dirPin core.GPIOPin, invertStep, invertDir bool) error {
	if stepPin > maxPin || dirPin > maxPin {
		return errPinRange
	}
	b.stepMask = 1 << stepPin
	b.dirMask = 1 << dirPin
	b.invertStep = invertStep
	b.invertDir = invertDir

	machine.Pin(stepPin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	machine.Pin(dirPin).Configure(machine.PinConfig{Mode: machine.PinOutput})

	b.Stop()
	b.SetDirection(true)
	return nil
}

// Step generates a single step pulse
// Pulse width: ~200ns @ 125MHz
func (b *SIOStepperBackend) Step() {
	b.write(b.stepMask, !b.invertStep)

	// Each NOP is ~8ns @ 125MHz
	// Target: 100ns minimum for Trinamic drivers
	// 13 NOPs = ~104ns
	arm.Asm("nop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop")

	b.write(b.stepMask, b.invertStep)
}

// SetDirection sets the direction output
// Ensures dir-to-step setup time (20ns minimum for TMC drivers)
func (b *SIOStepperBackend) SetDirection(dir bool) {
	b.write(b.dirMask, dir != b.invertDir)

	// 3 NOPs = ~24ns @ 125MHz
	arm.Asm("nop\nnop\nnop")
}

// Stop returns the step pin to its idle level
func (b *SIOStepperBackend) Stop() {
	b.write(b.stepMask, b.invertStep)
}

// GetName returns the backend name
func (b *SIOStepperBackend) GetName() string {
	return "SIO"
}

func (b *SIOStepperBackend) write(mask uint32, high bool) {
	if high {
		rp.SIO.GPIO_OUT_SET.Set(mask)
	} else {
		rp.SIO.GPIO_OUT_CLR.Set(mask)
	}
}
