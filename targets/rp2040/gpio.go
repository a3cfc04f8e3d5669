//go:build rp2040

package main

import (
	"errors"

	"astrostepper/core"
	"machine"
)

const numGPIO = 30 // GPIO0-GPIO29

var errPinRange = errors.New("pin out of range")

// RPGPIODriver implements the GPIODriver interface for RP2040.
// Pins live in a fixed table so SetPin never allocates in the tick interrupt.
type RPGPIODriver struct {
	pins       [numGPIO]machine.Pin
	configured [numGPIO]bool
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{}
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if pin >= numGPIO {
		return errPinRange
	}
	if d.configured[pin] {
		// Already configured, this is OK
		return nil
	}

	// RP2040 pins map directly to GPIO numbers
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	d.pins[pin] = machinePin
	d.configured[pin] = true
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	if pin >= numGPIO || !d.configured[pin] {
		return errPinRange
	}
	d.pins[pin].Set(value)
	return nil
}
