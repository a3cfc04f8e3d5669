//go:build rp2040

package pio

import (
	"errors"

	"astrostepper/core"
)

// maxPin is the highest RP2040 user GPIO
const maxPin = 29

var (
	errPinRange = errors.New("pin out of range")

	// RP2040 has 2 PIO blocks with 4 state machines each
	smAlloc smAllocator
)

// Backends returns the backend factory for a configured backend name.
// "gpio" returns nil so the caller falls back to the GPIODriver backend.
func Backends(name string) core.BackendFactory {
	switch name {
	case "pio":
		return createPIOBackend
	case "sio":
		return func() core.StepperBackend { return NewSIOStepperBackend() }
	default:
		return nil
	}
}

// createPIOBackend creates a PIO-based stepper backend
// Returns nil if no PIO resources available
func createPIOBackend() core.StepperBackend {
	pioNum, smNum, ok := smAlloc.allocate()
	if !ok {
		return nil
	}

	return NewPIOStepperBackend(pioNum, smNum)
}

// AllocationStatus returns PIO allocation status for M122 style diagnostics
func AllocationStatus() [2][4]bool {
	return smAlloc.status()
}
