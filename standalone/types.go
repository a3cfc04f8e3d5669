package standalone

import (
	"astrostepper/core"
	"astrostepper/standalone/gcode"
)

const (
	FirmwareName    = "AstroStepper"
	FirmwareVersion = "0.3.0"
)

// Platform is the hardware a target hands to the manager
type Platform struct {
	GPIO  core.GPIODriver
	Clock core.Clock
	Ticks core.TickSource

	// Backends selects a step backend by configured name ("gpio", "sio", "pio").
	// Nil, or a nil factory for a name, falls back to core.GPIOBackend.
	Backends func(name string) core.BackendFactory
}

// MotorState is a snapshot of one motor for status displays
type MotorState struct {
	Name     string
	Axis     byte
	Mode     gcode.Mode
	Position int64
	Target   int64
	Speed    float64
	Running  bool
	Rate     uint32
}

// MachineState represents the current machine state
type MachineState struct {
	AbsoluteMode bool // G90 vs G91
	Motors       []MotorState
}
