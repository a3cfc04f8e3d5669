package core

import (
	"math"
	"sync/atomic"
)

const (
	DefaultMaxSpeed     = 1000.0 // steps/s
	DefaultAcceleration = 500.0  // steps/s^2
)

// MotorConfig describes the pins and limits of one stepper
type MotorConfig struct {
	StepPin         GPIOPin
	DirPin          GPIOPin
	EnablePin       GPIOPin // NoPin when the driver has no enable input
	EnableActiveLow bool
	InvertStep      bool
	InvertDir       bool
	MaxSpeed        float64 // steps/s, 0 = DefaultMaxSpeed
	Acceleration    float64 // steps/s^2, 0 = DefaultAcceleration
}

// Motor is one stepper serviced by the shared tick.
//
// Fields shared with the tick interrupt are atomic. Writers per field:
//
//	currentPos      interrupt (±1 per pulse), application (SetCurrentPosition)
//	running         application
//	direction       application
//	phaseIncrement  application
//	phase           interrupt, reset by application on MoveTo
//	errorShaper     interrupt, reset by application on MoveTo
//	pulseCount      interrupt, read and reset by application
//
// All other fields belong to the application context. A position read may
// reflect any point within the current tick's update.
type Motor struct {
	id uint8

	// Pins, fixed after construction
	stepPin GPIOPin
	dirPin  GPIOPin
	enable  *enableLine // nil without an enable pin
	backend StepperBackend

	clock          Clock
	tickFreq       float64
	maxDT          uint32
	reportInterval uint32

	// Shared with the tick interrupt
	currentPos     atomic.Int64
	running        atomic.Bool
	direction      atomic.Bool // true = increasing position
	phase          atomicFloat // [0,1) in steady state
	phaseIncrement atomicFloat // steps per tick
	errorShaper    atomicFloat
	pulseCount     atomic.Uint32

	// Planner state
	targetPos         int64
	maxSpeed          float64
	acceleration      float64
	currentSpeed      float64 // steps/s, sign is direction
	lastPlannerMicros uint32

	enabled bool

	lastReportMillis uint32
	pulseRate        uint32
}

// ID returns the registry slot of the motor
func (m *Motor) ID() uint8 {
	return m.id
}

// MoveTo sets an absolute target. The velocity ramp restarts from rest.
func (m *Motor) MoveTo(absolute int64) {
	m.targetPos = absolute
	m.currentSpeed = 0
	m.phaseIncrement.Store(0)
	m.phase.Store(0)
	m.errorShaper.Store(0)
	m.lastPlannerMicros = m.clock.Micros()

	if m.currentPos.Load() != m.targetPos {
		m.enableDriver()
		m.running.Store(true)
	} else {
		m.running.Store(false)
	}
	RecordEvent(EvtMoveTo, m.id, m.clock.Millis(), m.targetPos)
}

// Move sets a target relative to the current position
func (m *Motor) Move(relative int64) {
	m.MoveTo(m.currentPos.Load() + relative)
}

// SetSpeed runs the motor open-loop at v steps/s (sign is direction),
// clamped to the max speed. Zero stops the motor.
func (m *Motor) SetSpeed(v float64) {
	m.currentSpeed = clamp(v, -m.maxSpeed, m.maxSpeed)
	if m.currentSpeed == 0 {
		m.Stop()
		return
	}

	m.enableDriver()
	m.publish()
	m.running.Store(true)
	RecordEvent(EvtSetSpeed, m.id, m.clock.Millis(), int64(m.currentSpeed))
}

// RunSpeed keeps continuous-speed mode alive. The DDS engine keeps stepping
// at the last published rate; only the driver and diagnostics are serviced.
func (m *Motor) RunSpeed() bool {
	if !m.running.Load() {
		return false
	}
	m.enableDriver()
	m.report()
	return true
}

// Stop cancels pending motion and disables the driver
func (m *Motor) Stop() {
	wasRunning := m.running.Load()
	m.running.Store(false)
	m.targetPos = m.currentPos.Load()
	m.currentSpeed = 0
	m.phaseIncrement.Store(0)
	m.backend.Stop()
	m.disableDriver()
	if wasRunning {
		RecordEvent(EvtStop, m.id, m.clock.Millis(), m.targetPos)
	}
}

// SetMaxSpeed sets the speed limit in steps/s; the sign is ignored
func (m *Motor) SetMaxSpeed(v float64) {
	m.maxSpeed = math.Abs(v)
}

// SetAcceleration sets the ramp rate in steps/s^2; the sign is ignored
func (m *Motor) SetAcceleration(a float64) {
	m.acceleration = math.Abs(a)
}

// MaxSpeed returns the speed limit in steps/s
func (m *Motor) MaxSpeed() float64 {
	return m.maxSpeed
}

// Acceleration returns the ramp rate in steps/s^2
func (m *Motor) Acceleration() float64 {
	return m.acceleration
}

// Speed returns the current planned speed in steps/s
func (m *Motor) Speed() float64 {
	return m.currentSpeed
}

func (m *Motor) DistanceToGo() int64 {
	return m.targetPos - m.currentPos.Load()
}

func (m *Motor) TargetPosition() int64 {
	return m.targetPos
}

func (m *Motor) CurrentPosition() int64 {
	return m.currentPos.Load()
}

// SetCurrentPosition re-zeroes the position counter. Target and running
// state are left alone, so this is not a way to redirect a move.
func (m *Motor) SetCurrentPosition(p int64) {
	m.currentPos.Store(p)
}

func (m *Motor) IsRunning() bool {
	return m.running.Load()
}

// Direction returns the direction published to the DDS engine
func (m *Motor) Direction() bool {
	return m.direction.Load()
}

// PhaseIncrement returns the fraction of a step added per tick
func (m *Motor) PhaseIncrement() float64 {
	return m.phaseIncrement.Load()
}

// PulseRate returns the pulses/s measured over the last reporting window
func (m *Motor) PulseRate() uint32 {
	return m.pulseRate
}

// DriverEnabled reports whether the enable output is asserted
func (m *Motor) DriverEnabled() bool {
	return m.enabled
}

// BackendName returns the step backend in use
func (m *Motor) BackendName() string {
	return m.backend.GetName()
}

// publish hands the current speed to the DDS engine. Direction is written
// before the increment so the next pulse never goes the old way at the new rate.
func (m *Motor) publish() {
	m.direction.Store(m.currentSpeed > 0)
	m.phaseIncrement.Store(math.Abs(m.currentSpeed) / m.tickFreq)
}

func (m *Motor) enableDriver() {
	if m.enable == nil || m.enabled {
		return
	}
	m.enabled = true
	m.enable.acquire()
}

func (m *Motor) disableDriver() {
	if m.enable == nil || !m.enabled {
		return
	}
	m.enabled = false
	m.enable.release()
}

// report closes the pulse counting window once it has lasted reportInterval
func (m *Motor) report() {
	now := m.clock.Millis()
	elapsed := now - m.lastReportMillis
	if elapsed == 0 || elapsed < m.reportInterval {
		return
	}
	count := m.pulseCount.Swap(0)
	m.pulseRate = uint32(uint64(count) * 1000 / uint64(elapsed))
	m.lastReportMillis = now

	if debugEnabled {
		DebugAsync("Pulses/sec (motor " + itoa(int(m.id)) + "): " + utoa(m.pulseRate))
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
