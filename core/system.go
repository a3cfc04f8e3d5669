package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoGPIO       = errors.New("GPIO driver not configured")
	ErrNoClock      = errors.New("clock not configured")
	ErrNoTickSource = errors.New("tick source not configured")
)

// SystemConfig wires the platform collaborators into a System
type SystemConfig struct {
	GPIO  GPIODriver
	Clock Clock
	Ticks TickSource

	// Backends creates step backends; nil uses GPIOBackend over GPIO
	Backends BackendFactory

	TickFreq       uint32 // Hz, 0 = TickFreq
	MaxDT          uint32 // planner dt clamp in microseconds, 0 = PlannerMaxDT
	ReportInterval uint32 // pulse-rate window in milliseconds, 0 = ReportInterval
}

// System owns the motor registry and the tick source shared by all motors.
// The tick source is started when the first motor registers and is never
// stopped.
type System struct {
	cfg      SystemConfig
	registry Registry
	enables  []*enableLine
	started  bool
}

// NewSystem validates the collaborators and applies defaults
func NewSystem(cfg SystemConfig) (*System, error) {
	if cfg.GPIO == nil {
		return nil, ErrNoGPIO
	}
	if cfg.Clock == nil {
		return nil, ErrNoClock
	}
	if cfg.Ticks == nil {
		return nil, ErrNoTickSource
	}
	if cfg.TickFreq == 0 {
		cfg.TickFreq = TickFreq
	}
	if cfg.MaxDT == 0 {
		cfg.MaxDT = PlannerMaxDT
	}
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = ReportInterval
	}
	if cfg.Backends == nil {
		gpio := cfg.GPIO
		cfg.Backends = func() StepperBackend { return NewGPIOBackend(gpio) }
	}
	return &System{cfg: cfg}, nil
}

// NewMotor binds pins, leaves the driver disabled and registers the motor
// with the tick dispatcher
func (s *System) NewMotor(cfg MotorConfig) (*Motor, error) {
	if s.registry.Len() >= MaxMotors {
		return nil, ErrTooManyMotors
	}

	backend := s.cfg.Backends()
	if backend == nil {
		return nil, errors.New("no step backend available")
	}
	if err := backend.Init(cfg.StepPin, cfg.DirPin, cfg.InvertStep, cfg.InvertDir); err != nil {
		return nil, fmt.Errorf("init %s backend on step pin %d: %w", backend.GetName(), cfg.StepPin, err)
	}

	m := &Motor{
		stepPin:        cfg.StepPin,
		dirPin:         cfg.DirPin,
		backend:        backend,
		clock:          s.cfg.Clock,
		tickFreq:       float64(s.cfg.TickFreq),
		maxDT:          s.cfg.MaxDT,
		reportInterval: s.cfg.ReportInterval,
		maxSpeed:       DefaultMaxSpeed,
		acceleration:   DefaultAcceleration,
	}
	if cfg.MaxSpeed != 0 {
		m.SetMaxSpeed(cfg.MaxSpeed)
	}
	if cfg.Acceleration != 0 {
		m.SetAcceleration(cfg.Acceleration)
	}
	m.direction.Store(true)

	var newLine bool
	if cfg.EnablePin != NoPin {
		m.enable = s.findEnable(cfg.EnablePin)
		if m.enable != nil {
			if m.enable.activeLow != cfg.EnableActiveLow {
				return nil, fmt.Errorf("enable pin %d: %w", cfg.EnablePin, ErrEnablePolarity)
			}
		} else {
			if err := s.cfg.GPIO.ConfigureOutput(cfg.EnablePin); err != nil {
				return nil, fmt.Errorf("configure enable pin %d: %w", cfg.EnablePin, err)
			}
			// Driver starts disabled
			if err := s.cfg.GPIO.SetPin(cfg.EnablePin, cfg.EnableActiveLow); err != nil {
				return nil, fmt.Errorf("disable driver on pin %d: %w", cfg.EnablePin, err)
			}
			m.enable = &enableLine{pin: cfg.EnablePin, activeLow: cfg.EnableActiveLow, gpio: s.cfg.GPIO}
			newLine = true
		}
	}

	m.lastPlannerMicros = s.cfg.Clock.Micros()
	m.lastReportMillis = s.cfg.Clock.Millis()

	if !s.started {
		if err := s.cfg.Ticks.Start(s.cfg.TickFreq, s.registry.Dispatch); err != nil {
			return nil, fmt.Errorf("start tick source: %w", err)
		}
		s.started = true
		DebugPrintln("[DDS] tick source started at " + utoa(s.cfg.TickFreq) + " Hz")
	}

	id, err := s.registry.Add(m)
	if err != nil {
		return nil, err
	}
	m.id = id
	if newLine {
		s.enables = append(s.enables, m.enable)
	}

	DebugPrintln("[DDS] motor " + itoa(int(id)) + " registered on " + backend.GetName() +
		" step=" + utoa(uint32(cfg.StepPin)) + " dir=" + utoa(uint32(cfg.DirPin)))
	return m, nil
}

// findEnable returns the registered line driving pin, or nil
func (s *System) findEnable(pin GPIOPin) *enableLine {
	for _, line := range s.enables {
		if line.pin == pin {
			return line
		}
	}
	return nil
}

// Motor returns the motor in slot id, or nil
func (s *System) Motor(id uint8) *Motor {
	return s.registry.Get(id)
}

// MotorCount returns the number of registered motors
func (s *System) MotorCount() int {
	return s.registry.Len()
}

// Registry exposes the dispatcher's motor set
func (s *System) Registry() *Registry {
	return &s.registry
}

// TickFreq returns the shared tick rate in Hz
func (s *System) TickFreq() uint32 {
	return s.cfg.TickFreq
}

// Clock returns the application-rate time source
func (s *System) Clock() Clock {
	return s.cfg.Clock
}

// StopAll stops every registered motor
func (s *System) StopAll() {
	for i := 0; i < s.registry.Len(); i++ {
		s.registry.Get(uint8(i)).Stop()
	}
}
