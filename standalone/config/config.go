package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"astrostepper/core"
)

// MotorConfig describes one motor in the machine file.
// Motors are assigned registry slots, and console axis letters A..D, in file order.
type MotorConfig struct {
	Name             string  `json:"name" yaml:"name"`
	StepPin          string  `json:"step_pin" yaml:"step_pin"`                     // "gpioN"
	DirPin           string  `json:"dir_pin" yaml:"dir_pin"`                       // "gpioN"
	EnablePin        string  `json:"enable_pin,omitempty" yaml:"enable_pin"`       // optional
	EnableActiveHigh bool    `json:"enable_active_high" yaml:"enable_active_high"` // most drivers enable low
	InvertStep       bool    `json:"invert_step" yaml:"invert_step"`
	InvertDir        bool    `json:"invert_dir" yaml:"invert_dir"`
	MaxSpeed         float64 `json:"max_speed" yaml:"max_speed"`       // steps/s
	Acceleration     float64 `json:"acceleration" yaml:"acceleration"` // steps/s^2
	Backend          string  `json:"backend,omitempty" yaml:"backend"` // "gpio", "sio" or "pio"
}

// LevelConfig describes the optional ADXL345 tilt sensor on the mount
type LevelConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Address uint16 `json:"address" yaml:"address"`
}

// MachineConfig is the complete machine configuration
type MachineConfig struct {
	Name           string        `json:"name" yaml:"name"`
	TickFreq       uint32        `json:"tick_freq" yaml:"tick_freq"`             // Hz
	ReportInterval uint32        `json:"report_interval" yaml:"report_interval"` // ms
	PlannerMaxDT   uint32        `json:"planner_max_dt" yaml:"planner_max_dt"`   // us
	Debug          bool          `json:"debug" yaml:"debug"`
	Motors         []MotorConfig `json:"motors" yaml:"motors"`
	Level          LevelConfig   `json:"level" yaml:"level"`
}

const (
	DefaultName         = "astrostepper"
	DefaultBackend      = "gpio"
	DefaultLevelAddress = 0x53 // ADXL345 with SDO low
)

var ErrNoMotors = errors.New("no motors configured")

// LoadConfig parses a JSON configuration and returns a validated MachineConfig
func LoadConfig(jsonData []byte) (*MachineConfig, error) {
	var config MachineConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	return finish(&config)
}

func finish(config *MachineConfig) (*MachineConfig, error) {
	applyDefaults(config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Prepare fills in missing values and validates the result. Configs built
// in code go through this before use.
func (c *MachineConfig) Prepare() error {
	applyDefaults(c)
	return c.Validate()
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *MachineConfig) {
	if config.Name == "" {
		config.Name = DefaultName
	}
	if config.TickFreq == 0 {
		config.TickFreq = core.TickFreq
	}
	if config.ReportInterval == 0 {
		config.ReportInterval = core.ReportInterval
	}
	if config.PlannerMaxDT == 0 {
		config.PlannerMaxDT = core.PlannerMaxDT
	}
	if config.Level.Address == 0 {
		config.Level.Address = DefaultLevelAddress
	}

	for i := range config.Motors {
		motor := &config.Motors[i]
		if motor.MaxSpeed == 0 {
			motor.MaxSpeed = core.DefaultMaxSpeed
		}
		if motor.Acceleration == 0 {
			motor.Acceleration = core.DefaultAcceleration
		}
		if motor.Backend == "" {
			motor.Backend = DefaultBackend
		}
	}
}

// Validate checks pin names, motor count and backend names
func (c *MachineConfig) Validate() error {
	if len(c.Motors) == 0 {
		return ErrNoMotors
	}
	if len(c.Motors) > core.MaxMotors {
		return fmt.Errorf("%d motors configured: %w", len(c.Motors), core.ErrTooManyMotors)
	}
	if c.TickFreq < 1000 {
		return fmt.Errorf("tick_freq %d below 1000 Hz", c.TickFreq)
	}

	used := make(map[core.GPIOPin]string)
	enables := make(map[string]bool) // pin name -> active high
	for i, motor := range c.Motors {
		coreCfg, err := motor.ToCore()
		if err != nil {
			return fmt.Errorf("motor %d (%s): %w", i, motor.Name, err)
		}
		switch motor.Backend {
		case "gpio", "sio", "pio":
		default:
			return fmt.Errorf("motor %d (%s): unknown backend %q", i, motor.Name, motor.Backend)
		}

		// Enable pins may be shared between drivers with the same polarity;
		// step and dir may not be shared
		for _, pin := range []core.GPIOPin{coreCfg.StepPin, coreCfg.DirPin} {
			if owner, ok := used[pin]; ok {
				return fmt.Errorf("motor %d (%s): pin gpio%d already used by %s", i, motor.Name, pin, owner)
			}
			used[pin] = motor.Name
		}
		if coreCfg.EnablePin != core.NoPin {
			name := strings.ToLower(motor.EnablePin)
			if high, ok := enables[name]; ok && high != motor.EnableActiveHigh {
				return fmt.Errorf("motor %d (%s): enable pin %s: %w", i, motor.Name, motor.EnablePin, core.ErrEnablePolarity)
			}
			enables[name] = motor.EnableActiveHigh
		}
	}
	return nil
}

// ToCore resolves pin names into a core motor configuration
func (m MotorConfig) ToCore() (core.MotorConfig, error) {
	step, err := LookupPin(m.StepPin)
	if err != nil {
		return core.MotorConfig{}, fmt.Errorf("step pin: %w", err)
	}
	if step == core.NoPin {
		return core.MotorConfig{}, errors.New("step pin required")
	}
	dir, err := LookupPin(m.DirPin)
	if err != nil {
		return core.MotorConfig{}, fmt.Errorf("dir pin: %w", err)
	}
	if dir == core.NoPin {
		return core.MotorConfig{}, errors.New("dir pin required")
	}
	enable, err := LookupPin(m.EnablePin)
	if err != nil {
		return core.MotorConfig{}, fmt.Errorf("enable pin: %w", err)
	}

	return core.MotorConfig{
		StepPin:         step,
		DirPin:          dir,
		EnablePin:       enable,
		EnableActiveLow: !m.EnableActiveHigh,
		InvertStep:      m.InvertStep,
		InvertDir:       m.InvertDir,
		MaxSpeed:        m.MaxSpeed,
		Acceleration:    m.Acceleration,
	}, nil
}

// SystemConfig returns the core timing settings of the machine
func (c *MachineConfig) SystemConfig() core.SystemConfig {
	return core.SystemConfig{
		TickFreq:       c.TickFreq,
		MaxDT:          c.PlannerMaxDT,
		ReportInterval: c.ReportInterval,
	}
}

// DefaultTelescopeConfig returns a two-axis equatorial mount layout: RA on a
// PIO state machine for the tracking rate, DEC on SIO and the tilt sensor enabled
func DefaultTelescopeConfig() *MachineConfig {
	config := &MachineConfig{
		Name: "astrostepper-eq",
		Motors: []MotorConfig{
			{
				Name:         "ra",
				StepPin:      "gpio2",
				DirPin:       "gpio3",
				EnablePin:    "gpio8",
				MaxSpeed:     3000.0,
				Acceleration: 1500.0,
				Backend:      "pio",
			},
			{
				Name:         "dec",
				StepPin:      "gpio4",
				DirPin:       "gpio5",
				EnablePin:    "gpio9",
				MaxSpeed:     3000.0,
				Acceleration: 1500.0,
				Backend:      "sio",
			},
		},
		Level: LevelConfig{Enabled: true},
	}
	applyDefaults(config)
	return config
}
