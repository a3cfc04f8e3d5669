package gcode

import (
	"errors"
	"fmt"
	"strconv"

	"astrostepper/core"
)

// Mode is how the console services a motor at application rate
type Mode uint8

const (
	ModeIdle     Mode = iota
	ModePosition      // Run() toward a target
	ModeSpeed         // RunSpeed() at a constant rate
)

func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeSpeed:
		return "speed"
	default:
		return "idle"
	}
}

// Axes maps console axis letters to registry slots
const Axes = "ABCD"

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownAxis    = errors.New("unknown axis")
	ErrNoAxis         = errors.New("no axis given")
)

// Machine is the motor set the interpreter drives
type Machine interface {
	Motor(id uint8) *core.Motor
	MotorCount() int
	TickFreq() uint32
	StopAll()
}

// MCodeHandler executes a target-specific M-code and returns response text
type MCodeHandler func(cmd *Command) (string, error)

// Info identifies the firmware in M115 replies
type Info struct {
	Name    string
	Version string
}

// Interpreter executes commands against the machine
type Interpreter struct {
	machine  Machine
	info     Info
	absolute bool
	modes    [core.MaxMotors]Mode
	handlers map[int]MCodeHandler
}

// NewInterpreter creates an interpreter in absolute mode with every motor idle
func NewInterpreter(machine Machine, info Info) *Interpreter {
	return &Interpreter{
		machine:  machine,
		info:     info,
		absolute: true,
		handlers: make(map[int]MCodeHandler),
	}
}

// RegisterMCode installs a handler for an M-code not built into the interpreter.
// Built-in codes cannot be overridden.
func (interp *Interpreter) RegisterMCode(number int, handler MCodeHandler) {
	interp.handlers[number] = handler
}

// Execute executes a parsed command and returns any response text to send
// before the "ok"
func (interp *Interpreter) Execute(cmd *Command) (string, error) {
	if cmd == nil {
		return "", nil
	}

	switch cmd.Type {
	case 'G':
		return "", interp.executeG(cmd)
	case 'M':
		return interp.executeM(cmd)
	case 0:
		return "", nil // comment
	}

	return "", fmt.Errorf("%w type %c", ErrUnknownCommand, cmd.Type)
}

// executeG handles G-codes
func (interp *Interpreter) executeG(cmd *Command) error {
	switch cmd.Number {
	case 0, 1: // G0/G1 - Move
		return interp.doMove(cmd)
	case 90: // G90 - Absolute targets
		interp.absolute = true
	case 91: // G91 - Relative targets
		interp.absolute = false
	case 92: // G92 - Set position
		return interp.eachAxis(cmd, func(m *core.Motor) {
			m.SetCurrentPosition(cmd.GetSteps(Axes[m.ID()]))
		})
	default:
		return unknown(cmd)
	}

	return nil
}

// executeM handles M-codes
func (interp *Interpreter) executeM(cmd *Command) (string, error) {
	switch cmd.Number {
	case 18, 84: // M18/M84 - Stop and disable
		if !interp.hasAxis(cmd) {
			interp.StopAll()
			return "", nil
		}
		return "", interp.eachAxis(cmd, func(m *core.Motor) {
			m.Stop()
			interp.modes[m.ID()] = ModeIdle
		})
	case 111: // M111 - Debug output
		core.SetDebugEnabled(cmd.GetParameter('S', 1) != 0)
		return "", nil
	case 112, 410: // M112/M410 - Stop everything
		interp.StopAll()
		return "", nil
	case 114: // M114 - Report positions
		return interp.positions(), nil
	case 115: // M115 - Firmware info
		return "FIRMWARE_NAME:" + interp.info.Name +
			" FIRMWARE_VERSION:" + interp.info.Version +
			" MOTORS:" + strconv.Itoa(interp.machine.MotorCount()) +
			" TICK_FREQ:" + strconv.FormatUint(uint64(interp.machine.TickFreq()), 10), nil
	case 122: // M122 - Status, E1 adds the motion event log
		if cmd.GetParameter('E', 0) != 0 {
			core.DumpEvents()
		}
		return interp.status(), nil
	case 201: // M201 - Acceleration
		return "", interp.eachAxis(cmd, func(m *core.Motor) {
			m.SetAcceleration(cmd.Parameters[Axes[m.ID()]])
		})
	case 203: // M203 - Max speed
		return "", interp.eachAxis(cmd, func(m *core.Motor) {
			m.SetMaxSpeed(cmd.Parameters[Axes[m.ID()]])
		})
	case 700: // M700 - Continuous speed
		return "", interp.eachAxis(cmd, func(m *core.Motor) {
			m.SetSpeed(cmd.Parameters[Axes[m.ID()]])
			if m.IsRunning() {
				interp.modes[m.ID()] = ModeSpeed
			} else {
				interp.modes[m.ID()] = ModeIdle
			}
		})
	}

	if handler, ok := interp.handlers[cmd.Number]; ok {
		return handler(cmd)
	}
	return "", unknown(cmd)
}

// doMove starts a position move on every named axis (G0/G1)
func (interp *Interpreter) doMove(cmd *Command) error {
	if !interp.hasAxis(cmd) {
		return ErrNoAxis
	}
	return interp.eachAxis(cmd, func(m *core.Motor) {
		steps := cmd.GetSteps(Axes[m.ID()])
		if interp.absolute {
			m.MoveTo(steps)
		} else {
			m.Move(steps)
		}
		if m.IsRunning() {
			interp.modes[m.ID()] = ModePosition
		} else {
			interp.modes[m.ID()] = ModeIdle
		}
	})
}

// eachAxis checks every axis letter in the command, then applies fn to the
// named motors in slot order. Nothing is applied if any letter is unknown.
func (interp *Interpreter) eachAxis(cmd *Command, fn func(m *core.Motor)) error {
	for letter := range cmd.Parameters {
		id := axisIndex(letter)
		if id < 0 {
			continue // not an axis parameter
		}
		if id >= interp.machine.MotorCount() {
			return fmt.Errorf("%w %c", ErrUnknownAxis, letter)
		}
	}

	for id := 0; id < interp.machine.MotorCount(); id++ {
		if cmd.HasParameter(Axes[id]) {
			fn(interp.machine.Motor(uint8(id)))
		}
	}
	return nil
}

func (interp *Interpreter) hasAxis(cmd *Command) bool {
	for i := 0; i < len(Axes); i++ {
		if cmd.HasParameter(Axes[i]) {
			return true
		}
	}
	return false
}

// StopAll stops every motor and marks them idle
func (interp *Interpreter) StopAll() {
	interp.machine.StopAll()
	for i := range interp.modes {
		interp.modes[i] = ModeIdle
	}
}

// positions formats "A:<pos> B:<pos> ..."
func (interp *Interpreter) positions() string {
	out := make([]byte, 0, 64)
	for id := 0; id < interp.machine.MotorCount(); id++ {
		if id > 0 {
			out = append(out, ' ')
		}
		out = append(out, Axes[id], ':')
		out = strconv.AppendInt(out, interp.machine.Motor(uint8(id)).CurrentPosition(), 10)
	}
	return string(out)
}

// status formats one line per motor
func (interp *Interpreter) status() string {
	out := make([]byte, 0, 128)
	for id := 0; id < interp.machine.MotorCount(); id++ {
		m := interp.machine.Motor(uint8(id))
		if id > 0 {
			out = append(out, '\n')
		}
		out = append(out, Axes[id], ':')
		out = append(out, " running="...)
		out = strconv.AppendBool(out, m.IsRunning())
		out = append(out, " mode="...)
		out = append(out, interp.modes[id].String()...)
		out = append(out, " pos="...)
		out = strconv.AppendInt(out, m.CurrentPosition(), 10)
		out = append(out, " togo="...)
		out = strconv.AppendInt(out, m.DistanceToGo(), 10)
		out = append(out, " speed="...)
		out = strconv.AppendFloat(out, m.Speed(), 'f', 3, 64)
		out = append(out, " rate="...)
		out = strconv.AppendUint(out, uint64(m.PulseRate()), 10)
		out = append(out, " backend="...)
		out = append(out, m.BackendName()...)
	}
	return string(out)
}

// Mode returns how motor id is being serviced
func (interp *Interpreter) Mode(id uint8) Mode {
	if int(id) >= len(interp.modes) {
		return ModeIdle
	}
	return interp.modes[id]
}

// SetIdle marks motor id as no longer needing service
func (interp *Interpreter) SetIdle(id uint8) {
	if int(id) < len(interp.modes) {
		interp.modes[id] = ModeIdle
	}
}

// Absolute reports whether G0/G1 targets are absolute
func (interp *Interpreter) Absolute() bool {
	return interp.absolute
}

func axisIndex(letter byte) int {
	for i := 0; i < len(Axes); i++ {
		if Axes[i] == letter {
			return i
		}
	}
	return -1
}

func unknown(cmd *Command) error {
	return fmt.Errorf("%w %s", ErrUnknownCommand, cmd.Name())
}
