//go:build rp2040

package pio

// PIO Stepper Backend using tinygo-org/pio package
// The state machine times the pulse, the tick interrupt only queues a word

import (
	"errors"
	"machine"
	"sync/atomic"

	"astrostepper/core"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIO program for step pulse generation
// Command word format (shifted out LSB first):
//
//	Bits 0-15:  extra pulses (0 = one pulse)
//	Bits 16-23: delay cycles after each pulse
//	Bit 24:     direction pin level
//
// Program flow:
//  1. Pull 32-bit command from FIFO
//  2. Extract pulse count into X register
//  3. Extract delay cycles into Y register
//  4. Set direction pin
//  5. Generate X+1 pulses with Y cycle delays after each
//
// buildStepperProgram creates the stepper PIO program using AssemblerV0
func buildStepperProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),          // 0: pull block
		asm.Out(rp2pio.OutDestX, 16).Encode(),   // 1: out x, 16 (pulse count)
		asm.Out(rp2pio.OutDestY, 8).Encode(),    // 2: out y, 8 (delay cycles)
		asm.Out(rp2pio.OutDestPins, 1).Encode(), // 3: out pins, 1 (direction)
		// step_loop:
		asm.Set(rp2pio.SetDestPins, 1).Delay(7).Encode(), // 4: set pins, 1 [7]
		asm.Set(rp2pio.SetDestPins, 0).Encode(),          // 5: set pins, 0
		// delay_loop:
		asm.Jmp(6, rp2pio.JmpYNZeroDec).Encode(), // 6: jmp y--, 6
		asm.Jmp(4, rp2pio.JmpXNZeroDec).Encode(), // 7: jmp x--, 4
		// .wrap
	}
}

const (
	stepperPIOOrigin = 0 // Jump addresses are absolute, load at offset 0

	// 125MHz / 12.5 = 10MHz, so the 8 cycle high phase is 0.8us
	pioClkDivInt  = 12
	pioClkDivFrac = 128

	dirBit = 1 << 24
)

var (
	errPIOInvertStep = errors.New("PIO backend cannot invert step")

	// Program offset per PIO block, loaded on first use
	programLoaded [2]bool
	programOffset [2]uint8
)

// PIOStepperBackend implements stepper control using TinyGo's pio package
type PIOStepperBackend struct {
	pio       *rp2pio.PIO
	sm        rp2pio.StateMachine
	stepPin   machine.Pin
	dirPin    machine.Pin
	invertDir bool
	direction bool
	offset    uint8
	pioNum    uint8
	smNum     uint8
	claimed   bool
	missed    atomic.Uint32 // pulses dropped on a full FIFO
}

// NewPIOStepperBackend creates a new PIO-based stepper backend
// pioNum: 0 for PIO0, 1 for PIO1
// smNum: 0-3 for state machine number
func NewPIOStepperBackend(pioNum, smNum uint8) *PIOStepperBackend {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}

	return &PIOStepperBackend{
		pio:       pioHW,
		sm:        pioHW.StateMachine(smNum),
		pioNum:    pioNum,
		smNum:     smNum,
		direction: true,
	}
}

// Init claims the state machine and starts it waiting for step words.
// On failure the state machine is handed back for another motor.
func (b *PIOStepperBackend) Init(stepPin, dirPin core.GPIOPin, invertStep, invertDir bool) error {
	err := b.init(stepPin, dirPin, invertStep, invertDir)
	if err != nil {
		if b.claimed {
			b.sm.Unclaim()
			b.claimed = false
		}
		smAlloc.release(b.pioNum, b.smNum)
	}
	return err
}

func (b *PIOStepperBackend) init(stepPin, dirPin core.GPIOPin, invertStep, invertDir bool) error {
	if stepPin > maxPin || dirPin > maxPin {
		return errPinRange
	}
	if invertStep {
		return errPIOInvertStep
	}
	b.stepPin = machine.Pin(stepPin)
	b.dirPin = machine.Pin(dirPin)
	b.invertDir = invertDir

	// Claim the state machine first
	if !b.sm.TryClaim() {
		return errors.New("PIO state machine busy")
	}
	b.claimed = true

	if !programLoaded[b.pioNum] {
		offset, err := b.pio.AddProgram(buildStepperProgram(), stepperPIOOrigin)
		if err != nil {
			return err
		}
		programOffset[b.pioNum] = offset
		programLoaded[b.pioNum] = true
	}
	b.offset = programOffset[b.pioNum]

	// Configure pins for PIO
	b.stepPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	b.dirPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()

	// SET pins drive the step pulse, OUT pins the direction
	cfg.SetSetPins(b.stepPin, 1)
	cfg.SetOutPins(b.dirPin, 1)

	// Shift right, autopull disabled (explicit PULL), 32-bit threshold
	cfg.SetOutShift(true, false, 32)

	programLen := uint8(len(buildStepperProgram()))
	cfg.SetWrap(b.offset+programLen-1, b.offset)
	cfg.SetClkDivIntFrac(pioClkDivInt, pioClkDivFrac)

	// Pin directions must be set after Init
	b.sm.Init(b.offset, cfg)
	b.sm.SetPindirsConsecutive(b.stepPin, 1, true)
	b.sm.SetPindirsConsecutive(b.dirPin, 1, true)

	b.sm.SetPinsConsecutive(b.stepPin, 1, false)
	b.sm.SetPinsConsecutive(b.dirPin, 1, !invertDir)

	b.sm.SetEnabled(true)
	return nil
}

// Step queues a single pulse at the current direction
func (b *PIOStepperBackend) Step() {
	cmd := uint32(0) | (1 << 16) // one pulse, one cycle of delay
	if b.direction != b.invertDir {
		cmd |= dirBit
	}

	// Each word drains in ~1.2us, so the 4 deep FIFO only fills on a stall
	putOrDrop(&b.sm, cmd, &b.missed)
}

// Missed returns the number of pulses dropped because the FIFO was full
func (b *PIOStepperBackend) Missed() uint32 {
	return b.missed.Load()
}

// SetDirection sets the direction for the following pulses
func (b *PIOStepperBackend) SetDirection(dir bool) {
	b.direction = dir
}

// Stop drops queued pulses and restarts the state machine at its pull
func (b *PIOStepperBackend) Stop() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Restart()
	b.sm.ClkDivRestart()
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	b.sm.Exec(asm.Jmp(b.offset, rp2pio.JmpAlways).Encode())
	b.sm.SetPinsConsecutive(b.stepPin, 1, false)
	b.sm.SetEnabled(true)
}

// GetName returns the backend name
func (b *PIOStepperBackend) GetName() string {
	return "PIO"
}
