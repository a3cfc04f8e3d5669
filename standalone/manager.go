package standalone

import (
	"errors"
	"fmt"

	"astrostepper/core"
	"astrostepper/standalone/config"
	"astrostepper/standalone/gcode"
)

// MaxLineLength bounds a console line; longer input is discarded
const MaxLineLength = 256

var (
	ErrNotInitialized     = errors.New("manager not initialized")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrLineTooLong        = errors.New("line too long")
)

// Manager coordinates the console, the interpreter and the motors
type Manager struct {
	config      *config.MachineConfig
	system      *core.System
	parser      *gcode.Parser
	interpreter *gcode.Interpreter

	// Serial interface
	inputBuffer  []byte
	overflow     bool
	outputBuffer []byte

	// Status
	initialized bool
	running     bool
}

// NewManager creates a manager from a JSON configuration
func NewManager(configData []byte) (*Manager, error) {
	cfg, err := config.LoadConfig(configData)
	if err != nil {
		return nil, err
	}

	return NewManagerWithConfig(cfg)
}

// NewManagerWithConfig creates a manager with an existing config
func NewManagerWithConfig(cfg *config.MachineConfig) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if err := cfg.Prepare(); err != nil {
		return nil, err
	}
	mgr := &Manager{
		config:       cfg,
		parser:       gcode.NewParser(),
		inputBuffer:  make([]byte, 0, MaxLineLength),
		outputBuffer: make([]byte, 0, 256),
	}

	return mgr, nil
}

// Initialize builds the motor system on the given platform and registers
// every configured motor in file order
func (m *Manager) Initialize(platform Platform) error {
	if m.initialized {
		return ErrAlreadyInitialized
	}

	sysCfg := m.config.SystemConfig()
	sysCfg.GPIO = platform.GPIO
	sysCfg.Clock = platform.Clock
	sysCfg.Ticks = platform.Ticks

	// Backend choice is per motor, so the factory reads the motor being built
	var pending string
	sysCfg.Backends = func() core.StepperBackend {
		if platform.Backends != nil {
			if factory := platform.Backends(pending); factory != nil {
				return factory()
			}
		}
		return core.NewGPIOBackend(platform.GPIO)
	}

	sys, err := core.NewSystem(sysCfg)
	if err != nil {
		return err
	}

	core.SetDebugEnabled(m.config.Debug)

	for i, motorCfg := range m.config.Motors {
		coreCfg, err := motorCfg.ToCore()
		if err != nil {
			return fmt.Errorf("motor %d (%s): %w", i, motorCfg.Name, err)
		}
		pending = motorCfg.Backend
		if _, err := sys.NewMotor(coreCfg); err != nil {
			return fmt.Errorf("motor %d (%s): %w", i, motorCfg.Name, err)
		}
	}

	m.system = sys
	m.interpreter = gcode.NewInterpreter(sys, gcode.Info{Name: FirmwareName, Version: FirmwareVersion})
	m.initialized = true
	return nil
}

// System returns the motor system, nil before Initialize
func (m *Manager) System() *core.System {
	return m.system
}

// RegisterMCode installs a target-specific M-code handler
func (m *Manager) RegisterMCode(number int, handler gcode.MCodeHandler) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	m.interpreter.RegisterMCode(number, handler)
	return nil
}

// ProcessLine executes one console line and queues its reply: any response
// text, then "ok". Failures queue "Error: <msg>" instead of "ok".
func (m *Manager) ProcessLine(line string) error {
	err := m.processLine(line)
	if err != nil {
		m.SendResponse("Error: " + err.Error() + "\n")
		return err
	}
	m.SendResponse("ok\n")
	return nil
}

func (m *Manager) processLine(line string) error {
	if !m.initialized {
		return ErrNotInitialized
	}

	cmd, err := m.parser.ParseLine(line)
	if err != nil {
		return err
	}

	response, err := m.interpreter.Execute(cmd)
	if err != nil {
		return err
	}
	if response != "" {
		m.SendResponse(response + "\n")
	}
	return nil
}

// ProcessByte processes a single byte of input (for serial streaming)
func (m *Manager) ProcessByte(b byte) error {
	if b != '\n' && b != '\r' {
		if len(m.inputBuffer) >= MaxLineLength {
			m.overflow = true
			return nil
		}
		m.inputBuffer = append(m.inputBuffer, b)
		return nil
	}

	line := string(m.inputBuffer)
	m.inputBuffer = m.inputBuffer[:0]

	if m.overflow {
		m.overflow = false
		m.SendResponse("Error: " + ErrLineTooLong.Error() + "\n")
		return ErrLineTooLong
	}

	// Remove trailing whitespace
	for len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
		line = line[:len(line)-1]
	}

	if len(line) == 0 {
		return nil
	}
	return m.ProcessLine(line)
}

// SendResponse queues a response to be sent to the host
func (m *Manager) SendResponse(response string) {
	m.outputBuffer = append(m.outputBuffer, response...)
}

// GetOutput returns any pending output and clears the buffer
func (m *Manager) GetOutput() []byte {
	if len(m.outputBuffer) == 0 {
		return nil
	}

	output := make([]byte, len(m.outputBuffer))
	copy(output, m.outputBuffer)
	m.outputBuffer = m.outputBuffer[:0]
	return output
}

// Service is the application-rate loop body. Position-mode motors are
// planned with Run, speed-mode motors are kept alive with RunSpeed.
func (m *Manager) Service() {
	if !m.initialized {
		return
	}

	for i := 0; i < m.system.MotorCount(); i++ {
		id := uint8(i)
		motor := m.system.Motor(id)
		switch m.interpreter.Mode(id) {
		case gcode.ModePosition:
			if !motor.Run() {
				m.interpreter.SetIdle(id)
			}
		case gcode.ModeSpeed:
			if !motor.RunSpeed() {
				m.interpreter.SetIdle(id)
			}
		}
	}
}

// Start begins standalone operation
func (m *Manager) Start() error {
	if !m.initialized {
		return ErrNotInitialized
	}

	m.running = true
	m.SendResponse(FirmwareName + " " + FirmwareVersion + " ready\n")
	return nil
}

// Stop halts all motion; the console keeps accepting commands
func (m *Manager) Stop() {
	m.running = false
	if m.initialized {
		m.interpreter.StopAll()
	}
}

// IsRunning returns whether the manager is running
func (m *Manager) IsRunning() bool {
	return m.running
}

// GetState returns the current machine state
func (m *Manager) GetState() *MachineState {
	if !m.initialized {
		return nil
	}

	state := &MachineState{AbsoluteMode: m.interpreter.Absolute()}
	for i := 0; i < m.system.MotorCount(); i++ {
		id := uint8(i)
		motor := m.system.Motor(id)
		state.Motors = append(state.Motors, MotorState{
			Name:     m.config.Motors[i].Name,
			Axis:     gcode.Axes[i],
			Mode:     m.interpreter.Mode(id),
			Position: motor.CurrentPosition(),
			Target:   motor.TargetPosition(),
			Speed:    motor.Speed(),
			Running:  motor.IsRunning(),
			Rate:     motor.PulseRate(),
		})
	}
	return state
}

// EmergencyStop halts every motor immediately
func (m *Manager) EmergencyStop() {
	m.Stop()
}
