package core

import (
	"errors"
	"testing"
)

func TestNewSystemRequiresCollaborators(t *testing.T) {
	gpio := NewMemGPIO()
	clock := &SimClock{}
	ticks := &ManualTickSource{}

	tests := []struct {
		name string
		cfg  SystemConfig
		want error
	}{
		{"no gpio", SystemConfig{Clock: clock, Ticks: ticks}, ErrNoGPIO},
		{"no clock", SystemConfig{GPIO: gpio, Ticks: ticks}, ErrNoClock},
		{"no ticks", SystemConfig{GPIO: gpio, Clock: clock}, ErrNoTickSource},
	}

	for _, test := range tests {
		_, err := NewSystem(test.cfg)
		if !errors.Is(err, test.want) {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, err)
		}
	}
}

func TestNewSystemDefaults(t *testing.T) {
	r := newTestRig(t)

	if r.sys.TickFreq() != TickFreq {
		t.Errorf("Expected tick frequency %d, got %d", TickFreq, r.sys.TickFreq())
	}
	if r.sys.MotorCount() != 0 {
		t.Errorf("Expected no motors, got %d", r.sys.MotorCount())
	}
	if r.ticks.Started() {
		t.Error("Expected tick source idle before the first motor")
	}
}

func TestTickSourceStartsOnFirstMotorOnly(t *testing.T) {
	r := newTestRig(t)

	r.newMotor(t, motorConfig(2, 3))
	if !r.ticks.Started() {
		t.Fatal("Expected tick source started by first motor")
	}
	if r.ticks.Freq() != TickFreq {
		t.Errorf("Expected tick source at %d Hz, got %d", TickFreq, r.ticks.Freq())
	}

	// A second Start would fail, so success proves it was not restarted
	r.newMotor(t, motorConfig(4, 5))
	if r.sys.MotorCount() != 2 {
		t.Errorf("Expected 2 motors, got %d", r.sys.MotorCount())
	}
}

func TestTickSourceStartFailure(t *testing.T) {
	ticks := &ManualTickSource{}
	ticks.Start(TickFreq, func() {}) // already claimed by someone else

	sys, err := NewSystem(SystemConfig{GPIO: NewMemGPIO(), Clock: &SimClock{}, Ticks: ticks})
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}

	_, err = sys.NewMotor(motorConfig(2, 3))
	if !errors.Is(err, ErrTickSourceStarted) {
		t.Errorf("Expected ErrTickSourceStarted, got %v", err)
	}
	if sys.MotorCount() != 0 {
		t.Errorf("Expected failed motor not to register, got %d motors", sys.MotorCount())
	}
}

func TestRegistryCapacity(t *testing.T) {
	r := newTestRig(t)
	for i := 0; i < MaxMotors; i++ {
		m := r.newMotor(t, motorConfig(GPIOPin(2*i), GPIOPin(2*i+1)))
		if m.ID() != uint8(i) {
			t.Errorf("Expected slot %d, got %d", i, m.ID())
		}
	}

	_, err := r.sys.NewMotor(motorConfig(20, 21))
	if !errors.Is(err, ErrTooManyMotors) {
		t.Errorf("Expected ErrTooManyMotors, got %v", err)
	}
	if r.sys.MotorCount() != MaxMotors {
		t.Errorf("Expected %d motors, got %d", MaxMotors, r.sys.MotorCount())
	}
	if r.sys.Motor(MaxMotors) != nil {
		t.Error("Expected nil for an unused slot")
	}
}

func TestNewMotorWrapsPinErrors(t *testing.T) {
	errBadPin := errors.New("pin reserved")

	tests := []struct {
		name string
		fail GPIOPin
	}{
		{"step", testStepPin},
		{"dir", testDirPin},
		{"enable", testEnablePin},
	}

	for _, test := range tests {
		r := newTestRig(t)
		r.gpio.FailConfigure(test.fail, errBadPin)
		cfg := motorConfig(testStepPin, testDirPin)
		cfg.EnablePin = testEnablePin

		_, err := r.sys.NewMotor(cfg)
		if !errors.Is(err, errBadPin) {
			t.Errorf("%s pin: expected wrapped error, got %v", test.name, err)
		}
		if r.sys.MotorCount() != 0 {
			t.Errorf("%s pin: expected no motor registered", test.name)
		}
	}
}

func TestNewMotorInitialState(t *testing.T) {
	r := newTestRig(t)
	cfg := motorConfig(testStepPin, testDirPin)
	cfg.InvertStep = true
	m := r.newMotor(t, cfg)

	if m.IsRunning() || m.CurrentPosition() != 0 || m.TargetPosition() != 0 {
		t.Error("Expected an idle motor at position 0")
	}
	if m.MaxSpeed() != DefaultMaxSpeed || m.Acceleration() != DefaultAcceleration {
		t.Errorf("Expected default limits, got %v and %v", m.MaxSpeed(), m.Acceleration())
	}
	if !r.gpio.Configured(testStepPin) || !r.gpio.Configured(testDirPin) {
		t.Error("Expected step and dir pins configured")
	}
	if !r.gpio.Level(testStepPin) {
		t.Error("Expected inverted step pin to idle high")
	}
	if m.BackendName() != "GPIO" {
		t.Errorf("Expected GPIO backend, got %s", m.BackendName())
	}
}

func TestNewMotorConfigLimits(t *testing.T) {
	r := newTestRig(t)
	cfg := motorConfig(testStepPin, testDirPin)
	cfg.MaxSpeed = 250
	cfg.Acceleration = 80
	m := r.newMotor(t, cfg)

	if m.MaxSpeed() != 250 || m.Acceleration() != 80 {
		t.Errorf("Expected limits 250 and 80, got %v and %v", m.MaxSpeed(), m.Acceleration())
	}
}

// countingBackend records calls for backend factory tests
type countingBackend struct {
	steps   int
	dirs    []bool
	stopped int
	initErr error
}

func (b *countingBackend) Init(stepPin, dirPin GPIOPin, invertStep, invertDir bool) error {
	return b.initErr
}
func (b *countingBackend) Step() { b.steps++ }
func (b *countingBackend) SetDirection(dir bool) { b.dirs = append(b.dirs, dir) }
func (b *countingBackend) Stop() { b.stopped++ }
func (b *countingBackend) GetName() string { return "counting" }

func TestCustomBackendFactory(t *testing.T) {
	backend := &countingBackend{}
	ticks := &ManualTickSource{}
	sys, err := NewSystem(SystemConfig{
		GPIO:     NewMemGPIO(),
		Clock:    &SimClock{},
		Ticks:    ticks,
		Backends: func() StepperBackend { return backend },
	})
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}

	m, err := sys.NewMotor(motorConfig(testStepPin, testDirPin))
	if err != nil {
		t.Fatalf("NewMotor failed: %v", err)
	}
	if m.BackendName() != "counting" {
		t.Errorf("Expected counting backend, got %s", m.BackendName())
	}

	startDDS(m, 0.5, false)
	ticks.Fire(10)

	if backend.steps != 5 {
		t.Errorf("Expected 5 steps, got %d", backend.steps)
	}
	if len(backend.dirs) != 5 || backend.dirs[0] {
		t.Errorf("Expected direction set before each step, got %v", backend.dirs)
	}

	m.Stop()
	if backend.stopped != 1 {
		t.Errorf("Expected backend stopped once, got %d", backend.stopped)
	}
}

func TestBackendInitErrorWrapped(t *testing.T) {
	errInit := errors.New("state machine busy")
	sys, _ := NewSystem(SystemConfig{
		GPIO:     NewMemGPIO(),
		Clock:    &SimClock{},
		Ticks:    &ManualTickSource{},
		Backends: func() StepperBackend { return &countingBackend{initErr: errInit} },
	})

	_, err := sys.NewMotor(motorConfig(testStepPin, testDirPin))
	if !errors.Is(err, errInit) {
		t.Errorf("Expected wrapped init error, got %v", err)
	}
}

func TestStopAll(t *testing.T) {
	r := newTestRig(t)
	a := r.newMotor(t, motorConfig(2, 3))
	b := r.newMotor(t, motorConfig(4, 5))
	a.MoveTo(1000)
	b.SetSpeed(-200)

	r.sys.StopAll()

	if a.IsRunning() || b.IsRunning() {
		t.Error("Expected all motors stopped")
	}
}

func TestMotorsStepIndependently(t *testing.T) {
	r := newTestRig(t)
	a := r.newMotor(t, motorConfig(2, 3))
	b := r.newMotor(t, motorConfig(4, 5))
	c := r.newMotor(t, motorConfig(6, 7))

	startDDS(a, 0.25, true)
	startDDS(b, 0.125, false)
	// c left idle

	r.ticks.Fire(1000)

	if a.CurrentPosition() != 250 {
		t.Errorf("Expected motor 0 at 250, got %d", a.CurrentPosition())
	}
	if b.CurrentPosition() != -125 {
		t.Errorf("Expected motor 1 at -125, got %d", b.CurrentPosition())
	}
	if c.CurrentPosition() != 0 || r.gpio.RisingEdges(6) != 0 {
		t.Error("Expected idle motor not to step")
	}
	if r.gpio.RisingEdges(2) != 250 || r.gpio.RisingEdges(4) != 125 {
		t.Errorf("Expected 250 and 125 pulses, got %d and %d",
			r.gpio.RisingEdges(2), r.gpio.RisingEdges(4))
	}
}
