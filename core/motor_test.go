package core

import (
	"errors"
	"math"
	"testing"
)

func TestMoveToResetsDDSState(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))
	m.SetSpeed(300)
	r.advanceMS(7)

	m.MoveTo(50)

	if m.Speed() != 0 {
		t.Errorf("Expected speed reset to 0, got %v", m.Speed())
	}
	if m.phase.Load() != 0 || m.errorShaper.Load() != 0 || m.PhaseIncrement() != 0 {
		t.Errorf("Expected DDS state cleared, got phase=%v error=%v inc=%v",
			m.phase.Load(), m.errorShaper.Load(), m.PhaseIncrement())
	}
	if !m.IsRunning() {
		t.Error("Expected motor running toward new target")
	}
	if m.TargetPosition() != 50 {
		t.Errorf("Expected target 50, got %d", m.TargetPosition())
	}
}

func TestMoveToCurrentPositionIsIdle(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))
	m.SetCurrentPosition(42)

	m.MoveTo(42)

	if m.IsRunning() {
		t.Error("Expected motor idle when target equals position")
	}
	if m.Run() {
		t.Error("Expected Run to report no motion needed")
	}
}

func TestMoveIsRelative(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))
	m.SetCurrentPosition(100)

	m.Move(-30)

	if m.TargetPosition() != 70 {
		t.Errorf("Expected target 70, got %d", m.TargetPosition())
	}
	if m.DistanceToGo() != -30 {
		t.Errorf("Expected distance -30, got %d", m.DistanceToGo())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))
	m.MoveTo(10000)
	for i := 0; i < 200; i++ {
		r.advanceMS(1)
		m.Run()
	}

	for i := 0; i < 3; i++ {
		m.Stop()
		if m.IsRunning() {
			t.Errorf("Stop #%d: expected not running", i+1)
		}
		if m.DistanceToGo() != 0 {
			t.Errorf("Stop #%d: expected distance 0, got %d", i+1, m.DistanceToGo())
		}
	}

	pos := m.CurrentPosition()
	r.advanceMS(50)
	for i := 0; i < 5; i++ {
		if m.Run() {
			t.Error("Expected Run to return false after Stop")
		}
	}
	if m.CurrentPosition() != pos || m.Speed() != 0 || m.PhaseIncrement() != 0 {
		t.Errorf("Expected no side effects after Stop, got position %d speed %v inc %v",
			m.CurrentPosition(), m.Speed(), m.PhaseIncrement())
	}
}

func TestSetSpeedZeroStops(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))
	m.SetSpeed(100)
	if !m.IsRunning() {
		t.Fatal("Expected SetSpeed to start the motor")
	}

	m.SetSpeed(0)

	if m.IsRunning() || m.Speed() != 0 {
		t.Errorf("Expected stopped, got running=%v speed=%v", m.IsRunning(), m.Speed())
	}
	if m.RunSpeed() {
		t.Error("Expected RunSpeed false once stopped")
	}
}

func TestSetSpeedClampsToMaxSpeed(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))
	m.SetMaxSpeed(-400) // sign is ignored

	m.SetSpeed(-1000)

	if m.MaxSpeed() != 400 {
		t.Errorf("Expected max speed 400, got %v", m.MaxSpeed())
	}
	if m.Speed() != -400 {
		t.Errorf("Expected speed clamped to -400, got %v", m.Speed())
	}
	if m.Direction() {
		t.Error("Expected decreasing direction")
	}
	if math.Abs(m.PhaseIncrement()-400.0/TickFreq) > 1e-15 {
		t.Errorf("Expected increment %v, got %v", 400.0/TickFreq, m.PhaseIncrement())
	}
}

func TestSetAccelerationIgnoresSign(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))

	m.SetAcceleration(-75)

	if m.Acceleration() != 75 {
		t.Errorf("Expected acceleration 75, got %v", m.Acceleration())
	}
}

func TestRunSpeedTracksAtConstantRate(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))

	// Sidereal-like rate with a fractional step count per second
	m.SetSpeed(15.041)
	for i := 0; i < 10000; i++ {
		r.advanceMS(1)
		if !m.RunSpeed() {
			t.Fatal("Expected RunSpeed to keep running")
		}
	}

	// 10 s at 15.041 steps/s
	if pos := m.CurrentPosition(); pos < 149 || pos > 151 {
		t.Errorf("Expected about 150 steps, got %d", pos)
	}
	if m.Speed() != 15.041 {
		t.Errorf("Expected RunSpeed to keep speed 15.041, got %v", m.Speed())
	}
	if rate := m.PulseRate(); rate < 14 || rate > 16 {
		t.Errorf("Expected pulse rate about 15, got %d", rate)
	}
}

func TestSetCurrentPositionKeepsMotionState(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))
	m.MoveTo(500)

	m.SetCurrentPosition(-20)

	if m.CurrentPosition() != -20 {
		t.Errorf("Expected position -20, got %d", m.CurrentPosition())
	}
	if m.TargetPosition() != 500 {
		t.Errorf("Expected target unchanged at 500, got %d", m.TargetPosition())
	}
	if !m.IsRunning() {
		t.Error("Expected running state unchanged")
	}
}

func TestEnablePinPolarity(t *testing.T) {
	tests := []struct {
		activeLow    bool
		enabledLevel bool
	}{
		{true, false},
		{false, true},
	}

	for _, test := range tests {
		r := newTestRig(t)
		cfg := motorConfig(testStepPin, testDirPin)
		cfg.EnablePin = testEnablePin
		cfg.EnableActiveLow = test.activeLow
		m := r.newMotor(t, cfg)

		if !r.gpio.Configured(testEnablePin) {
			t.Fatal("Expected enable pin configured as output")
		}
		if r.gpio.Level(testEnablePin) == test.enabledLevel {
			t.Errorf("activeLow=%v: expected driver disabled after construction", test.activeLow)
		}

		m.MoveTo(10)
		if r.gpio.Level(testEnablePin) != test.enabledLevel || !m.DriverEnabled() {
			t.Errorf("activeLow=%v: expected driver enabled after MoveTo", test.activeLow)
		}

		writes := r.gpio.Writes(testEnablePin)
		m.Run()
		m.Run()
		if r.gpio.Writes(testEnablePin) != writes {
			t.Errorf("activeLow=%v: expected repeated enables not to rewrite the pin", test.activeLow)
		}

		m.Stop()
		if r.gpio.Level(testEnablePin) == test.enabledLevel || m.DriverEnabled() {
			t.Errorf("activeLow=%v: expected driver disabled after Stop", test.activeLow)
		}
	}
}

func TestSharedEnablePinHeldByAnyMotor(t *testing.T) {
	r := newTestRig(t)
	cfgA := motorConfig(testStepPin, testDirPin)
	cfgA.EnablePin = testEnablePin
	cfgA.EnableActiveLow = true
	cfgB := motorConfig(4, 5)
	cfgB.EnablePin = testEnablePin
	cfgB.EnableActiveLow = true
	a := r.newMotor(t, cfgA)
	b := r.newMotor(t, cfgB)

	a.SetSpeed(100)
	b.SetSpeed(100)
	if r.gpio.Level(testEnablePin) {
		t.Fatal("Expected shared driver enabled (low)")
	}

	a.Stop()
	if r.gpio.Level(testEnablePin) {
		t.Error("Expected shared driver to stay enabled while B runs")
	}
	if a.DriverEnabled() || !b.DriverEnabled() {
		t.Errorf("Expected A released and B holding, got A=%v B=%v", a.DriverEnabled(), b.DriverEnabled())
	}

	b.RunSpeed()
	b.Stop()
	if !r.gpio.Level(testEnablePin) {
		t.Error("Expected shared driver disabled once both motors stop")
	}
}

func TestSharedEnablePinPolarityMismatch(t *testing.T) {
	r := newTestRig(t)
	cfgA := motorConfig(testStepPin, testDirPin)
	cfgA.EnablePin = testEnablePin
	cfgA.EnableActiveLow = true
	r.newMotor(t, cfgA)

	cfgB := motorConfig(4, 5)
	cfgB.EnablePin = testEnablePin
	cfgB.EnableActiveLow = false
	if _, err := r.sys.NewMotor(cfgB); !errors.Is(err, ErrEnablePolarity) {
		t.Errorf("Expected ErrEnablePolarity, got %v", err)
	}
}

func TestNoEnablePinIsNoOp(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))

	m.MoveTo(10)
	m.Stop()

	if m.DriverEnabled() {
		t.Error("Expected no driver state without an enable pin")
	}
	if r.gpio.Writes(NoPin) != 0 {
		t.Error("Expected no writes to an unwired enable pin")
	}
}

func TestMotionEventsRecorded(t *testing.T) {
	ClearEvents()
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))

	m.MoveTo(3)
	r.runToTarget(t, m, 10000)

	events := Events()
	if len(events) < 3 {
		t.Fatalf("Expected at least 3 events, got %d", len(events))
	}
	if events[0].EventType != EvtMoveTo || events[0].Value != 3 {
		t.Errorf("Expected MOVE_TO 3 first, got %s %d", EventName(events[0].EventType), events[0].Value)
	}
	last := events[len(events)-1]
	if last.EventType != EvtTargetReached {
		t.Errorf("Expected REACHED last, got %s", EventName(last.EventType))
	}
}
