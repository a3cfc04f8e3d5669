package core

import "testing"

const (
	testStepPin   GPIOPin = 2
	testDirPin    GPIOPin = 3
	testEnablePin GPIOPin = 8
)

// testRig wires a System to simulated collaborators
type testRig struct {
	gpio  *MemGPIO
	clock *SimClock
	ticks *ManualTickSource
	sys   *System
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	r := &testRig{
		gpio:  NewMemGPIO(),
		clock: &SimClock{},
		ticks: &ManualTickSource{},
	}
	sys, err := NewSystem(SystemConfig{GPIO: r.gpio, Clock: r.clock, Ticks: r.ticks})
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}
	r.sys = sys
	return r
}

func motorConfig(step, dir GPIOPin) MotorConfig {
	return MotorConfig{StepPin: step, DirPin: dir, EnablePin: NoPin}
}

func (r *testRig) newMotor(t *testing.T, cfg MotorConfig) *Motor {
	t.Helper()
	m, err := r.sys.NewMotor(cfg)
	if err != nil {
		t.Fatalf("NewMotor failed: %v", err)
	}
	return m
}

// advanceMS fires one millisecond worth of ticks and moves the clock, ms times
func (r *testRig) advanceMS(ms int) {
	perMS := int(r.sys.TickFreq() / 1000)
	for i := 0; i < ms; i++ {
		r.ticks.Fire(perMS)
		r.clock.Advance(1000)
	}
}

// runToTarget calls Run once per simulated millisecond until it reports done
func (r *testRig) runToTarget(t *testing.T, m *Motor, limitMS int) int {
	t.Helper()
	for i := 0; i < limitMS; i++ {
		r.advanceMS(1)
		if !m.Run() {
			return i
		}
	}
	t.Fatalf("motor %d did not reach target %d within %d ms (at %d)",
		m.ID(), m.TargetPosition(), limitMS, m.CurrentPosition())
	return limitMS
}
