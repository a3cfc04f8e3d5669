package core

import (
	"math"
	"testing"
)

// startDDS puts a motor into the running state at a fixed increment without
// going through the planner
func startDDS(m *Motor, inc float64, dir bool) {
	m.direction.Store(dir)
	m.phaseIncrement.Store(inc)
	m.running.Store(true)
}

func TestDDSPulseCountTracksIncrement(t *testing.T) {
	increments := []float64{0.000150411, 0.001, 0.0015, 0.005, 0.1, 0.3, 0.33333, 0.5, 0.7, 0.9, 0.999}
	tickCounts := []int{10, 100, 1000, 100000}

	for _, inc := range increments {
		for _, n := range tickCounts {
			r := newTestRig(t)
			m := r.newMotor(t, motorConfig(testStepPin, testDirPin))
			startDDS(m, inc, true)

			r.ticks.Fire(n)

			pulses := r.gpio.RisingEdges(testStepPin)
			ideal := float64(n) * inc
			if math.Abs(float64(pulses)-ideal) >= 1 {
				t.Errorf("inc=%v ticks=%d: expected %v pulses within one, got %d", inc, n, ideal, pulses)
			}
			if m.CurrentPosition() != int64(pulses) {
				t.Errorf("inc=%v ticks=%d: position %d does not match %d pulses",
					inc, n, m.CurrentPosition(), pulses)
			}
		}
	}
}

func TestDDSLongRunAverage(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))

	const inc = 0.123456789
	const n = 1000000
	startDDS(m, inc, true)
	r.ticks.Fire(n)

	avg := float64(m.CurrentPosition()) / n
	if math.Abs(avg-inc) > 1.0/n {
		t.Errorf("Expected average %v, got %v", inc, avg)
	}
}

func TestDDSReverseDirection(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))
	startDDS(m, 0.5, false)

	r.ticks.Fire(100)

	if m.CurrentPosition() != -50 {
		t.Errorf("Expected position -50, got %d", m.CurrentPosition())
	}
	if r.gpio.Level(testDirPin) {
		t.Error("Expected direction pin low for decreasing position")
	}
	if m.pulseCount.Load() != 50 {
		t.Errorf("Expected pulse counter 50, got %d", m.pulseCount.Load())
	}
}

func TestDDSInvertedDirectionPin(t *testing.T) {
	r := newTestRig(t)
	cfg := motorConfig(testStepPin, testDirPin)
	cfg.InvertDir = true
	m := r.newMotor(t, cfg)
	startDDS(m, 1.0, true)

	r.ticks.Fire(3)

	if r.gpio.Level(testDirPin) {
		t.Error("Expected inverted direction pin low for increasing position")
	}
	if m.CurrentPosition() != 3 {
		t.Errorf("Expected position 3, got %d", m.CurrentPosition())
	}
}

func TestDDSStoppedMotorDoesNotDrift(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))
	m.phaseIncrement.Store(0.25)

	r.ticks.Fire(1000)

	if m.CurrentPosition() != 0 {
		t.Errorf("Expected no motion while stopped, got position %d", m.CurrentPosition())
	}
	if m.phase.Load() != 0 || m.errorShaper.Load() != 0 {
		t.Errorf("Expected untouched DDS state, got phase=%v error=%v", m.phase.Load(), m.errorShaper.Load())
	}
}

func TestDDSShapesOnTicksWithoutPulse(t *testing.T) {
	r := newTestRig(t)
	m := r.newMotor(t, motorConfig(testStepPin, testDirPin))
	startDDS(m, 0.3, true)

	r.ticks.Fire(1)
	if got := m.errorShaper.Load(); got != 0.3 {
		t.Errorf("Expected error shaper 0.3 after first tick, got %v", got)
	}

	r.ticks.Fire(1)
	// shaped = 0.3 + 0.3, phase = 0.3 + 0.6
	if got := m.errorShaper.Load(); got != 0.6 {
		t.Errorf("Expected error shaper 0.6 after second tick, got %v", got)
	}
	if got := m.phase.Load(); math.Abs(got-0.9) > 1e-12 {
		t.Errorf("Expected phase 0.9 after second tick, got %v", got)
	}

	r.ticks.Fire(1)
	// shaped = 0.9, phase = 1.8 overflows
	if m.CurrentPosition() != 1 {
		t.Errorf("Expected one pulse after third tick, got %d", m.CurrentPosition())
	}
	if got := m.errorShaper.Load(); math.Abs(got-(-0.1)) > 1e-12 {
		t.Errorf("Expected error shaper -0.1 after overflow, got %v", got)
	}
}
