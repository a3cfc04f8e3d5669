package core

import "math"

// Run advances the trapezoidal plan toward the target by one update and
// publishes the new step rate. Call it at application rate. Returns false
// once the target is reached or the motor is stopped.
//
// The plan is recomputed from the current speed and position on every call,
// so retargeting mid-move and an irregular call rate are both tolerated.
func (m *Motor) Run() bool {
	if !m.running.Load() {
		return false
	}

	now := m.clock.Micros()
	dt := elapsedSeconds(now, m.lastPlannerMicros, m.maxDT)
	m.lastPlannerMicros = now

	distance := m.targetPos - m.currentPos.Load()
	if distance == 0 {
		m.Stop()
		RecordEvent(EvtTargetReached, m.id, m.clock.Millis(), m.targetPos)
		return false
	}

	m.enableDriver()

	direction := 1.0
	if distance < 0 {
		direction = -1.0
	}

	// Compared against the speed before this update
	stoppingDistance := (m.currentSpeed * m.currentSpeed) / (2.0 * m.acceleration)

	if math.Abs(float64(distance)) <= stoppingDistance {
		m.currentSpeed -= direction * m.acceleration * dt
	} else {
		m.currentSpeed += direction * m.acceleration * dt
	}

	if math.Abs(m.currentSpeed) > m.maxSpeed {
		m.currentSpeed = direction * m.maxSpeed
	}

	m.publish()
	m.report()
	return true
}
