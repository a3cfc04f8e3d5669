package core

// tick runs one DDS step for the motor. Called from the tick interrupt only.
//
// The unconsumed part of each tick's shaped increment is carried into the
// next tick, including ticks that emit no pulse. Over N ticks the pulse count
// stays within one pulse of N*phaseIncrement.
func (m *Motor) tick() {
	shaped := m.phaseIncrement.Load() + m.errorShaper.Load()
	phase := m.phase.Load() + shaped

	if phase >= 1.0 {
		m.phase.Store(phase - 1.0)
		m.errorShaper.Store(shaped - 1.0)

		dir := m.direction.Load()
		m.backend.SetDirection(dir)
		m.backend.Step()

		if dir {
			m.currentPos.Add(1)
		} else {
			m.currentPos.Add(-1)
		}
		m.pulseCount.Add(1)
		return
	}

	m.phase.Store(phase)
	m.errorShaper.Store(shaped)
}
