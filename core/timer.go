package core

import "errors"

const (
	TickFreq = 100000 // 100kHz shared step tick

	// PlannerMaxDT bounds the elapsed time used by one planner update (microseconds)
	PlannerMaxDT = 10000

	// ReportInterval is the pulse-rate reporting window (milliseconds)
	ReportInterval = 1000
)

// Clock provides the monotonic time sources used at application rate.
// Both counters wrap; callers only use differences.
type Clock interface {
	Micros() uint32
	Millis() uint32
}

// TickSource is a periodic callback source, normally a hardware timer interrupt.
// Start is called once; the handler then runs freq times per second in a
// context that preempts normal execution until the process ends.
type TickSource interface {
	Start(freq uint32, handler func()) error
}

var ErrTickSourceStarted = errors.New("tick source already started")

// elapsedSeconds returns the time between two microsecond readings,
// clamped to maxUS
func elapsedSeconds(now, last, maxUS uint32) float64 {
	dt := now - last
	if dt > maxUS {
		dt = maxUS
	}
	return float64(dt) / 1000000.0
}
