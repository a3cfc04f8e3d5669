package core

import (
	"errors"
	"sync/atomic"
)

// MaxMotors is the number of motors that can share one tick source
const MaxMotors = 4

var ErrTooManyMotors = errors.New("motor registry full")

// Registry is the fixed-capacity, append-only set of motors serviced by the
// tick dispatcher. Slot index equals insertion order.
type Registry struct {
	motors [MaxMotors]*Motor
	count  atomic.Uint32 // published after the slot is written
}

// Add appends a motor and returns its slot index
// Must only be called from application context
func (r *Registry) Add(m *Motor) (uint8, error) {
	n := r.count.Load()
	if n >= MaxMotors {
		return 0, ErrTooManyMotors
	}
	r.motors[n] = m
	r.count.Store(n + 1)
	return uint8(n), nil
}

// Len returns the number of registered motors
func (r *Registry) Len() int {
	return int(r.count.Load())
}

// Get returns the motor in slot id, or nil
func (r *Registry) Get(id uint8) *Motor {
	if uint32(id) >= r.count.Load() {
		return nil
	}
	return r.motors[id]
}

// Dispatch is the shared tick handler. It visits every registered motor in
// slot order and advances the DDS engine of each running one.
// No allocation, no blocking; pin writes are the only I/O.
func (r *Registry) Dispatch() {
	n := r.count.Load()
	for i := uint32(0); i < n; i++ {
		m := r.motors[i]
		if m == nil || !m.running.Load() {
			continue
		}
		m.tick()
	}
}
