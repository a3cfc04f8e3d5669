package core

import (
	"math"
	"sync/atomic"
)

// atomicFloat is a float64 published as a single 64-bit word so the tick
// interrupt never observes a partially written value
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}
