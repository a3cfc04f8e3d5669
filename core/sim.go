package core

import (
	"sync"
	"sync/atomic"
)

// SimClock is a manually advanced clock for tests and the desktop simulator
type SimClock struct {
	us atomic.Uint64
}

// Micros returns the low 32 bits of the microsecond counter
func (c *SimClock) Micros() uint32 {
	return uint32(c.us.Load())
}

// Millis returns the low 32 bits of the millisecond counter
func (c *SimClock) Millis() uint32 {
	return uint32(c.us.Load() / 1000)
}

// Advance moves the clock forward by us microseconds
func (c *SimClock) Advance(us uint32) {
	c.us.Add(uint64(us))
}

// Set jumps the clock to an absolute microsecond value
func (c *SimClock) Set(us uint64) {
	c.us.Store(us)
}

// ManualTickSource is a TickSource whose ticks are fired by the caller
type ManualTickSource struct {
	handler atomic.Pointer[func()]
	freq    atomic.Uint32
}

// Start records the handler; a second call fails like a busy hardware timer
func (t *ManualTickSource) Start(freq uint32, handler func()) error {
	if !t.handler.CompareAndSwap(nil, &handler) {
		return ErrTickSourceStarted
	}
	t.freq.Store(freq)
	return nil
}

// Started reports whether a handler has been attached
func (t *ManualTickSource) Started() bool {
	return t.handler.Load() != nil
}

// Freq returns the frequency requested by Start
func (t *ManualTickSource) Freq() uint32 {
	return t.freq.Load()
}

// Fire invokes the handler n times
func (t *ManualTickSource) Fire(n int) {
	h := t.handler.Load()
	if h == nil {
		return
	}
	for i := 0; i < n; i++ {
		(*h)()
	}
}

// MemGPIO is an in-memory GPIODriver that records pin levels and edges
type MemGPIO struct {
	mu         sync.Mutex
	configured map[GPIOPin]bool
	levels     map[GPIOPin]bool
	rising     map[GPIOPin]int
	writes     map[GPIOPin]int
	failures   map[GPIOPin]error
}

// NewMemGPIO creates an empty in-memory driver
func NewMemGPIO() *MemGPIO {
	return &MemGPIO{
		configured: make(map[GPIOPin]bool),
		levels:     make(map[GPIOPin]bool),
		rising:     make(map[GPIOPin]int),
		writes:     make(map[GPIOPin]int),
		failures:   make(map[GPIOPin]error),
	}
}

// FailConfigure makes ConfigureOutput return err for pin
func (g *MemGPIO) FailConfigure(pin GPIOPin, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[pin] = err
}

func (g *MemGPIO) ConfigureOutput(pin GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failures[pin]; err != nil {
		return err
	}
	g.configured[pin] = true
	return nil
}

func (g *MemGPIO) SetPin(pin GPIOPin, value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if value && !g.levels[pin] {
		g.rising[pin]++
	}
	g.levels[pin] = value
	g.writes[pin]++
	return nil
}

// Configured reports whether pin was configured as an output
func (g *MemGPIO) Configured(pin GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.configured[pin]
}

// Level returns the last level written to pin
func (g *MemGPIO) Level(pin GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.levels[pin]
}

// RisingEdges returns the number of low-to-high transitions on pin
func (g *MemGPIO) RisingEdges(pin GPIOPin) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rising[pin]
}

// Writes returns the number of SetPin calls for pin
func (g *MemGPIO) Writes(pin GPIOPin) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writes[pin]
}
