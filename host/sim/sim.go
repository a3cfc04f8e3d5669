// Package sim runs the firmware console on the host against simulated pins,
// time and tick interrupts. A Machine behaves like the serial port of a
// real board, so the same client code can drive either.
package sim

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"astrostepper/core"
	"astrostepper/standalone"
	"astrostepper/standalone/config"
)

var ErrClosed = errors.New("simulator closed")

// Machine is a simulated board. All methods are safe for concurrent use;
// console input and simulated time are serialized by one lock.
type Machine struct {
	mu       sync.Mutex
	mgr      *standalone.Manager
	gpio     *core.MemGPIO
	clock    *core.SimClock
	ticks    *core.ManualTickSource
	tickFreq uint32
	out      []byte
	closed   bool
	log      *slog.Logger
}

// New builds and starts a simulated board for cfg. The startup banner is
// queued for the first Read.
func New(cfg *config.MachineConfig, logger *slog.Logger) (*Machine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mgr, err := standalone.NewManagerWithConfig(cfg)
	if err != nil {
		return nil, err
	}

	s := &Machine{
		mgr:   mgr,
		gpio:  core.NewMemGPIO(),
		clock: &core.SimClock{},
		ticks: &core.ManualTickSource{},
		log:   logger,
	}

	err = mgr.Initialize(standalone.Platform{
		GPIO:  s.gpio,
		Clock: s.clock,
		Ticks: s.ticks,
	})
	if err != nil {
		return nil, err
	}
	if err := mgr.Start(); err != nil {
		return nil, err
	}

	s.tickFreq = s.ticks.Freq()
	s.collect()
	logger.Info("simulator ready",
		"name", cfg.Name,
		"motors", len(cfg.Motors),
		"tick_freq", s.tickFreq)
	return s, nil
}

// Advance runs ms milliseconds of simulated time, servicing the console
// loop once per millisecond
func (s *Machine) Advance(ms int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	perMS := int(s.tickFreq / 1000)
	for i := 0; i < ms; i++ {
		s.ticks.Fire(perMS)
		s.clock.Advance(1000)
		s.mgr.Service()
	}
	s.collect()
}

// Run advances simulated time in step with the wall clock until ctx ends
func (s *Machine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			// Catch up when the ticker falls behind
			ms := int(now.Sub(last) / time.Millisecond)
			if ms <= 0 {
				continue
			}
			last = last.Add(time.Duration(ms) * time.Millisecond)
			s.Advance(ms)
		}
	}
}

// Write feeds console input
func (s *Machine) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	for _, b := range p {
		if err := s.mgr.ProcessByte(b); err != nil {
			s.log.Debug("command failed", "err", err)
		}
	}
	s.collect()
	return len(p), nil
}

// Read returns queued console output. Like a serial port with a read
// timeout, it returns no data rather than blocking forever.
func (s *Machine) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	if len(s.out) == 0 {
		s.mu.Unlock()
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n := copy(p, s.out)
	s.out = append(s.out[:0], s.out[n:]...)
	s.mu.Unlock()
	return n, nil
}

// Flush discards unread output
func (s *Machine) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = s.out[:0]
	return nil
}

// Close stops every motor and rejects further I/O
func (s *Machine) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.mgr.Stop()
	s.closed = true
	return nil
}

// State returns a snapshot of every motor
func (s *Machine) State() *standalone.MachineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mgr.GetState()
}

// StepEdges returns the rising edges seen on a motor's step pin
func (s *Machine) StepEdges(pin core.GPIOPin) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gpio.RisingEdges(pin)
}

// Uptime returns the simulated time since start
func (s *Machine) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.clock.Millis()) * time.Millisecond
}

func (s *Machine) collect() {
	if out := s.mgr.GetOutput(); len(out) > 0 {
		s.out = append(s.out, out...)
	}
}

// LogDebugWriter routes firmware debug output to logger
func LogDebugWriter(logger *slog.Logger) core.DebugWriter {
	return func(msg string) {
		logger.Debug(msg, "source", "firmware")
	}
}
