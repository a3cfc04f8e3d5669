//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"runtime/interrupt"
	"sync/atomic"

	"astrostepper/core"
)

// The TinyGo runtime sleeps on ALARM0, the step tick uses ALARM1
const tickAlarm = 1

var (
	tickHandler func()
	tickPeriod  uint32 // microseconds
	tickNext    uint32
	tickStarted atomic.Bool
)

// AlarmTickSource drives the shared step tick from TIMER ALARM1
type AlarmTickSource struct{}

// Start arms ALARM1 to fire every 1e6/freq microseconds. The 1MHz timer
// limits freq to 1MHz and rounds the period down to whole microseconds.
func (AlarmTickSource) Start(freq uint32, handler func()) error {
	if freq == 0 || freq > 1000000 {
		return errors.New("tick frequency out of range")
	}
	if !tickStarted.CompareAndSwap(false, true) {
		return core.ErrTickSourceStarted
	}

	tickHandler = handler
	tickPeriod = 1000000 / freq

	irq := interrupt.New(rp.IRQ_TIMER_IRQ_1, alarmISR)
	irq.SetPriority(0x00) // highest, ahead of USB
	rp.TIMER.INTE.SetBits(1 << tickAlarm)
	irq.Enable()

	tickNext = rp.TIMER.TIMERAWL.Get() + tickPeriod
	rp.TIMER.ALARM1.Set(tickNext)
	return nil
}

// alarmISR acknowledges the alarm, re-arms it one period after the previous
// deadline so jitter does not accumulate, then runs the dispatcher
func alarmISR(interrupt.Interrupt) {
	rp.TIMER.INTR.Set(1 << tickAlarm)

	tickNext += tickPeriod
	// Running late by more than a period: skip ahead instead of firing a burst
	if int32(tickNext-rp.TIMER.TIMERAWL.Get()) <= 0 {
		tickNext = rp.TIMER.TIMERAWL.Get() + tickPeriod
	}
	rp.TIMER.ALARM1.Set(tickNext)

	tickHandler()
}
