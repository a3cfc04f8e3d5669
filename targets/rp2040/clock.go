//go:build rp2040

package main

import (
	"device/rp"
)

// RP2040Clock reads the 64-bit 1MHz hardware timer
type RP2040Clock struct{}

// Micros returns the low 32 bits of the microsecond counter
func (RP2040Clock) Micros() uint32 {
	return rp.TIMER.TIMERAWL.Get()
}

// Millis returns the uptime in milliseconds, truncated to 32 bits
func (RP2040Clock) Millis() uint32 {
	return uint32(hardwareUptime() / 1000)
}

// hardwareUptime reads the full 64-bit RP2040 hardware timer
func hardwareUptime() uint64 {
	// Must read high first, then low, then high again to detect rollover
	for {
		high1 := rp.TIMER.TIMERAWH.Get()
		low := rp.TIMER.TIMERAWL.Get()
		high2 := rp.TIMER.TIMERAWH.Get()

		// If high didn't change, we got a consistent reading
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}
