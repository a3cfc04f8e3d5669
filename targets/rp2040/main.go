//go:build rp2040

package main

import (
	"machine"
	"time"

	"astrostepper/core"
	"astrostepper/standalone"
	"astrostepper/standalone/config"
	"astrostepper/targets/pio"
)

var (
	// Debug counters
	msgerrors      uint32
	linesProcessed uint32
)

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	// Initialize USB CDC immediately
	InitUSB()
	InitDebugUART()

	cfg := config.DefaultTelescopeConfig()

	manager, err := standalone.NewManagerWithConfig(cfg)
	if err != nil {
		fatalBlink()
	}

	err = manager.Initialize(standalone.Platform{
		GPIO:     NewRPGPIODriver(),
		Clock:    RP2040Clock{},
		Ticks:    AlarmTickSource{},
		Backends: pio.Backends,
	})
	if err != nil {
		core.DebugPrintln("[MAIN] init failed: " + err.Error())
		fatalBlink()
	}

	if cfg.Level.Enabled {
		if err := initLevel(manager, cfg.Level); err != nil {
			core.DebugPrintln("[MAIN] level sensor: " + err.Error())
		}
	}

	if err := manager.Start(); err != nil {
		return
	}

	// Flash LED 3 times to indicate the console is up
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < 3; i++ {
		led.High()
		time.Sleep(200 * time.Millisecond)
		led.Low()
		time.Sleep(200 * time.Millisecond)
	}

	// Main loop: stepping happens in the alarm interrupt, this loop only
	// feeds the console and runs the planners
	for {
		func() {
			// Recover from panics in the main loop to prevent a firmware crash
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					manager.EmergencyStop()
				}
			}()

			for USBAvailable() > 0 {
				data, err := USBRead()
				if err != nil {
					msgerrors++
					break
				}
				if data == '\n' {
					linesProcessed++
				}
				// Errors are already queued as replies
				manager.ProcessByte(data)
			}

			manager.Service()

			if output := manager.GetOutput(); len(output) > 0 {
				writeUSB(output)
			}
		}()

		// Yield to other goroutines
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB writes all of data, giving up on a disconnected host
func writeUSB(data []byte) {
	written := 0
	for written < len(data) {
		n, err := USBWriteBytes(data[written:])
		if err != nil || n == 0 {
			// Likely disconnect, drop stale output
			msgerrors++
			return
		}
		written += n
	}
}

// fatalBlink flashes the LED rapidly forever to indicate a startup error
func fatalBlink() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
