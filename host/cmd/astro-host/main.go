package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"astrostepper/core"
	"astrostepper/host/mcu"
	"astrostepper/host/serial"
	"astrostepper/host/sim"
	"astrostepper/standalone/config"
)

var (
	device   = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud     = flag.Int("baud", serial.DefaultBaud, "Baud rate (ignored for USB CDC)")
	simulate = flag.Bool("sim", false, "Run against an in-process simulated board")
	cfgPath  = flag.String("config", "", "Machine config for the simulator (YAML or JSON)")
	logLevel = flag.String("log-level", "info", "Simulator log level (debug, info, warn, error)")
	verbose  = flag.Bool("verbose", false, "Echo every line sent")
)

func main() {
	flag.Parse()

	fmt.Println("AstroStepper Host - Stepper Console Client")
	fmt.Println("==========================================")

	client := mcu.NewMCU()

	if *simulate {
		board, err := startSimulator()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to start simulator: %v\n", err)
			os.Exit(1)
		}
		client.Attach(board)
		fmt.Println("Simulated board started")
	} else {
		fmt.Printf("Connecting to board on %s...\n", *device)
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		if err := client.ConnectWithConfig(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Connected successfully!")
	}
	defer client.Close()

	if info, err := client.Info(); err == nil {
		fmt.Printf("Firmware %s %s, %s motors at %s Hz\n",
			info["FIRMWARE_NAME"], info["FIRMWARE_VERSION"], info["MOTORS"], info["TICK_FREQ"])
	} else {
		fmt.Fprintf(os.Stderr, "Warning: M115 failed: %v\n", err)
	}

	// Interactive command loop
	fmt.Println("Enter G/M-codes (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return

		case "help", "?":
			printHelp()

		case "pos":
			positions, err := client.Positions()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			for i := 0; i < len(positions); i++ {
				axis := "ABCD"[i]
				fmt.Printf("  %c: %d steps\n", axis, positions[axis])
			}

		case "wait":
			if err := client.WaitIdle(100*time.Millisecond, 5*time.Minute); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		default:
			if *verbose {
				fmt.Printf(">> %s\n", line)
			}
			reply, err := client.Send(line)
			for _, text := range reply {
				fmt.Println(text)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

// startSimulator builds a simulated board and drives it from the wall clock
func startSimulator() (*sim.Machine, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", *logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.DefaultTelescopeConfig()
	if *cfgPath != "" {
		loaded, err := config.LoadFile(*cfgPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	core.SetDebugWriter(sim.LogDebugWriter(logger))
	core.InitAsyncDebug()

	board, err := sim.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	go board.Run(context.Background())
	return board, nil
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  G0/G1 A.. B..   - Move axes (steps)")
	fmt.Println("  G90/G91         - Absolute/relative targets")
	fmt.Println("  G92 A..         - Set position")
	fmt.Println("  M700 A..        - Run at constant speed (steps/s)")
	fmt.Println("  M201/M203 A..   - Set acceleration/max speed")
	fmt.Println("  M18/M84 [A..]   - Stop and disable")
	fmt.Println("  M114/M115/M122  - Positions, firmware info, status")
	fmt.Println("  M410            - Stop all motors")
	fmt.Println("  pos             - Print positions")
	fmt.Println("  wait            - Wait until all motors are idle")
	fmt.Println("  quit/exit/q     - Exit the program")
	fmt.Println()
}
