package core

// StepperBackend defines the hardware abstraction for step pulse output
// Implementations can use GPIO, PIO, or other methods
type StepperBackend interface {
	// Init initializes the stepper hardware
	// stepPin: GPIO pin for step pulses
	// dirPin: GPIO pin for direction signal
	// invertStep: invert step pin polarity
	// invertDir: invert direction pin polarity
	Init(stepPin, dirPin GPIOPin, invertStep, invertDir bool) error

	// Step generates a single step pulse
	// Must handle pulse width timing internally
	// Should be fast (called from timer interrupt)
	Step()

	// SetDirection sets the direction output
	// dir: true = increasing position, false = decreasing
	SetDirection(dir bool)

	// Stop returns the step output to its idle level
	Stop()

	// GetName returns backend implementation name
	GetName() string
}

// BackendFactory creates a step backend for a newly registered motor
type BackendFactory func() StepperBackend
