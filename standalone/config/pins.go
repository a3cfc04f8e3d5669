package config

import (
	"errors"
	"fmt"

	"astrostepper/core"
)

// MaxGPIO is the highest user GPIO number on the RP2040
const MaxGPIO = 29

var ErrInvalidPin = errors.New("invalid pin name")

// LookupPin resolves a "gpioN" pin name. An empty name resolves to core.NoPin.
func LookupPin(name string) (core.GPIOPin, error) {
	if name == "" {
		return core.NoPin, nil
	}
	if len(name) < 5 || !hasPrefixFold(name, "gpio") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPin, name)
	}

	n := 0
	for _, c := range name[4:] {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPin, name)
		}
		n = n*10 + int(c-'0')
		if n > MaxGPIO {
			return 0, fmt.Errorf("%w: %q out of range", ErrInvalidPin, name)
		}
	}
	return core.GPIOPin(n), nil
}

func hasPrefixFold(s, prefix string) bool {
	for i := 0; i < len(prefix); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != prefix[i] {
			return false
		}
	}
	return true
}
