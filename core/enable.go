package core

import "errors"

var ErrEnablePolarity = errors.New("shared enable pin configured with different polarity")

// enableLine is a driver enable output. Several motors may share one line;
// the pin stays asserted while any of them holds it. Application context only.
type enableLine struct {
	pin       GPIOPin
	activeLow bool
	gpio      GPIODriver
	holders   int
}

func (l *enableLine) acquire() {
	l.holders++
	if l.holders == 1 {
		l.gpio.SetPin(l.pin, !l.activeLow)
	}
}

func (l *enableLine) release() {
	if l.holders == 0 {
		return
	}
	l.holders--
	if l.holders == 0 {
		l.gpio.SetPin(l.pin, l.activeLow)
	}
}
