// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiodrv

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/simon/bcm283x"
)

// Pin is a lamp or a button.
//
// Pin implements gpio.PinIO. Lamps are fixed outputs and buttons fixed
// inputs with pull up; their edges are consumed by the driver.
type Pin struct {
	d    *Driver
	p    bcm283x.Pin
	name string
	lamp bool
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return p.name + "(" + p.p.String() + ")"
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number implements pin.Pin. It is the BCM283x GPIO number.
func (p *Pin) Number() int {
	return int(p.p)
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if p.d.closedLocked() {
		return "N/A"
	}
	switch p.d.ctl.Function(p.p) {
	case uint32(bcm283x.In):
		return "In/" + p.d.ctl.Read(p.p).String()
	case uint32(bcm283x.Out):
		return "Out/" + p.d.ctl.Read(p.p).String()
	default:
		return "Alt"
	}
}

// In implements gpio.PinIn.
//
// Only the configuration set by the driver is accepted.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if p.lamp {
		return errors.New("gpiodrv: " + p.name + " is an output")
	}
	if pull != gpio.PullNoChange && pull != gpio.PullUp {
		return errors.New("gpiodrv: " + p.name + ": pull is fixed to " + gpio.PullUp.String())
	}
	if edge != gpio.NoEdge && edge != gpio.FallingEdge {
		return errors.New("gpiodrv: " + p.name + ": edge is fixed to " + gpio.FallingEdge.String())
	}
	return nil
}

// Read implements gpio.PinIn.
func (p *Pin) Read() gpio.Level {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if p.d.closedLocked() {
		return gpio.Low
	}
	return p.d.ctl.Read(p.p)
}

// WaitForEdge implements gpio.PinIn.
//
// It always returns false, the edges are recorded by the driver and read
// through a Handle.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	if p.lamp {
		return gpio.PullNoChange
	}
	return gpio.PullUp
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.PullNoChange
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	if !p.lamp {
		return errors.New("gpiodrv: " + p.name + " is an input")
	}
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if p.d.closedLocked() {
		return ErrClosed
	}
	return p.d.ctl.Out(p.p, l)
}

// PWM implements gpio.PinOut.
func (p *Pin) PWM(gpio.Duty, physic.Frequency) error {
	return errors.New("gpiodrv: PWM is not supported")
}

func pinIOs(pins []*Pin) []gpio.PinIO {
	out := make([]gpio.PinIO, len(pins))
	for i, p := range pins {
		out[i] = p
	}
	return out
}

var _ gpio.PinIO = &Pin{}
