// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/simon/mmio"
)

// Register offsets from the start of the GPIO block.
const (
	GPFSEL0   = 0x00 // Function select, 10 pins per register, 3 bits each.
	GPSET0    = 0x1C // Output set, write 1 to set.
	GPCLR0    = 0x28 // Output clear, write 1 to clear.
	GPLEV0    = 0x34 // Level, read only.
	GPPUD     = 0x94 // Pull-up/down control, shared by all pins.
	GPPUDCLK0 = 0x98 // Pull-up/down clock, 1 bit per pin.

	// WindowLength is the part of the GPIO block used by this package.
	WindowLength = 0xB4
)

// NumPins is the number of GPIO on the chip.
const NumPins = 54

// Pull codes written to GPPUD.
const (
	pudOff  = 0
	pudDown = 1
	pudUp   = 2
)

// The datasheet asks for 150 cycles of setup and hold around the pull clock.
const (
	pullSetup = time.Microsecond
	pullHold  = time.Microsecond
)

// ErrInvalidPin is returned for a GPIO number that is not on the chip.
var ErrInvalidPin = errors.New("bcm283x: invalid pin")

// Pin is a GPIO number, 0 to 53.
type Pin uint8

func (p Pin) String() string {
	return "GPIO" + strconv.Itoa(int(p))
}

// Valid returns true if p exists on the chip.
func (p Pin) Valid() bool {
	return p < NumPins
}

// Direction is the configured function of a pin.
type Direction uint8

const (
	In  Direction = 0
	Out Direction = 1
)

func (d Direction) String() string {
	if d == Out {
		return "Out"
	}
	return "In"
}

// FunctionSelectOffset returns the offset of the GPFSELn register holding p.
func FunctionSelectOffset(p Pin) uint32 {
	return GPFSEL0 + 4*(uint32(p)/10)
}

// FunctionSelectShift returns the position of the 3 bits field of p within
// its GPFSELn register.
func FunctionSelectShift(p Pin) uint32 {
	return 3 * (uint32(p) % 10)
}

// BankOffset returns the offset of the register of the family starting at
// base (GPSET0, GPCLR0, GPLEV0, GPPUDCLK0) that holds p.
func BankOffset(base uint32, p Pin) uint32 {
	return base + 4*(uint32(p)/32)
}

// BankBit returns the bit of p within its 1 bit per pin register.
func BankBit(p Pin) uint32 {
	return uint32(p) % 32
}

// Controller accesses the GPIO block through a register window.
//
// Controller is not safe for concurrent use.
type Controller struct {
	r mmio.Registers
	// Delay is used for the pull handshake setup and hold times.
	Delay func(time.Duration)
}

// New returns a Controller using r, which must start at the GPIO block.
func New(r mmio.Registers) *Controller {
	return &Controller{r: r, Delay: time.Sleep}
}

// SetDirection configures p as a plain input or output.
//
// Only the 3 bits field of p is modified in the GPFSELn register.
func (c *Controller) SetDirection(p Pin, d Direction) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPin, p)
	}
	off := FunctionSelectOffset(p)
	shift := FunctionSelectShift(p)
	v := c.r.Read32(off) &^ (7 << shift)
	if d == Out {
		v |= 1 << shift
	}
	c.r.Write32(off, v)
	return nil
}

// Function returns the raw 3 bits function code of p.
func (c *Controller) Function(p Pin) uint32 {
	if !p.Valid() {
		return 0
	}
	return (c.r.Read32(FunctionSelectOffset(p)) >> FunctionSelectShift(p)) & 7
}

// SetPull configures the pull resistor of p.
//
// gpio.Float disables the resistor. gpio.PullNoChange does nothing.
//
// The GPPUD and GPPUDCLKn registers are shared by all pins, so two calls
// must never run concurrently.
func (c *Controller) SetPull(p Pin, pull gpio.Pull) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPin, p)
	}
	var code uint32
	switch pull {
	case gpio.PullNoChange:
		return nil
	case gpio.Float:
		code = pudOff
	case gpio.PullDown:
		code = pudDown
	case gpio.PullUp:
		code = pudUp
	default:
		return fmt.Errorf("bcm283x: unsupported pull %s", pull)
	}
	clk := BankOffset(GPPUDCLK0, p)
	mask := uint32(1) << BankBit(p)
	c.r.Write32(GPPUD, code)
	c.Delay(pullSetup)
	c.r.Write32(clk, c.r.Read32(clk)|mask)
	c.Delay(pullHold)
	c.r.Write32(GPPUD, pudOff)
	c.r.Write32(clk, c.r.Read32(clk)&^mask)
	return nil
}

// Out drives p. The pin must be configured as an output to have an effect.
//
// GPSETn and GPCLRn ignore 0 bits so a single write is enough.
func (c *Controller) Out(p Pin, l gpio.Level) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPin, p)
	}
	reg := uint32(GPCLR0)
	if l == gpio.High {
		reg = GPSET0
	}
	c.r.Write32(BankOffset(reg, p), 1<<BankBit(p))
	return nil
}

// Read returns the current level of p.
func (c *Controller) Read(p Pin) gpio.Level {
	if !p.Valid() {
		return gpio.Low
	}
	return gpio.Level((c.r.Read32(BankOffset(GPLEV0, p))>>BankBit(p))&1 == 1)
}
