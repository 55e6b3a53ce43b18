// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bcm283xtest is meant to be used to test drivers using the BCM283x
// GPIO block without hardware.
package bcm283xtest

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/simon/bcm283x"
	"periph.io/x/simon/mmio"
)

// Write is one register write recorded by Fake.
type Write struct {
	Offset uint32
	Value  uint32
}

// Fake is a register window emulating the GPIO block.
//
// Output set/clear registers only act on 1 bits, the level registers reflect
// the output latch for output pins and the external drive or pull resistor
// for input pins, and a rising pull clock bit latches the pending pull code.
//
// Fake is safe for concurrent use.
type Fake struct {
	mu     sync.Mutex
	regs   [bcm283x.WindowLength / 4]uint32
	latch  uint64
	pull   [bcm283x.NumPins]gpio.Pull
	driven map[bcm283x.Pin]gpio.Level
	writes []Write
}

// NewFake returns a Fake with every pin as a floating input.
func NewFake() *Fake {
	f := &Fake{driven: map[bcm283x.Pin]gpio.Level{}}
	for i := range f.pull {
		f.pull[i] = gpio.Float
	}
	return f
}

// Read32 implements mmio.Registers.
func (f *Fake) Read32(offset uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch offset {
	case bcm283x.GPLEV0:
		return uint32(f.levels())
	case bcm283x.GPLEV0 + 4:
		return uint32(f.levels() >> 32)
	}
	return f.regs[offset/4]
}

// Write32 implements mmio.Registers.
func (f *Fake) Write32(offset uint32, v uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, Write{offset, v})
	switch offset {
	case bcm283x.GPSET0:
		f.latch |= uint64(v)
	case bcm283x.GPSET0 + 4:
		f.latch |= uint64(v) << 32
	case bcm283x.GPCLR0:
		f.latch &^= uint64(v)
	case bcm283x.GPCLR0 + 4:
		f.latch &^= uint64(v) << 32
	case bcm283x.GPLEV0, bcm283x.GPLEV0 + 4:
		// Read only.
	case bcm283x.GPPUDCLK0, bcm283x.GPPUDCLK0 + 4:
		rising := v &^ f.regs[offset/4]
		first := 32 * ((offset - bcm283x.GPPUDCLK0) / 4)
		for bit := uint32(0); bit < 32; bit++ {
			if p := first + bit; rising&(1<<bit) != 0 && p < bcm283x.NumPins {
				f.pull[p] = pullFromCode(f.regs[bcm283x.GPPUD/4])
			}
		}
		f.regs[offset/4] = v
	default:
		f.regs[offset/4] = v
	}
}

// Pull returns the pull resistor latched for p.
func (f *Fake) Pull(p bcm283x.Pin) gpio.Pull {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pull[p]
}

// Drive simulates an external signal on p.
func (f *Fake) Drive(p bcm283x.Pin, l gpio.Level) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.driven[p] = l
}

// Release stops driving p externally.
func (f *Fake) Release(p bcm283x.Pin) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.driven, p)
}

// Output returns the output latch of p, regardless of its function.
func (f *Fake) Output(p bcm283x.Pin) gpio.Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latch&(1<<uint(p)) != 0
}

// Writes returns a copy of every register write so far.
func (f *Fake) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Write, len(f.writes))
	copy(out, f.writes)
	return out
}

// Register returns the raw stored value at offset, bypassing the level
// emulation.
func (f *Fake) Register(offset uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[offset/4]
}

// levels must be called with mu held.
func (f *Fake) levels() uint64 {
	var out uint64
	for i := 0; i < bcm283x.NumPins; i++ {
		p := bcm283x.Pin(i)
		fsel := (f.regs[bcm283x.FunctionSelectOffset(p)/4] >> bcm283x.FunctionSelectShift(p)) & 7
		var l bool
		if fsel == uint32(bcm283x.Out) {
			l = f.latch&(1<<uint(i)) != 0
		} else if d, ok := f.driven[p]; ok {
			l = bool(d)
		} else {
			l = f.pull[i] == gpio.PullUp
		}
		if l {
			out |= 1 << uint(i)
		}
	}
	return out
}

func pullFromCode(code uint32) gpio.Pull {
	switch code & 3 {
	case 1:
		return gpio.PullDown
	case 2:
		return gpio.PullUp
	default:
		return gpio.Float
	}
}

var _ mmio.Registers = &Fake{}
