// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiodrv

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/simon/bcm283x"
	"periph.io/x/simon/gpioioctl"
	"periph.io/x/simon/sysfs"
)

// IRQ is an edge interrupt bound to a button.
type IRQ interface {
	// Number identifies the interrupt line.
	Number() int
	// Wait blocks until the next edge and returns its timestamp on the
	// monotonic clock, or 0 if unknown. It returns an error wrapping
	// os.ErrClosed once Close was called.
	Wait() (time.Duration, error)
	Close() error
}

// Binder binds edge interrupts to pins.
type Binder interface {
	Bind(p bcm283x.Pin, edge gpio.Edge) (IRQ, error)
	// Close releases the resources shared by the IRQs. It is called after
	// every IRQ was closed.
	Close() error
}

func newBinder(cfg *Config) Binder {
	if cfg.EdgeSource == EdgeSysfs {
		return &sysfsBinder{}
	}
	return &chipBinder{path: cfg.Chip}
}

// chipBinder delivers edges through a GPIO character device. The line
// offsets of the main chip match the BCM283x GPIO numbers.
type chipBinder struct {
	path string
	chip *gpioioctl.Chip
}

func (c *chipBinder) Bind(p bcm283x.Pin, edge gpio.Edge) (IRQ, error) {
	if c.chip == nil {
		chip, err := gpioioctl.Open(c.path)
		if err != nil {
			return nil, err
		}
		c.chip = chip
	}
	l, err := c.chip.Watch(int(p), gpio.PullUp, edge)
	if err != nil {
		return nil, err
	}
	return &lineIRQ{l}, nil
}

func (c *chipBinder) Close() error {
	if c.chip == nil {
		return nil
	}
	err := c.chip.Close()
	c.chip = nil
	return err
}

type lineIRQ struct {
	l *gpioioctl.Line
}

func (i *lineIRQ) Number() int {
	return i.l.Number()
}

func (i *lineIRQ) Wait() (time.Duration, error) {
	e, err := i.l.Wait(0)
	return e.Timestamp, err
}

func (i *lineIRQ) Close() error {
	return i.l.Close()
}

// sysfsBinder delivers edges through gpio sysfs.
type sysfsBinder struct{}

func (sysfsBinder) Bind(p bcm283x.Pin, edge gpio.Edge) (IRQ, error) {
	s, err := sysfs.Watch(int(p), edge)
	if err != nil {
		return nil, err
	}
	return &sysfsIRQ{s}, nil
}

func (sysfsBinder) Close() error {
	return nil
}

// sysfsIRQ reports no timestamp; the edge is stamped when dispatched.
type sysfsIRQ struct {
	p *sysfs.Pin
}

func (i *sysfsIRQ) Number() int {
	return i.p.Number()
}

func (i *sysfsIRQ) Wait() (time.Duration, error) {
	_, err := i.p.Wait()
	return 0, err
}

func (i *sysfsIRQ) Close() error {
	return i.p.Close()
}

// binding ties a button interrupt to the lamp it pulses.
type binding struct {
	button bcm283x.Pin
	lamp   bcm283x.Pin
	// index is the lamp index, used to derive the recorded symbol.
	index int
	irq   IRQ
}

func (b *binding) String() string {
	return fmt.Sprintf("%s->%s(irq %d)", b.button, b.lamp, b.irq.Number())
}

// Backoff between consecutive interrupt errors.
const (
	minErrBackoff = 10 * time.Millisecond
	maxErrBackoff = time.Second
)

// dispatch processes the edges of b one at a time until its IRQ is closed.
//
// Any other error is logged and the wait resumed, backing off while the
// errors repeat.
func (d *Driver) dispatch(b *binding) {
	defer d.wg.Done()
	var backoff time.Duration
	for {
		ts, err := b.irq.Wait()
		if err == nil {
			backoff = 0
			d.onEdge(b, ts)
			continue
		}
		if d.stopping.Load() || errors.Is(err, os.ErrClosed) {
			return
		}
		log.Printf("gpiodrv: %s: %v", b, err)
		if backoff != 0 {
			d.env.Delay(backoff)
			backoff = min(2*backoff, maxErrBackoff)
		} else {
			backoff = minErrBackoff
		}
	}
}

// onEdge runs the debounce filter, records the symbol and pulses the lamp.
//
// The lock is held for the whole pulse so no other edge, read or write is
// processed meanwhile.
func (d *Driver) onEdge(b *binding, ts time.Duration) {
	if ts == 0 {
		ts = d.env.Now()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closedLocked() {
		return
	}
	tick := uint64(ts / d.cfg.Tick())
	if !d.debounce.accept(tick) {
		d.stats.Rejected++
		logf("gpiodrv: %s: bounce at tick %d", b, tick)
		return
	}
	d.stats.Accepted++
	sym := symbolFor(b.index)
	if !d.seq.push(sym) {
		d.stats.Dropped++
		log.Printf("gpiodrv: %s: pending sequence full, dropped %q", b, sym)
	}
	_ = d.ctl.Out(b.lamp, gpio.High)
	d.env.Sleep(d.cfg.Pulse())
	_ = d.ctl.Out(b.lamp, gpio.Low)
	logf("gpiodrv: %s: accepted %q at tick %d", b, sym, tick)
}
