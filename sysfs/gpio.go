// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sysfs delivers GPIO edges through the legacy gpio sysfs interface.
//
// It is an alternative to the GPIO character device for kernels built without
// it. gpio sysfs doesn't expose the pull resistors and reports no timestamp,
// so the pull must be configured through the registers.
//
// See https://www.kernel.org/doc/Documentation/gpio/sysfs.txt
package sysfs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Root is the gpio sysfs directory.
var Root = "/sys/class/gpio/"

// ExportTimeout is how long Watch waits for the value file of a freshly
// exported pin to become accessible.
var ExportTimeout = 5 * time.Second

// ErrUnsupported is returned on non-linux hosts.
var ErrUnsupported = errors.New("sysfs-gpio: not supported on this platform")

// Pin is a GPIO exported through sysfs and armed for edge detection.
type Pin struct {
	number int
	root   string // Something like /sys/class/gpio/gpio%d/
	edge   gpio.Edge

	mu       sync.Mutex
	closed   bool
	exported bool // Watch exported the pin and Close unexports it.
	fValue   *os.File
	ev       event

	// waitMu is held by Wait. Close takes it before releasing the files.
	waitMu sync.Mutex
	buf    [4]byte
}

// Watch exports the pin number, configures it as an input and arms edge
// detection.
func Watch(number int, edge gpio.Edge) (*Pin, error) {
	p := &Pin{number: number, root: fmt.Sprintf("%sgpio%d/", Root, number), edge: edge}
	if edge == gpio.NoEdge {
		return nil, p.wrap(errors.New("an edge is required"))
	}
	if err := p.export(); err != nil {
		return nil, p.wrap(err)
	}
	if err := p.configure(); err != nil {
		p.unexport()
		return nil, p.wrap(err)
	}
	f, err := os.Open(p.root + "value")
	if err != nil {
		p.unexport()
		return nil, p.wrap(err)
	}
	p.fValue = f
	if err := p.ev.open(f); err != nil {
		_ = f.Close()
		p.unexport()
		return nil, p.wrap(err)
	}
	// Flush the edge accumulated while arming.
	_, _ = p.read()
	p.ev.flush()
	return p, nil
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return fmt.Sprintf("GPIO%d", p.number)
}

// Number returns the GPIO number.
func (p *Pin) Number() int {
	return p.number
}

// Edge returns the edge being detected.
func (p *Pin) Edge() gpio.Edge {
	return p.edge
}

// Wait blocks until the next edge and returns the level read right after it.
//
// It returns os.ErrClosed once Close was called.
func (p *Pin) Wait() (gpio.Level, error) {
	p.waitMu.Lock()
	defer p.waitMu.Unlock()
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return gpio.Low, os.ErrClosed
	}
	if err := p.ev.wait(); err != nil {
		if errors.Is(err, os.ErrClosed) {
			return gpio.Low, err
		}
		return gpio.Low, p.wrap(err)
	}
	return p.read()
}

// Close disables edge detection and releases the pin. It unblocks a pending
// Wait.
func (p *Pin) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	p.ev.wake()
	p.waitMu.Lock()
	defer p.waitMu.Unlock()
	err := p.ev.close()
	if err2 := p.fValue.Close(); err == nil {
		err = err2
	}
	if err2 := writeFile(p.root+"edge", bNone); err == nil {
		err = err2
	}
	p.unexport()
	if err != nil {
		return p.wrap(err)
	}
	return nil
}

// export makes the pin directory appear if it's not already there.
func (p *Pin) export() error {
	if _, err := os.Stat(p.root + "value"); err == nil {
		return nil
	}
	if err := writeFile(Root+"export", []byte(strconv.Itoa(p.number))); err != nil && !errors.Is(err, syscall.EBUSY) {
		if os.IsPermission(err) {
			return fmt.Errorf("need more access, try as root or setup udev rules: %w", err)
		}
		return err
	}
	p.exported = true
	// The virtual file creation is synchronous when writing to /export, but
	// udev may still be changing its mode.
	var err error
	for start := time.Now(); time.Since(start) < ExportTimeout; time.Sleep(time.Millisecond) {
		var f *os.File
		if f, err = os.Open(p.root + "value"); err == nil {
			return f.Close()
		}
	}
	p.unexport()
	return err
}

func (p *Pin) unexport() {
	if !p.exported {
		return
	}
	_ = writeFile(Root+"unexport", []byte(strconv.Itoa(p.number)))
	p.exported = false
}

// configure sets the direction and the edge.
func (p *Pin) configure() error {
	if err := writeFile(p.root+"direction", bIn); err != nil {
		return err
	}
	// Reset to none first, otherwise edges are not always delivered.
	if err := writeFile(p.root+"edge", bNone); err != nil {
		return err
	}
	var b []byte
	switch p.edge {
	case gpio.RisingEdge:
		b = bRising
	case gpio.FallingEdge:
		b = bFalling
	default:
		b = bBoth
	}
	return writeFile(p.root+"edge", b)
}

// read consumes the pending edge and returns the level.
func (p *Pin) read() (gpio.Level, error) {
	n, err := p.fValue.ReadAt(p.buf[:], 0)
	if n == 0 {
		if err == nil {
			err = errors.New("empty value")
		}
		return gpio.Low, p.wrap(err)
	}
	return p.buf[0] == '1', nil
}

func (p *Pin) wrap(err error) error {
	return fmt.Errorf("sysfs-gpio (%s): %w", p, err)
}

// writeFile writes b to an existing pseudo-file.
func writeFile(path string, b []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	_, err = f.Write(b)
	if err2 := f.Close(); err == nil {
		err = err2
	}
	return err
}

var (
	bIn      = []byte("in")
	bNone    = []byte("none")
	bRising  = []byte("rising")
	bFalling = []byte("falling")
	bBoth    = []byte("both")
)
