// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiodrv

import (
	"fmt"
	"io"
	"sync"

	"periph.io/x/simon/bcm283x"
)

// Handle is an open session on the device.
//
// Reading drains the symbols recorded since the last read. Writing "LEDn s"
// turns lamp n on when s is '1' and off otherwise.
//
// Handle implements io.ReadWriteCloser and io.ReaderAt.
type Handle struct {
	d *Driver

	mu     sync.Mutex
	off    int64
	closed bool
}

// Open returns a new Handle. Any number of handles can be open at once.
func (d *Driver) Open() (*Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closedLocked() {
		return nil, ErrClosed
	}
	d.handles++
	logf("gpiodrv: open, %d handles", d.handles)
	return &Handle{d: d}, nil
}

// Read drains the pending sequence into p.
//
// Only the first read of a handle returns data; the handle offset is
// advanced by the number of symbols returned and any later read returns
// io.EOF. A read with nothing pending returns io.EOF without advancing the
// offset, so the handle can be polled until the first symbol arrives.
//
// ErrTransferFault is returned and nothing is drained if p is shorter than
// the pending sequence.
func (h *Handle) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, ErrClosed
	}
	n, err := h.d.drain(p, h.off)
	h.off += int64(n)
	return n, err
}

// ReadAt drains the pending sequence into p when off is 0. Any other offset
// returns io.EOF.
//
// As required by io.ReaderAt, io.EOF is also returned alongside the
// sequence when it is shorter than p.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}
	n, err := h.d.drain(p, off)
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

// Write executes a lamp command.
//
// A payload that is not a lamp command has no effect and is reported as
// written, unless Config.Strict is set in which case ErrMalformedCommand is
// returned. ErrTransferFault is returned if p is larger than TransferSize.
func (h *Handle) Write(p []byte) (int, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}
	return h.d.command(p)
}

// Close closes the handle. It is safe to call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.d.mu.Lock()
	h.d.handles--
	h.d.mu.Unlock()
	return nil
}

// drain copies the pending sequence into p through the transfer buffer and
// clears it.
func (d *Driver) drain(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closedLocked() {
		return 0, ErrClosed
	}
	if off != 0 {
		return 0, io.EOF
	}
	n := d.seq.len()
	if n == 0 {
		return 0, io.EOF
	}
	if len(p) < n {
		return 0, fmt.Errorf("%w: %d bytes pending, buffer of %d", ErrTransferFault, n, len(p))
	}
	clear(d.xfer)
	copy(d.xfer, d.seq.bytes())
	d.seq.reset()
	copy(p, d.xfer[:n])
	logf("gpiodrv: read %q", d.xfer[:n])
	return n, nil
}

// command parses p through the transfer buffer and drives the lamp.
func (d *Driver) command(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closedLocked() {
		return 0, ErrClosed
	}
	if len(p) > TransferSize {
		return 0, fmt.Errorf("%w: %d bytes written, maximum %d", ErrTransferFault, len(p), TransferSize)
	}
	clear(d.xfer)
	copy(d.xfer, p)
	c, ok := parseCommand(d.xfer)
	if !ok {
		if d.cfg.Strict {
			return 0, fmt.Errorf("%w: %q", ErrMalformedCommand, p)
		}
		logf("gpiodrv: ignored %q", p)
		return len(p), nil
	}
	if err := d.ctl.Out(bcm283x.Pin(d.cfg.Lamps[c.lamp]), c.level); err != nil {
		return 0, err
	}
	logf("gpiodrv: %s", c)
	return len(p), nil
}

var _ io.ReadWriteCloser = &Handle{}
var _ io.ReaderAt = &Handle{}
