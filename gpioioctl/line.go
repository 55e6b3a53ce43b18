// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioioctl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unsafe"

	"periph.io/x/conn/v3/gpio"
)

// ErrTimeout is returned by Line.Wait when the timeout expired or Halt was
// called.
var ErrTimeout = errors.New("gpioioctl: wait timed out")

// Event is one edge reported by the kernel.
type Event struct {
	// Timestamp is from CLOCK_MONOTONIC unless the kernel was asked otherwise.
	Timestamp time.Duration
	Edge      gpio.Edge
	// Offset is the line offset on the chip.
	Offset uint32
	// Seqno is the sequence number of the event for this line.
	Seqno uint32
}

func (e Event) String() string {
	return fmt.Sprintf("line %d %s @%s #%d", e.Offset, e.Edge, e.Timestamp, e.Seqno)
}

// eventSize is the size of struct gpio_v2_line_event.
const eventSize = int(unsafe.Sizeof(gpio_v2_line_event{}))

// Line is a line requested with edge detection.
type Line struct {
	number uint32
	edge   gpio.Edge
	pull   gpio.Pull
	chip   *Chip

	mu sync.Mutex
	f  *os.File
}

func (line *Line) String() string {
	return fmt.Sprintf("%s-%d", line.chip.name, line.number)
}

// Number returns the line offset on the chip. It has no relationship to
// the pin numbering of a board header.
func (line *Line) Number() int {
	return int(line.number)
}

// Edge returns the requested edge.
func (line *Line) Edge() gpio.Edge {
	return line.edge
}

// Wait blocks until the kernel reports an edge on the line.
//
// A timeout of 0 waits forever. ErrTimeout is returned on timeout or after
// Halt. os.ErrClosed is returned once Close was called.
func (line *Line) Wait(timeout time.Duration) (Event, error) {
	line.mu.Lock()
	f := line.f
	line.mu.Unlock()
	if f == nil {
		return Event{}, os.ErrClosed
	}
	var deadline time.Time
	if timeout != 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := f.SetReadDeadline(deadline); err != nil {
		return Event{}, fmt.Errorf("gpioioctl: %s: %w", line, err)
	}
	var buf [eventSize]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return Event{}, ErrTimeout
		}
		return Event{}, err
	}
	return parseEvent(buf[:])
}

// Halt interrupts a pending Wait.
func (line *Line) Halt() error {
	line.mu.Lock()
	defer line.mu.Unlock()
	if line.f == nil {
		return nil
	}
	return line.f.SetReadDeadline(time.UnixMilli(0))
}

// Close releases the line. A pending Wait returns os.ErrClosed.
func (line *Line) Close() error {
	line.mu.Lock()
	f := line.f
	line.f = nil
	line.mu.Unlock()
	if f == nil {
		return nil
	}
	line.chip.forget(line)
	return f.Close()
}

// parseEvent decodes a struct gpio_v2_line_event.
func parseEvent(b []byte) (Event, error) {
	var raw gpio_v2_line_event
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &raw); err != nil {
		return Event{}, fmt.Errorf("gpioioctl: decoding event: %w", err)
	}
	e := Event{
		Timestamp: time.Duration(raw.Timestamp_ns),
		Offset:    raw.Offset,
		Seqno:     raw.Seqno,
	}
	switch raw.Id {
	case _GPIO_V2_LINE_EVENT_RISING_EDGE:
		e.Edge = gpio.RisingEdge
	case _GPIO_V2_LINE_EVENT_FALLING_EDGE:
		e.Edge = gpio.FallingEdge
	default:
		return e, fmt.Errorf("gpioioctl: unknown event id %d", raw.Id)
	}
	return e, nil
}
