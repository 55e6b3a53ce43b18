// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioioctl

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// DefaultChip is the character device of the main GPIO controller on a
// Raspberry Pi.
const DefaultChip = "/dev/gpiochip0"

// ErrUnsupported is returned on operating systems without the GPIO character
// device.
var ErrUnsupported = errors.New("gpioioctl: not supported on this OS")

// The consumer name to use for line requests. Initialized in init()
var consumer []byte

// Chip is an open GPIO character device.
type Chip struct {
	path  string
	name  string
	label string
	// The number of lines this device supports.
	lineCount int

	mu    sync.Mutex
	file  *os.File
	lines []*Line
}

// Open opens the /dev/gpiochip* character device at p and reads the chip
// information.
func Open(p string) (*Chip, error) {
	f, err := os.OpenFile(p, os.O_RDONLY, 0400)
	if err != nil {
		return nil, fmt.Errorf("gpioioctl: opening %s: %w", p, err)
	}
	var info gpiochip_info
	if err := ioctl_gpiochip_info(f.Fd(), &info); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("gpioioctl: %s: %w", p, err)
	}
	chip := &Chip{
		path:      p,
		name:      strings.Trim(string(info.name[:]), "\x00"),
		label:     strings.Trim(string(info.label[:]), "\x00"),
		lineCount: int(info.lines),
		file:      f,
	}
	if len(chip.label) == 0 {
		chip.label = chip.name
	}
	return chip, nil
}

func (chip *Chip) String() string {
	return fmt.Sprintf("%s(%s)", chip.name, chip.label)
}

// Name returns the kernel name of the chip.
func (chip *Chip) Name() string {
	return chip.name
}

// Path returns the character device path.
func (chip *Chip) Path() string {
	return chip.path
}

// Label returns the kernel label of the chip.
func (chip *Chip) Label() string {
	return chip.label
}

// LineCount returns the number of lines on the chip.
func (chip *Chip) LineCount() int {
	return chip.lineCount
}

// Watch requests the line at offset as an input with edge detection.
//
// The returned Line must be closed to release the line to the kernel.
func (chip *Chip) Watch(offset int, pull gpio.Pull, edge gpio.Edge) (*Line, error) {
	if offset < 0 || offset >= chip.lineCount {
		return nil, fmt.Errorf("gpioioctl: %s: line %d out of range", chip.name, offset)
	}
	if edge == gpio.NoEdge {
		return nil, fmt.Errorf("gpioioctl: %s: line %d: edge required", chip.name, offset)
	}
	chip.mu.Lock()
	defer chip.mu.Unlock()
	if chip.file == nil {
		return nil, fmt.Errorf("gpioioctl: %s: %w", chip.name, os.ErrClosed)
	}
	req := newLineRequest(uint32(offset), getFlags(LineInput, edge, pull))
	if err := ioctl_gpio_v2_line_request(chip.file.Fd(), req); err != nil {
		return nil, fmt.Errorf("gpioioctl: %s: line %d: %w", chip.name, offset, err)
	}
	if err := nonblockWrapper(int(req.fd), true); err != nil {
		_ = closeWrapper(int(req.fd))
		return nil, fmt.Errorf("gpioioctl: %s: line %d: %w", chip.name, offset, err)
	}
	line := &Line{
		number: uint32(offset),
		edge:   edge,
		pull:   pull,
		chip:   chip,
		// The file is kept so the runtime poller can interrupt reads.
		f: os.NewFile(uintptr(req.fd), fmt.Sprintf("gpio-%d", offset)),
	}
	chip.lines = append(chip.lines, line)
	return line, nil
}

// Close releases every watched line and the chip.
func (chip *Chip) Close() error {
	chip.mu.Lock()
	lines := chip.lines
	chip.lines = nil
	f := chip.file
	chip.file = nil
	chip.mu.Unlock()
	for _, l := range lines {
		_ = l.Close()
	}
	if f == nil {
		return nil
	}
	return f.Close()
}

func (chip *Chip) forget(line *Line) {
	chip.mu.Lock()
	defer chip.mu.Unlock()
	for i, l := range chip.lines {
		if l == line {
			chip.lines = append(chip.lines[:i], chip.lines[i+1:]...)
			return
		}
	}
}

// LineDir is the requested direction of a line.
type LineDir uint32

const (
	LineDirNotSet LineDir = 0
	LineInput     LineDir = 1
	LineOutput    LineDir = 2
)

// getFlags accepts a set of GPIO configuration values and returns an
// appropriate uint64 ioctl gpio flag.
func getFlags(dir LineDir, edge gpio.Edge, pull gpio.Pull) uint64 {
	var flags uint64
	if dir == LineInput {
		flags |= _GPIO_V2_LINE_FLAG_INPUT
	} else if dir == LineOutput {
		flags |= _GPIO_V2_LINE_FLAG_OUTPUT
	}
	switch pull {
	case gpio.PullUp:
		flags |= _GPIO_V2_LINE_FLAG_BIAS_PULL_UP
	case gpio.PullDown:
		flags |= _GPIO_V2_LINE_FLAG_BIAS_PULL_DOWN
	case gpio.Float:
		flags |= _GPIO_V2_LINE_FLAG_BIAS_DISABLED
	}
	switch edge {
	case gpio.RisingEdge:
		flags |= _GPIO_V2_LINE_FLAG_EDGE_RISING
	case gpio.FallingEdge:
		flags |= _GPIO_V2_LINE_FLAG_EDGE_FALLING
	case gpio.BothEdges:
		flags |= _GPIO_V2_LINE_FLAG_EDGE_RISING | _GPIO_V2_LINE_FLAG_EDGE_FALLING
	}
	return flags
}

func newLineRequest(offset uint32, flags uint64) *gpio_v2_line_request {
	var req gpio_v2_line_request
	req.offsets[0] = offset
	req.num_lines = 1
	req.config.flags = flags
	copy(req.consumer[:], consumer)
	return &req
}

func init() {
	// Init our consumer name. It's used when a line is requested, and
	// allows utility programs like gpioinfo to find out who has a line
	// open.
	s := fmt.Sprintf("%s@%d", path.Base(os.Args[0]), os.Getpid())
	b := []byte(s)
	if len(b) >= _GPIO_MAX_NAME_SIZE {
		b = b[:_GPIO_MAX_NAME_SIZE-1]
	}
	consumer = b
}
