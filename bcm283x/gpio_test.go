// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/simon/bcm283x"
	"periph.io/x/simon/bcm283x/bcm283xtest"
)

func newController() (*bcm283x.Controller, *bcm283xtest.Fake) {
	f := bcm283xtest.NewFake()
	c := bcm283x.New(f)
	c.Delay = func(time.Duration) {}
	return c, f
}

func TestFunctionSelect(t *testing.T) {
	data := []struct {
		pin    bcm283x.Pin
		offset uint32
		shift  uint32
	}{
		{0, 0x00, 0},
		{9, 0x00, 27},
		{10, 0x04, 0},
		{13, 0x04, 9},
		{19, 0x04, 27},
		{26, 0x08, 18},
		{39, 0x0C, 27},
		{40, 0x10, 0},
		{53, 0x14, 9},
	}
	for _, line := range data {
		assert.Equal(t, line.offset, bcm283x.FunctionSelectOffset(line.pin), "FunctionSelectOffset(%s)", line.pin)
		assert.Equal(t, line.shift, bcm283x.FunctionSelectShift(line.pin), "FunctionSelectShift(%s)", line.pin)
	}
}

func TestBank(t *testing.T) {
	data := []struct {
		base   uint32
		pin    bcm283x.Pin
		offset uint32
		bit    uint32
	}{
		{bcm283x.GPSET0, 6, 0x1C, 6},
		{bcm283x.GPSET0, 31, 0x1C, 31},
		{bcm283x.GPSET0, 32, 0x20, 0},
		{bcm283x.GPCLR0, 53, 0x2C, 21},
		{bcm283x.GPLEV0, 21, 0x34, 21},
		{bcm283x.GPPUDCLK0, 45, 0x9C, 13},
	}
	for _, line := range data {
		assert.Equal(t, line.offset, bcm283x.BankOffset(line.base, line.pin), "BankOffset(0x%X, %s)", line.base, line.pin)
		assert.Equal(t, line.bit, bcm283x.BankBit(line.pin), "BankBit(%s)", line.pin)
	}
}

func TestSetDirection_leavesOtherPins(t *testing.T) {
	c, f := newController()
	const pattern = 0x36DB6DB6
	for i := 0; i < bcm283x.NumPins; i++ {
		p := bcm283x.Pin(i)
		off := bcm283x.FunctionSelectOffset(p)
		shift := bcm283x.FunctionSelectShift(p)
		others := ^(uint32(7) << shift)
		f.Write32(off, pattern)

		require.NoError(t, c.SetDirection(p, bcm283x.Out))
		v := f.Read32(off)
		assert.Equal(t, uint32(1), (v>>shift)&7, "%s: field after Out", p)
		assert.Equal(t, uint32(pattern)&others, v&others, "%s: other pins modified by Out", p)

		require.NoError(t, c.SetDirection(p, bcm283x.In))
		v = f.Read32(off)
		assert.Equal(t, uint32(0), (v>>shift)&7, "%s: field after In", p)
		assert.Equal(t, uint32(pattern)&others, v&others, "%s: other pins modified by In", p)
	}
}

func TestOut_Read(t *testing.T) {
	c, _ := newController()
	for _, p := range []bcm283x.Pin{6, 13, 19, 26, 40} {
		require.NoError(t, c.SetDirection(p, bcm283x.Out))
		require.NoError(t, c.Out(p, gpio.High))
		assert.Equal(t, gpio.High, c.Read(p), "%s after Out(High)", p)
		require.NoError(t, c.Out(p, gpio.Low))
		assert.Equal(t, gpio.Low, c.Read(p), "%s after Out(Low)", p)
	}
}

func TestOut_singleWrite(t *testing.T) {
	c, f := newController()
	before := len(f.Writes())
	require.NoError(t, c.Out(33, gpio.High))
	require.NoError(t, c.Out(13, gpio.Low))
	want := []bcm283xtest.Write{
		{Offset: bcm283x.GPSET0 + 4, Value: 1 << 1},
		{Offset: bcm283x.GPCLR0, Value: 1 << 13},
	}
	assert.Equal(t, want, f.Writes()[before:])
}

func TestSetPull_handshake(t *testing.T) {
	f := bcm283xtest.NewFake()
	c := bcm283x.New(f)
	var delays int
	c.Delay = func(d time.Duration) {
		assert.Positive(t, d)
		delays++
	}
	// A stale clock bit on another pin must be preserved.
	f.Write32(bcm283x.GPPUDCLK0, 1<<3)
	before := len(f.Writes())

	require.NoError(t, c.SetPull(12, gpio.PullUp))
	want := []bcm283xtest.Write{
		{Offset: bcm283x.GPPUD, Value: 2},
		{Offset: bcm283x.GPPUDCLK0, Value: 1<<3 | 1<<12},
		{Offset: bcm283x.GPPUD, Value: 0},
		{Offset: bcm283x.GPPUDCLK0, Value: 1 << 3},
	}
	assert.Equal(t, want, f.Writes()[before:])
	assert.Equal(t, 2, delays)
	assert.Equal(t, gpio.PullUp, f.Pull(12))
	assert.Equal(t, gpio.High, c.Read(12), "pulled up input")

	require.NoError(t, c.SetPull(12, gpio.Float))
	assert.Equal(t, gpio.Float, f.Pull(12))
	require.NoError(t, c.SetPull(40, gpio.PullDown))
	assert.Equal(t, gpio.PullDown, f.Pull(40))
}

func TestSetPull_noChange(t *testing.T) {
	c, f := newController()
	require.NoError(t, c.SetPull(12, gpio.PullNoChange))
	assert.Empty(t, f.Writes())
}

func TestInvalidPin(t *testing.T) {
	c, f := newController()
	assert.ErrorIs(t, c.SetDirection(54, bcm283x.Out), bcm283x.ErrInvalidPin)
	assert.ErrorIs(t, c.SetPull(60, gpio.PullUp), bcm283x.ErrInvalidPin)
	assert.ErrorIs(t, c.Out(255, gpio.High), bcm283x.ErrInvalidPin)
	assert.Equal(t, gpio.Low, c.Read(54))
	assert.Empty(t, f.Writes())
}

func TestPinString(t *testing.T) {
	assert.Equal(t, "GPIO26", bcm283x.Pin(26).String())
	assert.Equal(t, "Out", bcm283x.Out.String())
}
