// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioioctl

import (
	"encoding/binary"
	"strings"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

func TestGetFlags(t *testing.T) {
	data := []struct {
		dir   LineDir
		edge  gpio.Edge
		pull  gpio.Pull
		flags uint64
	}{
		{LineInput, gpio.FallingEdge, gpio.PullUp, _GPIO_V2_LINE_FLAG_INPUT | _GPIO_V2_LINE_FLAG_EDGE_FALLING | _GPIO_V2_LINE_FLAG_BIAS_PULL_UP},
		{LineInput, gpio.RisingEdge, gpio.PullDown, _GPIO_V2_LINE_FLAG_INPUT | _GPIO_V2_LINE_FLAG_EDGE_RISING | _GPIO_V2_LINE_FLAG_BIAS_PULL_DOWN},
		{LineInput, gpio.BothEdges, gpio.Float, _GPIO_V2_LINE_FLAG_INPUT | _GPIO_V2_LINE_FLAG_EDGE_RISING | _GPIO_V2_LINE_FLAG_EDGE_FALLING | _GPIO_V2_LINE_FLAG_BIAS_DISABLED},
		{LineInput, gpio.NoEdge, gpio.PullNoChange, _GPIO_V2_LINE_FLAG_INPUT},
		{LineOutput, gpio.NoEdge, gpio.PullNoChange, _GPIO_V2_LINE_FLAG_OUTPUT},
		{LineDirNotSet, gpio.NoEdge, gpio.PullNoChange, 0},
	}
	for i, line := range data {
		assert.Equal(t, line.flags, getFlags(line.dir, line.edge, line.pull), "#%d", i)
	}
}

func TestIoctlNumbers(t *testing.T) {
	// Values from linux/gpio.h.
	assert.Equal(t, uintptr(0x8044b401), gpioGetChipInfo, "GPIO_GET_CHIPINFO_IOCTL")
	assert.Equal(t, uintptr(0xc250b407), gpioV2GetLine, "GPIO_V2_GET_LINE_IOCTL")
	assert.Equal(t, 48, eventSize, "sizeof(gpio_v2_line_event)")
	assert.Equal(t, uintptr(592), unsafe.Sizeof(gpio_v2_line_request{}), "sizeof(gpio_v2_line_request)")
}

func TestNewLineRequest(t *testing.T) {
	req := newLineRequest(21, getFlags(LineInput, gpio.FallingEdge, gpio.PullUp))
	require.Equal(t, uint32(1), req.num_lines)
	require.Equal(t, uint32(21), req.offsets[0])
	assert.NotZero(t, req.config.flags&_GPIO_V2_LINE_FLAG_EDGE_FALLING, "falling edge not requested")
	c := strings.TrimRight(string(req.consumer[:]), "\x00")
	assert.Equal(t, string(consumer), c)
	assert.Contains(t, c, "@")
	assert.Less(t, len(consumer), _GPIO_MAX_NAME_SIZE, "consumer too long")
}

func encodeEvent(t *testing.T, ev gpio_v2_line_event) []byte {
	var b strings.Builder
	require.NoError(t, binary.Write(&b, binary.LittleEndian, &ev))
	return []byte(b.String())
}

func TestParseEvent(t *testing.T) {
	b := encodeEvent(t, gpio_v2_line_event{
		Timestamp_ns: uint64(5 * time.Second),
		Id:           _GPIO_V2_LINE_EVENT_FALLING_EDGE,
		Offset:       16,
		Seqno:        3,
	})
	require.Len(t, b, eventSize)
	e, err := parseEvent(b)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, e.Timestamp)
	assert.Equal(t, gpio.FallingEdge, e.Edge)
	assert.Equal(t, uint32(16), e.Offset)
	assert.Equal(t, uint32(3), e.Seqno)

	e, err = parseEvent(encodeEvent(t, gpio_v2_line_event{Id: _GPIO_V2_LINE_EVENT_RISING_EDGE}))
	require.NoError(t, err)
	assert.Equal(t, gpio.RisingEdge, e.Edge)

	b = encodeEvent(t, gpio_v2_line_event{Id: 7})
	_, err = parseEvent(b)
	assert.Error(t, err, "unknown id")
	_, err = parseEvent(b[:10])
	assert.Error(t, err, "short event")
}

func TestOpen_missing(t *testing.T) {
	_, err := Open(t.TempDir() + "/gpiochip99")
	assert.Error(t, err)
}
