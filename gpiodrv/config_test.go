// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiodrv

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, "gpio_driver", c.Name)
	assert.Equal(t, "/dev/gpiomem", c.MemDevice)
	assert.Equal(t, EdgeIoctl, c.EdgeSource)
	assert.Equal(t, "/dev/gpiochip0", c.Chip)
	assert.Equal(t, [NumLamps]int{6, 13, 19, 26}, c.Lamps)
	assert.Equal(t, [NumLamps]int{12, 16, 20, 21}, c.Buttons)
	assert.Equal(t, 100*time.Millisecond, c.Pulse())
	assert.Equal(t, 10*time.Millisecond, c.Tick())
	assert.Equal(t, 20, c.DebounceTicks)
	assert.False(t, c.Strict)
	assert.Equal(t, int64(0), c.physBase())
}

func TestConfig_Validate(t *testing.T) {
	data := []func(c *Config){
		func(c *Config) { c.Name = "" },
		func(c *Config) { c.MemDevice = "" },
		func(c *Config) { c.EdgeSource = "" },
		func(c *Config) { c.EdgeSource = "poll" },
		func(c *Config) { c.Lamps[1] = 54 },
		func(c *Config) { c.Buttons[0] = -1 },
		func(c *Config) { c.Lamps[3] = c.Lamps[0] },
		func(c *Config) { c.Buttons[2] = c.Lamps[2] },
		func(c *Config) { c.PulseMS = 0 },
		func(c *Config) { c.TickMS = -1 },
		func(c *Config) { c.DebounceTicks = -1 },
	}
	for i, mutate := range data {
		c := DefaultConfig()
		mutate(&c)
		assert.Error(t, c.Validate(), "#%d", i)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "wiring.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"lamps": [5, 6, 7, 8], "strict": true, "debounce_ticks": 0}`), 0o600))
	c, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, [NumLamps]int{5, 6, 7, 8}, c.Lamps)
	assert.Equal(t, [NumLamps]int{12, 16, 20, 21}, c.Buttons)
	assert.True(t, c.Strict)
	assert.Equal(t, 0, c.DebounceTicks)
	assert.Equal(t, "gpio_driver", c.Name)

	require.NoError(t, os.WriteFile(p, []byte(`{"edge_source": "sysfs"}`), 0o600))
	c, err = LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, EdgeSysfs, c.EdgeSource)
	_, ok := newBinder(&c).(*sysfsBinder)
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(p, []byte(`{"buttons": [6, 16, 20, 21]}`), 0o600))
	_, err = LoadConfig(p)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(p, []byte(`{`), 0o600))
	_, err = LoadConfig(p)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestConfig_physBase(t *testing.T) {
	c := DefaultConfig()
	c.MemDevice = "/dev/mem"
	assert.NotZero(t, c.physBase())
	c.Base = 0x20200000
	assert.Equal(t, int64(0x20200000), c.physBase())
}
