// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiodrv

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"periph.io/x/simon/bcm283x"
)

// NumLamps is the number of lamps, and of buttons.
const NumLamps = 4

// TransferSize is the size of the buffer used for a single read or write.
//
// The pending sequence holds at most TransferSize-1 symbols.
const TransferSize = 80

// Edge sources.
const (
	EdgeIoctl = "ioctl"
	EdgeSysfs = "sysfs"
)

// wiringJSON is the default wiring of the game board.
//
//go:embed wiring.json
var wiringJSON []byte

// Config is the wiring and timing of a Driver.
type Config struct {
	// Name is the device name registered in devreg.
	Name string `json:"name"`
	// MemDevice is the file mapped to access the GPIO registers.
	//
	// /dev/gpiomem starts at the GPIO block. /dev/mem is the physical address
	// space, in which case Base must be the GPIO block physical address or 0
	// to detect it.
	MemDevice string `json:"mem_device"`
	Base      int64  `json:"base"`
	// EdgeSource selects how button edges are delivered: "ioctl" for the
	// GPIO character device Chip, "sysfs" for the legacy gpio sysfs.
	EdgeSource string `json:"edge_source"`
	// Chip is the GPIO character device delivering button edges.
	Chip string `json:"chip"`
	// PinPrefix is prepended to the names registered in gpioreg.
	PinPrefix string `json:"pin_prefix"`

	// Lamps are the GPIO numbers of lamps 1 to 4.
	Lamps [NumLamps]int `json:"lamps"`
	// Buttons are the GPIO numbers of the buttons. Buttons[i] pulses
	// Lamps[i] and records symbol '1'+i.
	Buttons [NumLamps]int `json:"buttons"`

	PulseMS       int `json:"pulse_ms"`
	TickMS        int `json:"tick_ms"`
	DebounceTicks int `json:"debounce_ticks"`

	// Strict rejects writes that are not a lamp command with
	// ErrMalformedCommand instead of silently ignoring them.
	Strict bool `json:"strict"`
}

// DefaultConfig returns the wiring of the game board.
func DefaultConfig() Config {
	var c Config
	if err := json.Unmarshal(wiringJSON, &c); err != nil {
		panic(fmt.Sprintf("gpiodrv: invalid embedded wiring: %v", err))
	}
	return c
}

// LoadConfig reads a JSON file overriding fields of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("gpiodrv: %w", err)
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("gpiodrv: %s: %w", path, err)
	}
	return c, c.Validate()
}

// Validate returns an error if a pin is out of range or used twice, or if a
// duration is not positive.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("gpiodrv: config: empty name")
	}
	if c.MemDevice == "" {
		return errors.New("gpiodrv: config: empty mem_device")
	}
	switch c.EdgeSource {
	case EdgeIoctl, EdgeSysfs:
	default:
		return fmt.Errorf("gpiodrv: config: unknown edge_source %q", c.EdgeSource)
	}
	seen := map[int]string{}
	check := func(kind string, pins [NumLamps]int) error {
		for i, p := range pins {
			what := fmt.Sprintf("%s %d", kind, i+1)
			if p < 0 || p >= bcm283x.NumPins {
				return fmt.Errorf("gpiodrv: config: %s: invalid GPIO%d", what, p)
			}
			if other, ok := seen[p]; ok {
				return fmt.Errorf("gpiodrv: config: %s: GPIO%d already used by %s", what, p, other)
			}
			seen[p] = what
		}
		return nil
	}
	if err := check("lamp", c.Lamps); err != nil {
		return err
	}
	if err := check("button", c.Buttons); err != nil {
		return err
	}
	if c.PulseMS <= 0 || c.TickMS <= 0 || c.DebounceTicks < 0 {
		return fmt.Errorf("gpiodrv: config: invalid timing pulse=%dms tick=%dms debounce=%d", c.PulseMS, c.TickMS, c.DebounceTicks)
	}
	return nil
}

// Pulse is how long a lamp is lit when its button is accepted.
func (c *Config) Pulse() time.Duration {
	return time.Duration(c.PulseMS) * time.Millisecond
}

// Tick is the resolution of the debounce clock.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// physBase returns the offset to map in MemDevice.
func (c *Config) physBase() int64 {
	if c.MemDevice == "/dev/mem" && c.Base == 0 {
		return bcm283x.GPIOBase()
	}
	return c.Base
}
