// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiodrv

import (
	"fmt"

	"periph.io/x/conn/v3/pin"
	"periph.io/x/conn/v3/pin/pinreg"
)

// registerHeader registers the board as a header named Config.PinPrefix.
//
// Row i holds lamp i+1 then button i+1, so lamp n is at position 2n-1 and
// button n at position 2n.
func (d *Driver) registerHeader() error {
	rows := make([][]pin.Pin, 0, len(d.lamps))
	for i := range d.lamps {
		rows = append(rows, []pin.Pin{d.lamps[i], d.buttons[i]})
	}
	if err := pinreg.Register(d.cfg.PinPrefix, rows); err != nil {
		return fmt.Errorf("%w: header %s: %w", ErrRegistration, d.cfg.PinPrefix, err)
	}
	d.header = true
	return nil
}

func (d *Driver) unregisterHeader() {
	if !d.header {
		return
	}
	if err := pinreg.Unregister(d.cfg.PinPrefix); err != nil {
		logf("gpiodrv: %v", err)
	}
	d.header = false
}
