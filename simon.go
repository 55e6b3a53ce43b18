// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package simon drives the lamps and buttons of a memory sequence game board
// wired to a Raspberry Pi.
package simon

import "periph.io/x/conn/v3/driver/driverreg"

// Init calls driverreg.Init() and returns it as-is.
//
// The only difference is that by calling simon.Init(), you are guaranteed to
// have the game board driver implicitly loaded. The driver is then available
// via gpiodrv.Default().
func Init() (*driverreg.State, error) {
	return driverreg.Init()
}
