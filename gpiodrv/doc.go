// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpiodrv drives four lamps and four push buttons wired to a BCM283x
// GPIO controller, as used by a memory sequence game.
//
// A falling edge on a button is debounced, recorded as a symbol '1' to '4'
// and echoed by pulsing the matching lamp. The recorded sequence is drained
// by reading a Handle. Lamps are commanded by writing "LEDn s" to a Handle,
// where n is the lamp 1 to 4 and s is '1' for on.
//
// The lamps and buttons are also registered in gpioreg as SIMON_LAMP1 to
// SIMON_LAMP4 and SIMON_BUTTON1 to SIMON_BUTTON4 while the driver is open,
// and grouped in pinreg as the header SIMON.
//
// Registers are accessed through /dev/gpiomem and edges are delivered by the
// GPIO character device, so the driver does not need to run as root. Kernels
// without the character device can use gpio sysfs instead with
// Config.EdgeSource.
package gpiodrv
