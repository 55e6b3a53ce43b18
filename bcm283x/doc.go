// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bcm283x drives the GPIO block of the Broadcom BCM283x processors
// used on the Raspberry Pi, directly through its memory mapped registers.
//
// The Controller translates a GPIO number into register offsets and bit
// positions and performs the direction, pull, output and level operations.
// It does not lock; callers serialize access.
//
// # Datasheet
//
// https://datasheets.raspberrypi.com/bcm2835/bcm2835-peripherals.pdf
//
// Chapter 6, page 89 and onward. Note that the datasheet documents bus
// addresses (0x7E200000); the ARM physical address differs per model, see
// GPIOBase.
package bcm283x
