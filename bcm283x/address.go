// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import (
	"encoding/binary"
	"os"
)

const (
	// defaultPeripheralBase is the ARM physical address of the peripherals
	// on the BCM2836/BCM2837 (Raspberry Pi 2 and 3).
	defaultPeripheralBase = 0x3F000000
	// gpioOffset is the offset of the GPIO block within the peripherals.
	gpioOffset = 0x200000

	socRanges = "/proc/device-tree/soc/ranges"
)

// GPIOBase returns the ARM physical address of the GPIO block.
//
// It is needed only when mapping through /dev/mem; /dev/gpiomem already
// starts at the GPIO block.
func GPIOBase() int64 {
	return int64(getPeripheralBase(socRanges)) + gpioOffset
}

// getPeripheralBase queries the device tree to retrieve the physical address
// of the peripherals.
//
// Defaults to 0x3F000000 as per the BCM2837 if the device tree could not be
// read.
func getPeripheralBase(path string) uint64 {
	b, err := os.ReadFile(path)
	if err != nil {
		return defaultPeripheralBase
	}
	return parseRanges(b)
}

// parseRanges decodes the first entry of a soc ranges property.
//
// The entry is <child bus address> <parent address> <size>. The parent
// address uses one cell up to the BCM2837 and two cells on the BCM2711.
func parseRanges(b []byte) uint64 {
	if len(b) < 12 {
		return defaultPeripheralBase
	}
	if v := binary.BigEndian.Uint32(b[4:8]); v != 0 {
		return uint64(v)
	}
	if len(b) >= 16 {
		if v := binary.BigEndian.Uint32(b[8:12]); v != 0 {
			return uint64(v)
		}
	}
	return defaultPeripheralBase
}
