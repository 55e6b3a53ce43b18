// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mmio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map maps length bytes at physical address base through the memory device
// at path.
//
// path is usually /dev/gpiomem, in which case base must be 0 since the
// device only exposes the GPIO block, or /dev/mem with the physical address
// of the block.
func Map(path string, base int64, length int) (*Mem, error) {
	if length <= 0 || length%4 != 0 {
		return nil, fmt.Errorf("%w: invalid length %d", ErrMap, length)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMap, err)
	}
	// The mapping stays valid after the file is closed.
	defer f.Close()
	// mmap requires a page aligned offset.
	page := int64(os.Getpagesize())
	aligned := base &^ (page - 1)
	delta := int(base - aligned)
	b, err := unix.Mmap(int(f.Fd()), aligned, length+delta, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMap, path, err)
	}
	return &Mem{
		base: base,
		mem:  b[delta : delta+length],
		unmap: func([]byte) error {
			return unix.Munmap(b)
		},
	}, nil
}
