// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package mmio

import "fmt"

// Map is only supported on Linux.
func Map(path string, base int64, length int) (*Mem, error) {
	return nil, fmt.Errorf("%w: %s: not supported on this OS", ErrMap, path)
}
