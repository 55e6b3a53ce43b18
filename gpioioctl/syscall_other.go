//go:build !linux

// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioioctl

import "unsafe"

func ioctlWrapper(fd, req uintptr, arg unsafe.Pointer) error {
	return ErrUnsupported
}

func closeWrapper(fd int) error {
	return nil
}

func nonblockWrapper(fd int, nonblocking bool) error {
	return ErrUnsupported
}
