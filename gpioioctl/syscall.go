//go:build linux

// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioioctl

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func ioctlWrapper(fd, req uintptr, arg unsafe.Pointer) error {
	_, _, ep := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if ep != 0 {
		return ep
	}
	return nil
}

func closeWrapper(fd int) error {
	return unix.Close(fd)
}

func nonblockWrapper(fd int, nonblocking bool) error {
	return unix.SetNonblock(fd, nonblocking)
}
