// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpioioctl delivers edge events of Linux GPIO lines using the GPIO v2
// character device ioctl interface.
//
// https://docs.kernel.org/userspace-api/gpio/index.html
//
// Only edge detection is provided. Levels and pin functions are handled
// through the register window, see package bcm283x.
package gpioioctl
