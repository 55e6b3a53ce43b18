// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package sysfs

import "os"

type event struct{}

func (e *event) open(f *os.File) error {
	return ErrUnsupported
}

func (e *event) wait() error {
	return ErrUnsupported
}

func (e *event) flush() {
}

func (e *event) wake() {
}

func (e *event) close() error {
	return nil
}
