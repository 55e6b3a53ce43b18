// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiodrv

import (
	"errors"
	"os"
	"runtime"
	"sync"

	"periph.io/x/conn/v3/driver/driverreg"
)

// Default returns the Driver opened by driverreg.Init(), or nil if the
// board was not detected or the Driver was closed.
func Default() *Driver {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	if drv.d != nil && drv.d.stopping.Load() {
		drv.d = nil
	}
	return drv.d
}

// driverSimon implements driver.Impl.
type driverSimon struct {
	mu sync.Mutex
	d  *Driver
	// open is mocked in tests.
	open func() (*Driver, error)
	// present is mocked in tests.
	present func() bool
}

func (s *driverSimon) String() string {
	return "simon-gpio"
}

func (s *driverSimon) Prerequisites() []string {
	return nil
}

func (s *driverSimon) After() []string {
	return nil
}

// Init opens the default wiring when the GPIO register window is available.
func (s *driverSimon) Init() (bool, error) {
	if !s.present() {
		return false, errors.New("gpiodrv: no BCM283x GPIO register window")
	}
	d, err := s.open()
	if err != nil {
		return true, err
	}
	s.mu.Lock()
	s.d = d
	s.mu.Unlock()
	return true, nil
}

func (s *driverSimon) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d = nil
	s.open = func() (*Driver, error) {
		return New(DefaultConfig(), nil)
	}
	s.present = func() bool {
		if runtime.GOOS != "linux" {
			return false
		}
		_, err := os.Stat(DefaultConfig().MemDevice)
		return err == nil
	}
}

var drv driverSimon

func init() {
	drv.reset()
	driverreg.MustRegister(&drv)
}
