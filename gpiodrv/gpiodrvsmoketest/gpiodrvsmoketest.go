// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpiodrvsmoketest verifies that the lamps and buttons of the game
// board are wired as expected.
package gpiodrvsmoketest

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/simon/gpiodrv"
)

// SmokeTest is imported by simon-smoketest.
type SmokeTest struct {
}

// Name implements the SmokeTest interface.
func (s *SmokeTest) Name() string {
	return "gpiodrv"
}

// Description implements the SmokeTest interface.
func (s *SmokeTest) Description() string {
	return "Tests the lamps, buttons and device protocol of the game board"
}

// Run implements the SmokeTest interface.
func (s *SmokeTest) Run(f *flag.FlagSet, args []string) (err error) {
	cfgPath := f.String("config", "", "JSON file overriding the default wiring")
	wait := f.Duration("wait", 0, "time given to press buttons; 0 skips the interactive test")
	if err := f.Parse(args); err != nil {
		return err
	}
	if f.NArg() != 0 {
		f.Usage()
		return errors.New("unrecognized arguments")
	}

	d := gpiodrv.Default()
	if d == nil || *cfgPath != "" {
		cfg := gpiodrv.DefaultConfig()
		if *cfgPath != "" {
			if cfg, err = gpiodrv.LoadConfig(*cfgPath); err != nil {
				return err
			}
			if d != nil {
				// The default wiring holds the pins. Default() returns nil
				// from now on.
				_ = d.Close()
			}
		}
		if d, err = gpiodrv.New(cfg, nil); err != nil {
			return err
		}
		defer d.Close()
	}

	for _, p := range d.Lamps() {
		if err := lampTest(&loggingPin{p}); err != nil {
			return err
		}
	}
	for _, p := range d.Buttons() {
		if err := buttonTest(&loggingPin{p}); err != nil {
			return err
		}
	}
	if err := protocolTest(d); err != nil {
		return err
	}
	if *wait > 0 {
		return sequenceTest(d, *wait)
	}
	return nil
}

// lampTest lights the lamp and reads back the output level.
func lampTest(p gpio.PinIO) error {
	fmt.Printf("  Lamp %s:\n", p)
	for _, l := range []gpio.Level{gpio.High, gpio.Low} {
		if err := p.Out(l); err != nil {
			return err
		}
		// There can be a small amount of skew. This should inject just enough time.
		time.Sleep(10 * time.Microsecond)
		if got := p.Read(); got != l {
			return fmt.Errorf("%s: expected to read %s but got %s", p, l, got)
		}
	}
	return nil
}

// buttonTest verifies the pull up, assuming the button is not pressed.
func buttonTest(p gpio.PinIO) error {
	fmt.Printf("  Button %s:\n", p)
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return err
	}
	if l := p.Read(); l != gpio.High {
		return fmt.Errorf("%s: expected to read %s but got %s; is the button stuck?", p, gpio.High, l)
	}
	return nil
}

// protocolTest drives each lamp through the device protocol.
func protocolTest(d *gpiodrv.Driver) error {
	fmt.Printf("  Device protocol:\n")
	h, err := d.Open()
	if err != nil {
		return err
	}
	defer h.Close()
	for i, p := range d.Lamps() {
		for _, s := range []byte{'1', '0'} {
			cmd := fmt.Sprintf("LED%d %c", i+1, s)
			if _, err := h.Write([]byte(cmd)); err != nil {
				return fmt.Errorf("%s: %w", cmd, err)
			}
			if want, got := gpio.Level(s == '1'), p.Read(); got != want {
				return fmt.Errorf("%s: %s is %s", cmd, p, got)
			}
		}
	}
	fmt.Printf("    OK\n")
	return nil
}

// sequenceTest records button presses for the duration given.
func sequenceTest(d *gpiodrv.Driver, wait time.Duration) error {
	fmt.Printf("  Press buttons within %s:\n", wait)
	time.Sleep(wait)
	h, err := d.Open()
	if err != nil {
		return err
	}
	defer h.Close()
	buf := make([]byte, gpiodrv.TransferSize)
	n, err := h.Read(buf)
	if err == io.EOF {
		return errors.New("no button press recorded")
	}
	if err != nil {
		return err
	}
	fmt.Printf("    Recorded %q; %s\n", buf[:n], d.Stats())
	return nil
}

// loggingPin logs when its state changes.
type loggingPin struct {
	gpio.PinIO
}

func (p *loggingPin) In(pull gpio.Pull, edge gpio.Edge) error {
	start := time.Now()
	if err := p.PinIO.In(pull, edge); err != nil {
		fmt.Printf("    %s %s.In(%s, %s) = %v\n", time.Since(start), p, pull, edge, err)
		return err
	}
	fmt.Printf("    %s %s.In(%s, %s)\n", time.Since(start), p, pull, edge)
	return nil
}

func (p *loggingPin) Read() gpio.Level {
	start := time.Now()
	l := p.PinIO.Read()
	fmt.Printf("    %s %s.Read() = %s\n", time.Since(start), p, l)
	return l
}

func (p *loggingPin) Out(l gpio.Level) error {
	start := time.Now()
	if err := p.PinIO.Out(l); err != nil {
		fmt.Printf("    %s %s.Out(%s) = %v\n", time.Since(start), p, l, err)
		return err
	}
	fmt.Printf("    %s %s.Out(%s)\n", time.Since(start), p, l)
	return nil
}
