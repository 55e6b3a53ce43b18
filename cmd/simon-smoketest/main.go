// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// simon-smoketest verifies that the game board is wired as expected.
//
// Run it on the Raspberry Pi with no button pressed:
//
//	simon-smoketest -wait 5s
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"periph.io/x/simon"
	"periph.io/x/simon/gpiodrv/gpiodrvsmoketest"
)

func mainImpl() error {
	state, err := simon.Init()
	if err != nil {
		return err
	}
	for _, f := range state.Failed {
		log.Printf("driver %s failed: %v", f.D, f.Err)
	}
	t := &gpiodrvsmoketest.SmokeTest{}
	fmt.Printf("%s: %s\n", t.Name(), t.Description())
	if err := t.Run(flag.CommandLine, os.Args[1:]); err != nil {
		return err
	}
	fmt.Printf("%s: OK\n", t.Name())
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "simon-smoketest: %s.\n", err)
		os.Exit(1)
	}
}
