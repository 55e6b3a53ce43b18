// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiodrv

import (
	"bytes"
	"strconv"

	"periph.io/x/conn/v3/gpio"
)

// command is a parsed lamp command.
type command struct {
	// lamp is the lamp index, 0 to NumLamps-1.
	lamp  int
	level gpio.Level
}

func (c command) String() string {
	return "LED" + strconv.Itoa(c.lamp+1) + " " + c.level.String()
}

var ledToken = []byte("LED")

// parseCommand decodes "LEDn s" from b.
//
// b is the zero padded transfer buffer. The text stops at the first NUL
// byte; it must be at least 5 bytes long and contain "LED". The lamp is at
// index 3 and the level at index 5, '1' meaning High and anything else,
// including a missing byte, meaning Low.
func parseCommand(b []byte) (command, bool) {
	text := b
	if i := bytes.IndexByte(b, 0); i >= 0 {
		text = b[:i]
	}
	if len(text) < 5 || !bytes.Contains(text, ledToken) {
		return command{}, false
	}
	n := int(text[3]) - '1'
	if n < 0 || n >= NumLamps {
		return command{}, false
	}
	c := command{lamp: n}
	if len(text) > 5 && text[5] == '1' {
		c.level = gpio.High
	}
	return c, true
}

// symbolFor returns the symbol recorded for an edge pulsing lamp index i.
func symbolFor(i int) byte {
	if i < 0 || i >= NumLamps {
		return '0'
	}
	return byte('1' + i)
}
