// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiodrv

// debouncer rejects an edge closer than window ticks to the last accepted
// one.
//
// A single debouncer is shared by all the buttons, so pressing two different
// buttons within the window only records the first.
type debouncer struct {
	window uint64
	last   uint64
	primed bool
}

// accept returns true and records tick if the edge is to be processed.
//
// Edges of different buttons may be delivered out of order; one older than
// the last accepted edge is within the window.
func (d *debouncer) accept(tick uint64) bool {
	if d.primed && (tick < d.last || tick-d.last < d.window) {
		return false
	}
	d.last = tick
	d.primed = true
	return true
}
