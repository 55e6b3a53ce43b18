// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiodrv

// sequence is the bounded list of symbols recorded since the last drain.
//
// The backing buffer has TransferSize bytes, the last one is never used so
// the content always fits a transfer with a terminator.
type sequence struct {
	buf []byte
	n   int
}

func (s *sequence) capacity() int {
	if len(s.buf) == 0 {
		return 0
	}
	return len(s.buf) - 1
}

func (s *sequence) len() int {
	return s.n
}

// push appends c. It returns false and drops c when the sequence is full.
func (s *sequence) push(c byte) bool {
	if s.n >= s.capacity() {
		return false
	}
	s.buf[s.n] = c
	s.n++
	return true
}

// bytes returns the pending symbols. The slice is only valid until the next
// mutation.
func (s *sequence) bytes() []byte {
	return s.buf[:s.n]
}

func (s *sequence) reset() {
	clear(s.buf)
	s.n = 0
}
