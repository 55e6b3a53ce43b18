// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mmio maps a window of physical memory holding hardware registers
// and provides raw 32 bits access to it.
//
// It has no knowledge of what the registers mean. Every hardware access done
// by the other packages of this module goes through a Registers value.
package mmio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// ErrMap is returned, wrapped, when a register window cannot be mapped.
var ErrMap = errors.New("mmio: cannot map register window")

// Registers is a window of 32 bits registers addressed by byte offset.
type Registers interface {
	// Read32 returns the register at offset.
	Read32(offset uint32) uint32
	// Write32 stores v in the register at offset.
	Write32(offset uint32, v uint32)
}

// Mem is a mapped register window.
//
// Read32 and Write32 are safe to call concurrently; they compile to single
// 32 bits loads and stores. Read-modify-write sequences need external
// locking.
type Mem struct {
	base  int64
	mem   []byte
	once  sync.Once
	unmap func([]byte) error
}

// Base returns the physical address the window was mapped from.
func (m *Mem) Base() int64 {
	return m.base
}

// Len returns the length of the window in bytes.
func (m *Mem) Len() int {
	return len(m.mem)
}

// Read32 implements Registers.
//
// It panics if offset is outside of the window.
func (m *Mem) Read32(offset uint32) uint32 {
	_ = m.mem[offset+3]
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&m.mem[offset])))
}

// Write32 implements Registers.
//
// It panics if offset is outside of the window.
func (m *Mem) Write32(offset uint32, v uint32) {
	_ = m.mem[offset+3]
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&m.mem[offset])), v)
}

// Close unmaps the window. Calls after the first one do nothing.
func (m *Mem) Close() error {
	var err error
	m.once.Do(func() {
		if m.unmap != nil {
			err = m.unmap(m.mem)
		}
		m.mem = nil
	})
	return err
}

func (m *Mem) String() string {
	return fmt.Sprintf("mmio{0x%08X, %d}", m.base, len(m.mem))
}

var _ Registers = &Mem{}
