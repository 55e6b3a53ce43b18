// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package devreg is a registry of named character devices.
//
// A device is registered under a unique name and receives an identifier, the
// way a kernel hands out a major number. The identifier is never reused
// while the device is registered.
package devreg

import (
	"errors"
	"sort"
	"strconv"
	"sync"
)

// ErrExists is returned when a device name is already registered.
var ErrExists = errors.New("devreg: device already registered")

// ErrNotFound is returned when a device name or identifier is unknown.
var ErrNotFound = errors.New("devreg: device not registered")

// ID identifies a registered device.
type ID int

// Registry is a set of registered devices.
//
// The zero value is ready to use. Registry is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	byName map[string]ID
	next   ID
}

// Register adds a device under name and returns its identifier.
func (r *Registry) Register(name string) (ID, error) {
	if name == "" {
		return 0, errors.New("devreg: empty device name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return 0, wrap(ErrExists, name)
	}
	if r.byName == nil {
		r.byName = map[string]ID{}
	}
	r.next++
	r.byName[name] = r.next
	return r.next, nil
}

// Unregister removes the device registered as id under name.
func (r *Registry) Unregister(id ID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byName[name]; !ok || cur != id {
		return wrap(ErrNotFound, name+"#"+strconv.Itoa(int(id)))
	}
	delete(r.byName, name)
	return nil
}

// ByName returns the identifier of a registered device.
func (r *Registry) ByName(name string) (ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byName[name]
	return id, ok
}

// Names returns the registered device names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Default is the process wide registry.
var Default Registry

// Register adds a device to Default.
func Register(name string) (ID, error) {
	return Default.Register(name)
}

// Unregister removes a device from Default.
func Unregister(id ID, name string) error {
	return Default.Unregister(id, name)
}

// ByName looks up a device in Default.
func ByName(name string) (ID, bool) {
	return Default.ByName(name)
}

type nameError struct {
	err  error
	name string
}

func (e *nameError) Error() string {
	return e.err.Error() + ": " + strconv.Quote(e.name)
}

func (e *nameError) Unwrap() error {
	return e.err
}

func wrap(err error, name string) error {
	return &nameError{err, name}
}
