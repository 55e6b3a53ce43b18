// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiodrv

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/simon/bcm283x"
	"periph.io/x/simon/bcm283x/bcm283xtest"
)

func TestDebouncer(t *testing.T) {
	d := debouncer{window: 20}
	assert.True(t, d.accept(0), "first edge is always accepted")
	assert.False(t, d.accept(19))
	assert.True(t, d.accept(20))
	assert.False(t, d.accept(20))
	assert.True(t, d.accept(1000))
	assert.False(t, d.accept(1001))
	// Older than the last accepted edge.
	assert.False(t, d.accept(990))
	assert.False(t, d.accept(0))
	assert.True(t, d.accept(1020))

	none := debouncer{}
	assert.True(t, none.accept(5))
	assert.True(t, none.accept(5))
}

func TestOnEdge_sharedDebounce(t *testing.T) {
	e := newTestEnv(t)
	d := e.open(t)
	b := d.bindings
	require.Len(t, b, NumLamps)

	d.onEdge(b[0], time.Second)
	// Another button within the window is suppressed too.
	d.onEdge(b[1], time.Second+100*time.Millisecond)
	d.onEdge(b[0], time.Second+199*time.Millisecond)
	d.onEdge(b[1], time.Second+200*time.Millisecond)
	assert.Equal(t, Stats{Accepted: 2, Rejected: 2}, d.Stats())
	assert.Len(t, e.sleepCalls(), 2)
	assert.Equal(t, "12", drainAll(t, d))
}

func TestOnEdge_outOfOrder(t *testing.T) {
	e := newTestEnv(t)
	d := e.open(t)
	b := d.bindings
	// The second button's dispatcher took the lock first.
	d.onEdge(b[1], 1110*time.Millisecond)
	d.onEdge(b[0], 1090*time.Millisecond)
	assert.Equal(t, Stats{Accepted: 1, Rejected: 1}, d.Stats())
	// The window is still measured from the accepted edge.
	d.onEdge(b[2], 1310*time.Millisecond)
	d.onEdge(b[3], 1320*time.Millisecond)
	assert.Equal(t, Stats{Accepted: 2, Rejected: 2}, d.Stats())
	assert.Equal(t, "23", drainAll(t, d))
}

func TestOnEdge_pulse(t *testing.T) {
	e := newTestEnv(t)
	var lit []gpio.Level
	e.env.Sleep = func(d time.Duration) {
		assert.Equal(t, 100*time.Millisecond, d)
		lit = append(lit, e.fake.Output(19))
	}
	d := e.open(t)

	before := len(e.fake.Writes())
	d.onEdge(d.bindings[2], time.Second)
	want := []bcm283xtest.Write{
		{Offset: bcm283x.GPSET0, Value: 1 << 19},
		{Offset: bcm283x.GPCLR0, Value: 1 << 19},
	}
	assert.Equal(t, want, e.fake.Writes()[before:])
	assert.Equal(t, []gpio.Level{gpio.High}, lit)
	assert.Equal(t, gpio.Low, e.level(19))

	// A rejected edge has no visible effect.
	before = len(e.fake.Writes())
	d.onEdge(d.bindings[2], time.Second+time.Millisecond)
	assert.Empty(t, e.fake.Writes()[before:])
	assert.Len(t, lit, 1)
}

func TestOnEdge_overflow(t *testing.T) {
	e := newTestEnv(t)
	d := e.open(t)
	for i := 0; i < TransferSize; i++ {
		d.onEdge(d.bindings[i%NumLamps], time.Duration(i+1)*time.Second)
	}
	assert.Equal(t, Stats{Accepted: TransferSize, Dropped: 1}, d.Stats())
	// The dropped edge was still echoed.
	assert.Len(t, e.sleepCalls(), TransferSize)

	s := drainAll(t, d)
	require.Len(t, s, TransferSize-1)
	assert.Equal(t, "1234", s[:4])
	assert.Equal(t, "123", s[TransferSize-4:])

	d.onEdge(d.bindings[3], 1000*time.Second)
	assert.Equal(t, "4", drainAll(t, d))
}

func TestOnEdge_noTimestamp(t *testing.T) {
	e := newTestEnv(t)
	d := e.open(t)
	e.mu.Lock()
	e.now = 5 * time.Second
	e.mu.Unlock()
	d.onEdge(d.bindings[3], 0)
	d.onEdge(d.bindings[0], 0)
	assert.Equal(t, Stats{Accepted: 1, Rejected: 1}, d.Stats())
	assert.Equal(t, "4", drainAll(t, d))
}

func TestOnEdge_unknownLamp(t *testing.T) {
	e := newTestEnv(t)
	d := e.open(t)
	b := *d.bindings[0]
	b.index = -1
	d.onEdge(&b, time.Second)
	assert.Equal(t, "0", drainAll(t, d))
}

func TestDispatch_endToEnd(t *testing.T) {
	e := newTestEnv(t)
	d := e.open(t)
	cfg := d.Config()
	for i, k := range []int{0, 2, 1, 3} {
		irq := e.binder.irq(bcm283x.Pin(cfg.Buttons[k]))
		require.NotNil(t, irq)
		irq.fire(time.Duration(i+1) * time.Second)
		require.Eventually(t, func() bool {
			return d.Stats().Accepted == uint64(i+1)
		}, time.Second, time.Millisecond)
	}
	h, err := d.Open()
	require.NoError(t, err)
	defer h.Close()
	buf := make([]byte, TransferSize)
	n, err := h.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "1324", string(buf[:n]))
	n, err = h.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestDispatch_survivesErrors(t *testing.T) {
	e := newTestEnv(t)
	var backoffs []time.Duration
	e.env.Delay = func(d time.Duration) {
		if d < minErrBackoff {
			// Pull resistor handshake.
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		backoffs = append(backoffs, d)
	}
	d := e.open(t)
	irq := e.binder.irq(bcm283x.Pin(d.Config().Buttons[0]))
	require.NotNil(t, irq)
	accepted := func(n uint64) {
		require.Eventually(t, func() bool {
			return d.Stats().Accepted == n
		}, time.Second, time.Millisecond)
	}
	bad := errors.New("unknown event id 7")

	irq.fail(bad)
	irq.fire(time.Second)
	accepted(1)

	// Repeated errors back off.
	for i := 0; i < 3; i++ {
		irq.fail(bad)
	}
	irq.fire(2 * time.Second)
	accepted(2)

	// An edge resets the backoff.
	irq.fail(bad)
	irq.fire(3 * time.Second)
	accepted(3)

	e.mu.Lock()
	assert.Equal(t, []time.Duration{minErrBackoff, 2 * minErrBackoff}, backoffs)
	e.mu.Unlock()
	assert.Equal(t, "111", drainAll(t, d))

	require.NoError(t, d.Close())
	assert.False(t, irq.isOpen())
}

func TestDispatch_lockHeldDuringPulse(t *testing.T) {
	e := newTestEnv(t)
	inPulse := make(chan struct{})
	release := make(chan struct{})
	e.env.Sleep = func(time.Duration) {
		close(inPulse)
		<-release
	}
	d, err := New(e.config(), &e.env)
	require.NoError(t, err)
	cfg := d.Config()
	h, err := d.Open()
	require.NoError(t, err)

	e.binder.irq(bcm283x.Pin(cfg.Buttons[1])).fire(time.Second)
	<-inPulse

	read := make(chan string)
	go func() {
		buf := make([]byte, TransferSize)
		n, _ := h.Read(buf)
		read <- string(buf[:n])
	}()
	closed := make(chan struct{})
	go func() {
		_ = d.Close()
		close(closed)
	}()
	select {
	case s := <-read:
		t.Fatalf("read %q during pulse", s)
	case <-closed:
		t.Fatal("closed during pulse")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, gpio.High, e.fake.Output(bcm283x.Pin(cfg.Lamps[1])))
	close(release)
	<-closed
	// Depending on scheduling the read completed before or after Close.
	if s := <-read; s != "" {
		assert.Equal(t, "2", s)
	}
	assert.Equal(t, gpio.Low, e.fake.Output(bcm283x.Pin(cfg.Lamps[1])))
	e.assertReleased(t, cfg)
}

// drainAll reads the pending sequence with a new handle.
func drainAll(t *testing.T, d *Driver) string {
	t.Helper()
	h, err := d.Open()
	require.NoError(t, err)
	defer h.Close()
	buf := make([]byte, TransferSize)
	n, err := h.Read(buf)
	if err == io.EOF {
		return ""
	}
	require.NoError(t, err)
	return string(buf[:n])
}
