// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiodrv

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/simon/bcm283x"
	"periph.io/x/simon/devreg"
	"periph.io/x/simon/mmio"
)

var (
	// ErrResourceExhausted is returned when a buffer can't be allocated or the
	// register window can't be mapped.
	ErrResourceExhausted = errors.New("gpiodrv: resource exhausted")
	// ErrRegistration is returned when the device name, a pin or an
	// interrupt can't be registered.
	ErrRegistration = errors.New("gpiodrv: registration failed")
	// ErrTransferFault is returned when a read buffer can't hold the pending
	// sequence or a write is larger than TransferSize.
	ErrTransferFault = errors.New("gpiodrv: transfer fault")
	// ErrMalformedCommand is returned by Handle.Write in strict mode.
	ErrMalformedCommand = errors.New("gpiodrv: malformed command")
	// ErrClosed is returned after Driver.Close.
	ErrClosed = errors.New("gpiodrv: closed")
)

// Window is a mapped register window.
type Window interface {
	mmio.Registers
	Close() error
}

// Allocator provides the transfer and sequence buffers.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(b []byte)
}

type heap struct{}

func (heap) Alloc(n int) ([]byte, error) {
	return make([]byte, n), nil
}

func (heap) Free([]byte) {
}

// Env holds the system facilities used by a Driver.
//
// A nil field uses the real implementation.
type Env struct {
	// Registry is where the device name is registered. Defaults to
	// devreg.Default.
	Registry *devreg.Registry
	Alloc    Allocator
	// Map maps the register window. Defaults to mmio.Map.
	Map func(path string, base int64, length int) (Window, error)
	// Binder defaults to the edge source selected by Config.EdgeSource.
	Binder Binder
	// Sleep holds a lamp lit during a pulse.
	Sleep func(time.Duration)
	// Delay is used for the pull resistor handshake and to back off from
	// repeated interrupt errors.
	Delay func(time.Duration)
	// Now is used when an edge has no kernel timestamp.
	Now func() time.Duration
}

var processStart = time.Now()

func (e *Env) withDefaults(cfg *Config) Env {
	var out Env
	if e != nil {
		out = *e
	}
	if out.Registry == nil {
		out.Registry = &devreg.Default
	}
	if out.Alloc == nil {
		out.Alloc = heap{}
	}
	if out.Map == nil {
		out.Map = func(path string, base int64, length int) (Window, error) {
			m, err := mmio.Map(path, base, length)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if out.Binder == nil {
		out.Binder = newBinder(cfg)
	}
	if out.Sleep == nil {
		out.Sleep = time.Sleep
	}
	if out.Delay == nil {
		out.Delay = time.Sleep
	}
	if out.Now == nil {
		out.Now = func() time.Duration { return time.Since(processStart) }
	}
	return out
}

// Stats counts the button edges processed by a Driver.
type Stats struct {
	// Accepted edges passed the debounce filter.
	Accepted uint64
	// Rejected edges were within the debounce window.
	Rejected uint64
	// Dropped edges were accepted while the pending sequence was full. Their
	// lamp was still pulsed.
	Dropped uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("accepted=%d rejected=%d dropped=%d", s.Accepted, s.Rejected, s.Dropped)
}

// Driver owns the lamps and buttons.
//
// A single lock serializes edges, reads, writes and pin accesses.
type Driver struct {
	cfg Config
	env Env

	mu         sync.Mutex
	id         devreg.ID
	registered bool
	xfer       []byte
	seq        sequence
	win        Window
	ctl        *bcm283x.Controller
	lamps      []*Pin
	buttons    []*Pin
	header     bool
	bindings   []*binding
	debounce   debouncer
	stats      Stats
	handles    int

	stopping  atomic.Bool
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New initializes the hardware described by cfg.
//
// The steps are, in order: register the device name, allocate the transfer
// buffer, allocate the sequence buffer, map the registers, configure the
// lamps as outputs, configure the buttons as inputs with pull up and register
// the header, bind the button interrupts. On failure, the resources acquired by the previous steps
// are released in reverse order.
//
// env may be nil.
func New(cfg Config, env *Env) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{cfg: cfg}
	d.env = env.withDefaults(&d.cfg)
	d.debounce.window = uint64(cfg.DebounceTicks)

	var undo []func()
	rollback := func(err error) (*Driver, error) {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		log.Printf("gpiodrv: %s: %v", cfg.Name, err)
		return nil, err
	}

	id, err := d.env.Registry.Register(cfg.Name)
	if err != nil {
		return rollback(fmt.Errorf("%w: %w", ErrRegistration, err))
	}
	d.id = id
	d.registered = true
	undo = append(undo, d.unregister)

	if d.xfer, err = d.env.Alloc.Alloc(TransferSize); err != nil {
		return rollback(fmt.Errorf("%w: transfer buffer: %w", ErrResourceExhausted, err))
	}
	undo = append(undo, d.freeTransfer)

	buf, err := d.env.Alloc.Alloc(TransferSize)
	if err != nil {
		return rollback(fmt.Errorf("%w: sequence buffer: %w", ErrResourceExhausted, err))
	}
	d.seq = sequence{buf: buf}
	undo = append(undo, d.freeSequence)

	if d.win, err = d.env.Map(cfg.MemDevice, cfg.physBase(), bcm283x.WindowLength); err != nil {
		return rollback(fmt.Errorf("%w: %w", ErrResourceExhausted, err))
	}
	d.ctl = bcm283x.New(d.win)
	d.ctl.Delay = d.env.Delay
	undo = append(undo, d.unmap)

	if err := d.setupLamps(); err != nil {
		return rollback(err)
	}
	undo = append(undo, d.releaseLamps)

	if err := d.setupButtons(); err != nil {
		return rollback(err)
	}
	undo = append(undo, d.releaseButtons)

	if err := d.bind(); err != nil {
		return rollback(err)
	}

	for _, b := range d.bindings {
		d.wg.Add(1)
		go d.dispatch(b)
	}
	log.Printf("gpiodrv: %s registered as #%d, %s", cfg.Name, id, d.irqSummary())
	return d, nil
}

// Close releases the hardware. It is safe to call more than once.
//
// The lamps are turned off, every pin is left as an input, the pull
// resistors are disabled and the interrupts released before the registers
// are unmapped and the device unregistered.
func (d *Driver) Close() error {
	d.closeOnce.Do(func() {
		d.stopping.Store(true)
		d.mu.Lock()
		d.releaseLamps()
		d.releaseButtons()
		d.mu.Unlock()
		d.releaseIRQs()
		d.mu.Lock()
		d.unmap()
		d.freeSequence()
		d.freeTransfer()
		d.mu.Unlock()
		d.unregister()
		s := d.Stats()
		logf("gpiodrv: %s closed; %s", d.cfg.Name, s)
	})
	return nil
}

// Config returns the configuration used.
func (d *Driver) Config() Config {
	return d.cfg
}

// ID returns the identifier obtained from the device registry.
func (d *Driver) ID() devreg.ID {
	return d.id
}

// Stats returns the edge counters.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Lamps returns the lamps as pins.
func (d *Driver) Lamps() []gpio.PinIO {
	d.mu.Lock()
	defer d.mu.Unlock()
	return pinIOs(d.lamps)
}

// Buttons returns the buttons as pins.
func (d *Driver) Buttons() []gpio.PinIO {
	d.mu.Lock()
	defer d.mu.Unlock()
	return pinIOs(d.buttons)
}

func (d *Driver) setupLamps() error {
	for i, n := range d.cfg.Lamps {
		p := bcm283x.Pin(n)
		if err := d.ctl.Out(p, gpio.Low); err != nil {
			d.releaseLamps()
			return err
		}
		if err := d.ctl.SetDirection(p, bcm283x.Out); err != nil {
			d.releaseLamps()
			return err
		}
		pin := &Pin{d: d, p: p, name: fmt.Sprintf("%s_LAMP%d", d.cfg.PinPrefix, i+1), lamp: true}
		d.lamps = append(d.lamps, pin)
		if err := gpioreg.Register(pin); err != nil {
			// The pin was configured but not registered.
			pin.name = ""
			d.releaseLamps()
			return fmt.Errorf("%w: %w", ErrRegistration, err)
		}
	}
	return nil
}

func (d *Driver) releaseLamps() {
	for _, pin := range d.lamps {
		_ = d.ctl.Out(pin.p, gpio.Low)
		_ = d.ctl.SetDirection(pin.p, bcm283x.In)
		if pin.name != "" {
			_ = gpioreg.Unregister(pin.name)
		}
	}
	d.lamps = nil
}

func (d *Driver) setupButtons() error {
	for i, n := range d.cfg.Buttons {
		p := bcm283x.Pin(n)
		pin := &Pin{d: d, p: p, name: fmt.Sprintf("%s_BUTTON%d", d.cfg.PinPrefix, i+1)}
		d.buttons = append(d.buttons, pin)
		if err := d.ctl.SetPull(p, gpio.PullUp); err != nil {
			pin.name = ""
			d.releaseButtons()
			return err
		}
		if err := d.ctl.SetDirection(p, bcm283x.In); err != nil {
			pin.name = ""
			d.releaseButtons()
			return err
		}
		if err := gpioreg.Register(pin); err != nil {
			pin.name = ""
			d.releaseButtons()
			return fmt.Errorf("%w: %w", ErrRegistration, err)
		}
	}
	if err := d.registerHeader(); err != nil {
		d.releaseButtons()
		return err
	}
	return nil
}

func (d *Driver) releaseButtons() {
	d.unregisterHeader()
	for _, pin := range d.buttons {
		_ = d.ctl.SetDirection(pin.p, bcm283x.In)
		_ = d.ctl.SetPull(pin.p, gpio.Float)
		if pin.name != "" {
			_ = gpioreg.Unregister(pin.name)
		}
	}
	d.buttons = nil
}

// bind requests one falling edge interrupt per button.
func (d *Driver) bind() error {
	for i, n := range d.cfg.Buttons {
		irq, err := d.env.Binder.Bind(bcm283x.Pin(n), gpio.FallingEdge)
		if err != nil {
			d.releaseIRQs()
			return fmt.Errorf("%w: GPIO%d interrupt: %w", ErrRegistration, n, err)
		}
		d.bindings = append(d.bindings, &binding{
			button: bcm283x.Pin(n),
			lamp:   bcm283x.Pin(d.cfg.Lamps[i]),
			index:  i,
			irq:    irq,
		})
	}
	return nil
}

// releaseIRQs closes the interrupts and waits for the dispatchers to exit.
//
// Must not be called with mu held.
func (d *Driver) releaseIRQs() {
	for _, b := range d.bindings {
		if err := b.irq.Close(); err != nil {
			logf("gpiodrv: %s: %v", b, err)
		}
	}
	d.wg.Wait()
	d.bindings = nil
	if err := d.env.Binder.Close(); err != nil {
		logf("gpiodrv: %v", err)
	}
}

func (d *Driver) unmap() {
	if d.win == nil {
		return
	}
	if err := d.win.Close(); err != nil {
		logf("gpiodrv: unmap: %v", err)
	}
	d.win = nil
	d.ctl = nil
}

func (d *Driver) freeSequence() {
	if d.seq.buf == nil {
		return
	}
	d.env.Alloc.Free(d.seq.buf)
	d.seq = sequence{}
}

func (d *Driver) freeTransfer() {
	if d.xfer == nil {
		return
	}
	d.env.Alloc.Free(d.xfer)
	d.xfer = nil
}

func (d *Driver) unregister() {
	if !d.registered {
		return
	}
	if err := d.env.Registry.Unregister(d.id, d.cfg.Name); err != nil {
		logf("gpiodrv: %v", err)
	}
	d.registered = false
}

// closedLocked must be called with mu held.
func (d *Driver) closedLocked() bool {
	return d.ctl == nil || d.stopping.Load()
}

func (d *Driver) irqSummary() string {
	s := "irqs"
	for _, b := range d.bindings {
		s += fmt.Sprintf(" %d", b.irq.Number())
	}
	return s
}
