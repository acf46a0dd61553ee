// Package hwsim implements the hw interfaces in memory. The host board runs
// the firmware on it and every package test uses it as its fake hardware.
package hwsim

import (
	"bytes"
	"errors"
	"sync"

	"powerctl-go/internal/hw"
)

// ---------------------------------------------------------------------------
// GPIO
// ---------------------------------------------------------------------------

// Pin is a simulated GPIO line. Set drives the output latch; Drive sets
// the level seen from outside (power-good inputs, the console RX line).
// Either can fire a registered IRQ.
type Pin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	pull    hw.Pull
	irqEdge hw.Edge
	irqFunc func()

	configs int
}

var _ hw.IRQPin = (*Pin)(nil)

func NewPin(n int) *Pin { return &Pin{number: n} }

func (p *Pin) ConfigureInput(pull hw.Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.pull = pull
	p.configs++
	p.mu.Unlock()
	return nil
}

func (p *Pin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.configs++
	p.mu.Unlock()
	p.Set(initial)
	return nil
}

func (p *Pin) Set(level bool) { p.change(level) }

// Drive sets the externally applied level.
func (p *Pin) Drive(level bool) { p.change(level) }

func (p *Pin) change(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, edgeFrom(old, level))
	p.mu.Unlock()
	// Handler runs unlocked: it is allowed to clear its own IRQ.
	if want && irq != nil {
		irq()
	}
}

func (p *Pin) Get() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

func (p *Pin) Number() int { return p.number }

func (p *Pin) SetIRQ(edge hw.Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *Pin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = hw.EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

// IsOutput reports whether the pin is currently driven (not high impedance).
func (p *Pin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

// IRQArmed reports whether a handler is registered.
func (p *Pin) IRQArmed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.irqFunc != nil && p.irqEdge != hw.EdgeNone
}

// Configs counts Configure* calls.
func (p *Pin) Configs() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.configs
}

func edgeFrom(old, new bool) hw.Edge {
	switch {
	case !old && new:
		return hw.EdgeRising
	case old && !new:
		return hw.EdgeFalling
	default:
		return hw.EdgeNone
	}
}

func irqWanted(cfg, seen hw.Edge) bool {
	switch cfg {
	case hw.EdgeBoth:
		return seen == hw.EdgeRising || seen == hw.EdgeFalling
	case hw.EdgeNone:
		return false
	default:
		return cfg == seen
	}
}

// ---------------------------------------------------------------------------
// Compare timer
// ---------------------------------------------------------------------------

// ErrBadChannel is returned for channels beyond Timer's width.
var ErrBadChannel = errors.New("bad_channel")

const timerChannels = 4

// Timer simulates a four-channel compare timer.
type Timer struct {
	mu         sync.Mutex
	freqHz     uint32
	configures int
	armed      [timerChannels]bool
	invert     [timerChannels]bool
	arms       [timerChannels]int
}

var _ hw.CompareTimer = (*Timer)(nil)

func (t *Timer) Configure(freqHz uint32) error {
	t.mu.Lock()
	t.freqHz = freqHz
	t.configures++
	t.mu.Unlock()
	return nil
}

func (t *Timer) Arm(ch uint8, invert bool) error {
	if ch >= timerChannels {
		return ErrBadChannel
	}
	t.mu.Lock()
	t.armed[ch] = true
	t.invert[ch] = invert
	t.arms[ch]++
	t.mu.Unlock()
	return nil
}

func (t *Timer) Disarm(ch uint8) {
	if ch >= timerChannels {
		return
	}
	t.mu.Lock()
	t.armed[ch] = false
	t.invert[ch] = false
	t.mu.Unlock()
}

func (t *Timer) Armed(ch uint8) bool {
	if ch >= timerChannels {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed[ch]
}

// Inverted reports the phase of an armed channel.
func (t *Timer) Inverted(ch uint8) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ch < timerChannels && t.invert[ch]
}

// Arms counts Arm calls on ch.
func (t *Timer) Arms(ch uint8) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch >= timerChannels {
		return 0
	}
	return t.arms[ch]
}

func (t *Timer) FreqHz() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.freqHz
}

func (t *Timer) Configures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.configures
}

// ---------------------------------------------------------------------------
// System clock
// ---------------------------------------------------------------------------

type Clock struct {
	mu  sync.Mutex
	low bool
}

var _ hw.SystemClock = (*Clock)(nil)

func (c *Clock) SetLowPower(low bool) error {
	c.mu.Lock()
	c.low = low
	c.mu.Unlock()
	return nil
}

func (c *Clock) LowPower() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.low
}

// ---------------------------------------------------------------------------
// Serial
// ---------------------------------------------------------------------------

// ErrEmpty mirrors a UART with nothing buffered.
var ErrEmpty = errors.New("rx_empty")

// Serial is a loopback-free byte port: tests Inject received bytes and
// inspect what was written.
type Serial struct {
	mu sync.Mutex
	rx []byte
	tx bytes.Buffer
}

var _ hw.Serial = (*Serial)(nil)

func (s *Serial) Inject(p []byte) {
	s.mu.Lock()
	s.rx = append(s.rx, p...)
	s.mu.Unlock()
}

func (s *Serial) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rx)
}

func (s *Serial) ReadByte() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rx) == 0 {
		return 0, ErrEmpty
	}
	b := s.rx[0]
	s.rx = s.rx[1:]
	return b, nil
}

func (s *Serial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.Write(p)
}

// Output returns and clears everything written so far.
func (s *Serial) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.tx.String()
	s.tx.Reset()
	return out
}
