// Package standby implements the Active/Standby power state machine.
//
// Enter forces the low-power posture directly on the regulators and leaves
// the control records alone. The only way back to Active is the wake interrupt on the command-input line, whose
// handler restores the clock and clears the standby flag and nothing more.
package standby

import (
	"sync/atomic"
	"time"

	"powerctl-go/internal/hw"
	"powerctl-go/internal/supply"
	"powerctl-go/x/mathx"
)

type State uint8

const (
	Active State = iota
	Standby
)

func (s State) String() string {
	if s == Standby {
		return "standby"
	}
	return "active"
}

// DefaultByteTime is one 10-bit character at 115200 baud.
const DefaultByteTime = 87 * time.Microsecond

type Options struct {
	// ByteTime is the duration of one command byte on the console line.
	ByteTime time.Duration
	Sleep    func(time.Duration)
}

type Controller struct {
	bank  *supply.Bank
	clock hw.SystemClock
	wake  hw.IRQPin

	byteTime time.Duration
	sleep    func(time.Duration)

	standby atomic.Bool // written by Enter and the wake ISR
	woke    atomic.Bool // set by the wake ISR, consumed by Poll

	// Main loop only: a wake was seen since the last Enter.
	settle bool
}

// ByteTime returns the duration of one 10-bit character at baud, rounded
// up to the next nanosecond.
func ByteTime(baud uint32) time.Duration {
	if baud == 0 {
		return DefaultByteTime
	}
	return time.Duration(mathx.CeilDiv(10*uint64(time.Second), uint64(baud)))
}

func New(bank *supply.Bank, clock hw.SystemClock, wake hw.IRQPin, o Options) *Controller {
	c := &Controller{
		bank:     bank,
		clock:    clock,
		wake:     wake,
		byteTime: o.ByteTime,
		sleep:    o.Sleep,
	}
	if c.byteTime <= 0 {
		c.byteTime = DefaultByteTime
	}
	if c.sleep == nil {
		c.sleep = time.Sleep
	}
	return c
}

func (c *Controller) InStandby() bool { return c.standby.Load() }

func (c *Controller) State() State {
	if c.InStandby() {
		return Standby
	}
	return Active
}

// Enter switches to Standby: every supply but the lifeline off, lifeline
// free-running, slow clock, wake interrupt armed. Control records are not
// touched: a supply still requested after a wake reads as not good, and
// counts as a fault, until it is disabled and enabled again. Calling it in Standby is a
// no-op. Errors from individual regulators are reported after the posture
// has been applied as far as possible.
func (c *Controller) Enter() error {
	if c.InStandby() {
		return nil
	}
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	for _, id := range supply.All() {
		if id == supply.Lifeline {
			continue
		}
		keep(c.bank.Regulator(id).Disable())
	}
	keep(c.bank.Regulator(supply.Lifeline).Enable(false))
	keep(c.clock.SetLowPower(true))

	// Let the tail of the character that woke us pass before rearming.
	if c.settle {
		c.sleep(c.byteTime)
		c.settle = false
	}

	c.standby.Store(true)
	if err := c.wake.SetIRQ(hw.EdgeFalling, c.onWake); err != nil {
		// Without a wake source we must not stay in standby.
		c.standby.Store(false)
		_ = c.clock.SetLowPower(false)
		return err
	}
	println("[standby] entered")
	return first
}

// onWake runs in interrupt context.
func (c *Controller) onWake() {
	_ = c.wake.ClearIRQ()
	_ = c.clock.SetLowPower(false)
	c.standby.Store(false)
	c.woke.Store(true)
}

// Poll is called from the main loop. It reports a completed wake once and
// puts the lifeline back on the switching clock.
func (c *Controller) Poll() bool {
	if !c.woke.Swap(false) {
		return false
	}
	c.settle = true
	if err := c.bank.Regulator(supply.Lifeline).Enable(true); err != nil {
		println("[standby] lifeline resync failed:", err.Error())
	}
	println("[standby] woke")
	return true
}
