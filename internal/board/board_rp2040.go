//go:build rp2040

package board

import (
	"context"
	"device/rp"
	"errors"
	"machine"
	"sync/atomic"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"powerctl-go/errcode"
	"powerctl-go/internal/hw"
	"powerctl-go/services/plane"
	"powerctl-go/types"
	"powerctl-go/x/timex"
)

// Device is the embedded config key for this build.
const Device = "pico"

type Board struct {
	HW plane.Hardware
}

// Open configures the console UART and wraps the board pins. Regulator pins
// are configured later by the regulators' own probe.
func Open(ctx context.Context, cfg types.PlaneConfig) (*Board, error) {
	b := &Board{}

	for i := range syncPins {
		b.HW.Supply.Bucks[i].Sync = newPin(syncPins[i])
		b.HW.Supply.Bucks[i].PG = newPin(pgPins[i])
	}
	b.HW.Supply.Timer = newPWMTimer(syncPins)
	b.HW.Supply.SyncHz = cfg.SyncHz
	b.HW.Supply.N12.EN = newPin(pinENN12)
	b.HW.Supply.N12.PG = newPin(pinPGN12)
	for i, n := range ledPins {
		b.HW.LEDs[i] = newPin(n)
	}
	b.HW.Clock = &sysClock{}
	b.HW.Wake = newPin(pinConsoleRX)

	u := uartx.UART0
	if err := u.Configure(uartx.UARTConfig{
		BaudRate: cfg.ConsoleBaud,
		TX:       machine.Pin(pinConsoleTX),
		RX:       machine.Pin(pinConsoleRX),
	}); err != nil {
		return nil, errcode.Wrap(errcode.HardwareFault, "console", err)
	}
	con := &consoleSerial{rxQueue: newRxQueue(128), u: u}
	go con.pump(ctx)
	b.HW.Console = con
	return b, nil
}

// ServeBus answers register protocol transactions as an I2C target on
// I2C1. handle is called once per received write and once per read request.
func (b *Board) ServeBus(ctx context.Context, addr uint16, handle func(rx, tx []byte)) error {
	i2c := machine.I2C1
	if err := i2c.Configure(machine.I2CConfig{
		Mode: machine.I2CModeTarget,
		SDA:  machine.Pin(pinBusSDA),
		SCL:  machine.Pin(pinBusSCL),
	}); err != nil {
		return errcode.Wrap(errcode.HardwareFault, "bus target", err)
	}
	if err := i2c.Listen(addr); err != nil {
		return errcode.Wrap(errcode.HardwareFault, "bus target", err)
	}
	println("Info: register protocol on i2c1 address", addr)

	go func() {
		var buf [4]byte
		var tx [1]byte
		for ctx.Err() == nil {
			evt, n, err := i2c.WaitForEvent(buf[:])
			if err != nil {
				continue
			}
			switch evt {
			case machine.I2CReceive:
				handle(buf[:n], tx[:])
			case machine.I2CRequest:
				handle(nil, tx[:])
				_ = i2c.Reply(tx[:])
			case machine.I2CFinish:
			}
		}
	}()
	return nil
}

// -----------------------------------------------------------------------------
// GPIO
// -----------------------------------------------------------------------------

type rp2Pin struct {
	p machine.Pin
	n int
}

var _ hw.IRQPin = (*rp2Pin)(nil)

func newPin(n int) *rp2Pin { return &rp2Pin{p: machine.Pin(n), n: n} }

func (r *rp2Pin) ConfigureInput(pull hw.Pull) error {
	var mode machine.PinMode
	switch pull {
	case hw.PullUp:
		mode = machine.PinInputPullup
	case hw.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Set(initial)
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }
func (r *rp2Pin) Number() int    { return r.n }

func (r *rp2Pin) SetIRQ(edge hw.Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func toPinChange(e hw.Edge) machine.PinChange {
	switch e {
	case hw.EdgeRising:
		return machine.PinRising
	case hw.EdgeFalling:
		return machine.PinFalling
	case hw.EdgeBoth:
		return machine.PinToggle
	default:
		var zero machine.PinChange
		return zero
	}
}

// -----------------------------------------------------------------------------
// PWM as the buck compare timer
// -----------------------------------------------------------------------------

// Local interface to avoid depending on an unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Top() uint32
	Set(channel uint8, value uint32)
	SetInverting(channel uint8, inverting bool)
}

func pwmGroupBySlice(slice uint8) pwmCtrl {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

var errBadChannel = errors.New("bad_channel")

// pwmTimer runs every sync pin at the same frequency and 50% duty. Arming a
// channel hands its pin to the PWM function; disarming returns it to GPIO
// with whatever level was last Set.
type pwmTimer struct {
	pins  [4]machine.Pin
	ctrl  [4]pwmCtrl
	chIdx [4]uint8
	armed [4]atomic.Bool
}

func newPWMTimer(gpios [4]int) *pwmTimer {
	t := &pwmTimer{}
	for i, n := range gpios {
		t.pins[i] = machine.Pin(n)
		t.ctrl[i] = pwmGroupBySlice(uint8(n>>1) & 7)
		t.chIdx[i] = uint8(n & 1)
	}
	return t
}

// TODO: start the slices together through the PWM EN register so the
// antiphase pairs stay aligned across slices, not only within one.
func (t *pwmTimer) Configure(freqHz uint32) error {
	period := timex.PeriodFromHz(freqHz)
	for i, c := range t.ctrl {
		if i > 0 && c == t.ctrl[i-1] {
			continue
		}
		if err := c.Configure(machine.PWMConfig{Period: period}); err != nil {
			return err
		}
	}
	for i, c := range t.ctrl {
		c.Set(t.chIdx[i], c.Top()/2)
	}
	return nil
}

func (t *pwmTimer) Arm(ch uint8, invert bool) error {
	if ch >= 4 {
		return errBadChannel
	}
	t.ctrl[ch].SetInverting(t.chIdx[ch], invert)
	t.pins[ch].Configure(machine.PinConfig{Mode: machine.PinPWM})
	t.armed[ch].Store(true)
	return nil
}

func (t *pwmTimer) Disarm(ch uint8) {
	if ch >= 4 {
		return
	}
	t.pins[ch].Configure(machine.PinConfig{Mode: machine.PinOutput})
	t.armed[ch].Store(false)
}

func (t *pwmTimer) Armed(ch uint8) bool { return ch < 4 && t.armed[ch].Load() }

// -----------------------------------------------------------------------------
// System clock
// -----------------------------------------------------------------------------

const lowPowerDiv = 8

// sysClock divides clk_sys. Peripherals clocked from it (the console UART
// and the sync PWM) run slow while divided; standby accepts that.
type sysClock struct{ low atomic.Bool }

func (c *sysClock) SetLowPower(low bool) error {
	div := uint32(1)
	if low {
		div = lowPowerDiv
	}
	rp.CLOCKS.CLK_SYS_DIV.Set(div << rp.CLOCKS_CLK_SYS_DIV_INT_Pos)
	c.low.Store(low)
	return nil
}

func (c *sysClock) LowPower() bool { return c.low.Load() }

// -----------------------------------------------------------------------------
// Console
// -----------------------------------------------------------------------------

// consoleSerial queues received bytes for the main loop's non-blocking poll.
type consoleSerial struct {
	*rxQueue
	u *uartx.UART
}

func (s *consoleSerial) pump(ctx context.Context) {
	var buf [32]byte
	for ctx.Err() == nil {
		n, err := s.u.RecvSomeContext(ctx, buf[:])
		if err != nil {
			continue
		}
		s.push(buf[:n])
	}
}

func (s *consoleSerial) Write(p []byte) (int, error) { return s.u.Write(p) }
