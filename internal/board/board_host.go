//go:build !rp2040

package board

import (
	"bufio"
	"context"
	"io"
	"os"

	"powerctl-go/internal/hw/hwsim"
	"powerctl-go/internal/supply"
	"powerctl-go/services/plane"
	"powerctl-go/types"
)

// Device is the embedded config key for this build.
const Device = "host"

type Board struct {
	HW plane.Hardware

	Timer *hwsim.Timer
	Wake  *hwsim.Pin
}

// Open builds a simulated board with the console on the process terminal.
func Open(ctx context.Context, cfg types.PlaneConfig) (*Board, error) {
	return open(ctx, cfg, os.Stdin, os.Stdout)
}

// open builds a simulated board. Each converter reports power good whenever
// it is switched on, so the plane behaves like healthy hardware. Console
// bytes come from in and go to out.
func open(ctx context.Context, cfg types.PlaneConfig, in io.Reader, out io.Writer) (*Board, error) {
	b := &Board{Timer: &hwsim.Timer{}, Wake: hwsim.NewPin(pinConsoleRX)}
	b.Wake.Drive(true) // UART idle

	for i := range syncPins {
		sync := hwsim.NewPin(syncPins[i])
		ch := uint8(i)
		b.HW.Supply.Bucks[i] = supply.BuckPins{
			Sync: sync,
			PG: &healthy{
				Pin: hwsim.NewPin(pgPins[i]),
				on:  func() bool { return sync.Get() || b.Timer.Armed(ch) },
			},
		}
	}
	b.HW.Supply.Timer = b.Timer
	b.HW.Supply.SyncHz = cfg.SyncHz
	en := hwsim.NewPin(pinENN12)
	b.HW.Supply.N12.EN = en
	b.HW.Supply.N12.PG = &healthy{Pin: hwsim.NewPin(pinPGN12), on: en.Get}
	for i, n := range ledPins {
		b.HW.LEDs[i] = hwsim.NewPin(n)
	}
	b.HW.Clock = &hwsim.Clock{}
	b.HW.Wake = b.Wake

	con := &hostSerial{rxQueue: newRxQueue(256), out: out}
	go con.pump(ctx, in, b.Wake)
	b.HW.Console = con
	return b, nil
}

// ServeBus has no bus peripheral to listen on in the simulator.
func (b *Board) ServeBus(ctx context.Context, addr uint16, handle func(rx, tx []byte)) error {
	println("Info: no register bus on host; address", addr, "unused")
	return nil
}

// healthy is a power-good input that follows its converter's enable.
type healthy struct {
	*hwsim.Pin
	on func() bool
}

func (h *healthy) Get() bool { return h.on() }

// hostSerial feeds stdin to the console poll. Every received byte also
// pulses the wake line like a UART start bit.
type hostSerial struct {
	*rxQueue
	out io.Writer
}

func (s *hostSerial) pump(ctx context.Context, in io.Reader, wake *hwsim.Pin) {
	r := bufio.NewReader(in)
	for ctx.Err() == nil {
		b, err := r.ReadByte()
		if err != nil {
			return
		}
		wake.Drive(false)
		wake.Drive(true)
		s.push([]byte{b})
	}
}

func (s *hostSerial) Write(p []byte) (int, error) { return s.out.Write(p) }
