package supply

import (
	"powerctl-go/internal/hw"
	"powerctl-go/internal/regulator"
)

// BuckPins is the per-buck wiring provided by a board.
type BuckPins struct {
	Sync hw.Pin
	PG   hw.Pin
}

// Hardware is everything a board hands to NewBank.
type Hardware struct {
	Timer  hw.CompareTimer
	SyncHz uint32      // 0 selects regulator.DefaultSwitchingHz
	Bucks  [4]BuckPins // P5A..P3B, indexed by id-1
	N12    struct{ EN, PG hw.Pin }
}

// bucks holds the fixed compare channel and phase of each buck. Neighbouring
// converters run in antiphase to spread switching noise.
var bucks = [4]struct {
	id       ID
	channel  uint8
	phase180 bool
}{
	{P5A, 0, false},
	{P5B, 1, true},
	{P3A, 2, true},
	{P3B, 3, false},
}

// Bank maps supply ids to regulator instances. It is built once at startup.
type Bank struct {
	regs [Count + 1]regulator.Regulator
}

func NewBank(h Hardware) *Bank {
	b := &Bank{}
	g := regulator.NewBuckGroup(h.Timer, h.SyncHz)
	for i, w := range bucks {
		b.regs[w.id] = g.NewBuck(regulator.BuckConfig{
			Sync:     h.Bucks[i].Sync,
			PG:       h.Bucks[i].PG,
			Channel:  w.channel,
			Phase180: w.phase180,
		})
	}
	b.regs[N12] = regulator.NewInverting(regulator.InvertingConfig{
		Enable:   h.N12.EN,
		PG:       h.N12.PG,
		ClockRef: b.regs[Lifeline],
		Bulk:     [2]regulator.Regulator{b.regs[Bulk[0]], b.regs[Bulk[1]]},
	})
	return b
}

// Regulator returns the regulator for id, or nil for the sentinel.
func (b *Bank) Regulator(id ID) regulator.Regulator {
	if !id.Valid() {
		return nil
	}
	return b.regs[id]
}

// Probe probes every regulator in id order and returns the first error.
func (b *Bank) Probe() error {
	var first error
	for _, id := range All() {
		if err := b.regs[id].Probe(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
