package regulator

import (
	"sync"

	"powerctl-go/errcode"
	"powerctl-go/internal/hw"
)

// DefaultSwitchingHz is the buck switching frequency when synchronized.
const DefaultSwitchingHz = 600_000

// BuckGroup owns the hardware shared by all buck regulators: the compare
// timer and the pin banks. Probing any member probes the whole group once.
type BuckGroup struct {
	timer  hw.CompareTimer
	freqHz uint32

	once     sync.Once
	probeErr error
	members  []*Buck
}

func NewBuckGroup(timer hw.CompareTimer, freqHz uint32) *BuckGroup {
	if freqHz == 0 {
		freqHz = DefaultSwitchingHz
	}
	return &BuckGroup{timer: timer, freqHz: freqHz}
}

// BuckConfig is the immutable wiring of one buck.
type BuckConfig struct {
	Sync     hw.Pin // enable / sync input of the converter
	PG       hw.Pin // power-good output of the converter
	Channel  uint8  // compare channel routed to Sync
	Phase180 bool   // run inverted relative to phase-0 members
}

// Buck is a step-down converter enabled through its sync pin, either held
// high (free-running) or clocked by a compare channel (synchronized).
type Buck struct {
	g   *BuckGroup
	cfg BuckConfig
}

var (
	_ Regulator = (*Buck)(nil)
	_ Syncer    = (*Buck)(nil)
)

// NewBuck adds a buck to the group.
func (g *BuckGroup) NewBuck(cfg BuckConfig) *Buck {
	b := &Buck{g: g, cfg: cfg}
	g.members = append(g.members, b)
	return b
}

func (g *BuckGroup) probe() error {
	g.once.Do(func() {
		for _, m := range g.members {
			if err := m.cfg.Sync.ConfigureOutput(false); err != nil {
				g.probeErr = errcode.Wrap(errcode.HardwareFault, "buck probe", err)
				return
			}
			if err := m.cfg.PG.ConfigureInput(hw.PullUp); err != nil {
				g.probeErr = errcode.Wrap(errcode.HardwareFault, "buck probe", err)
				return
			}
		}
		if err := g.timer.Configure(g.freqHz); err != nil {
			g.probeErr = errcode.Wrap(errcode.HardwareFault, "buck probe", err)
		}
	})
	return g.probeErr
}

func (b *Buck) Probe() error { return b.g.probe() }

func (b *Buck) Enable(sync bool) error {
	if sync {
		if err := b.g.timer.Arm(b.cfg.Channel, b.cfg.Phase180); err != nil {
			return errcode.Wrap(errcode.HardwareFault, "buck enable", err)
		}
		return nil
	}
	b.cfg.Sync.Set(true)
	b.g.timer.Disarm(b.cfg.Channel)
	return nil
}

func (b *Buck) Disable() error {
	b.g.timer.Disarm(b.cfg.Channel)
	b.cfg.Sync.Set(false)
	return nil
}

func (b *Buck) IsEnabled() bool {
	return b.g.timer.Armed(b.cfg.Channel) || b.cfg.Sync.Get()
}

func (b *Buck) IsPowerGood() bool {
	return b.cfg.PG.Get() && b.IsEnabled()
}

// Synchronized reports whether the buck is following the compare timer.
func (b *Buck) Synchronized() bool { return b.g.timer.Armed(b.cfg.Channel) }
