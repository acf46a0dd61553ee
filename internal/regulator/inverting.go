package regulator

import (
	"sync"

	"powerctl-go/errcode"
	"powerctl-go/internal/hw"
)

// InvertingConfig wires an inverting regulator and names the supplies it
// depends on: ClockRef drives its restorer clock and either Bulk supply can
// source its input current.
type InvertingConfig struct {
	Enable   hw.Pin
	PG       hw.Pin
	ClockRef Regulator
	Bulk     [2]Regulator
}

// Inverting is a negative-rail converter with a plain enable line.
type Inverting struct {
	cfg InvertingConfig

	once     sync.Once
	probeErr error
}

var _ Regulator = (*Inverting)(nil)

func NewInverting(cfg InvertingConfig) *Inverting { return &Inverting{cfg: cfg} }

func (r *Inverting) Probe() error {
	r.once.Do(func() {
		if err := r.cfg.Enable.ConfigureOutput(false); err != nil {
			r.probeErr = errcode.Wrap(errcode.HardwareFault, "inverting probe", err)
			return
		}
		if err := r.cfg.PG.ConfigureInput(hw.PullUp); err != nil {
			r.probeErr = errcode.Wrap(errcode.HardwareFault, "inverting probe", err)
		}
	})
	return r.probeErr
}

// Enable asserts the enable line; this topology has no sync mode.
func (r *Inverting) Enable(bool) error {
	r.cfg.Enable.Set(true)
	return nil
}

func (r *Inverting) Disable() error {
	r.cfg.Enable.Set(false)
	return nil
}

func (r *Inverting) IsEnabled() bool { return r.cfg.Enable.Get() }

// IsPowerGood needs the converter's own signal plus a good clock reference
// and at least one good bulk supply. Dependencies are queried on each call.
func (r *Inverting) IsPowerGood() bool {
	return r.cfg.PG.Get() &&
		good(r.cfg.ClockRef) &&
		(good(r.cfg.Bulk[0]) || good(r.cfg.Bulk[1]))
}

func good(reg Regulator) bool { return reg != nil && reg.IsPowerGood() }
