// Package plane assembles the power control plane and runs its cooperative
// main loop: one monitor tick, one LED refresh, one console poll and one
// standby check per iteration. State changes are published retained on the
// bus; supplies can also be driven through bus requests.
package plane

import (
	"context"
	"time"

	"powerctl-go/bus"
	"powerctl-go/errcode"
	"powerctl-go/internal/console"
	"powerctl-go/internal/control"
	"powerctl-go/internal/hw"
	"powerctl-go/internal/ledmatrix"
	"powerctl-go/internal/monitor"
	"powerctl-go/internal/protocol"
	"powerctl-go/internal/standby"
	"powerctl-go/internal/supply"
	"powerctl-go/types"
	"powerctl-go/x/timex"
)

// Hardware is everything a board provides.
type Hardware struct {
	Supply  supply.Hardware
	LEDs    [ledmatrix.NumPins]hw.Pin
	Clock   hw.SystemClock
	Wake    hw.IRQPin // console RX line
	Console hw.Serial
}

type Options struct {
	Sleep func(time.Duration) // nil selects time.Sleep
	Now   func() int64        // milliseconds; nil selects timex.NowMs
}

var (
	topicState        = bus.Topic{"power", "state"}
	topicFault        = bus.Topic{"power", "fault"}
	topicStandby      = bus.Topic{"power", "standby"}
	topicSupplySet    = bus.Topic{"power", "supply", "+", "set"}
	topicStandbyEnter = bus.Topic{"power", "standby", "enter"}
)

func supplyTopic(id supply.ID) bus.Topic {
	return bus.T("power", "supply", id.String(), "state")
}

type Plane struct {
	cfg  types.PlaneConfig
	conn *bus.Connection
	now  func() int64

	Bank    *supply.Bank
	Store   *control.Store
	Monitor *monitor.Monitor
	Standby *standby.Controller
	Server  *protocol.Server
	LEDs    *ledmatrix.Driver
	Shell   *console.Shell

	setSub *bus.Subscription
	sbSub  *bus.Subscription

	// Last published values, main loop only.
	published [supply.Count + 1]types.SupplyState
	havePub   [supply.Count + 1]bool
	faultPub  bool
	haveFault bool
	sbPub     bool
	haveSB    bool
	wakes     int
}

// New probes the regulators, builds every component and requests the
// boot-enabled supplies. conn may be nil to run without the bus.
func New(h Hardware, cfg types.PlaneConfig, conn *bus.Connection, o Options) (*Plane, error) {
	if o.Now == nil {
		o.Now = timex.NowMs
	}
	if h.Supply.SyncHz == 0 {
		h.Supply.SyncHz = cfg.SyncHz
	}

	bank := supply.NewBank(h.Supply)
	if err := bank.Probe(); err != nil {
		return nil, errcode.Wrap(errcode.NotProbed, "plane", err)
	}
	store := control.NewStore()
	leds := ledmatrix.New(h.LEDs, uint16(cfg.LEDHold))
	mon := monitor.New(bank, store, leds, monitor.Options{
		RecoveryDelay: time.Duration(cfg.RecoveryMs) * time.Millisecond,
		Sleep:         o.Sleep,
	})
	sb := standby.New(bank, h.Clock, h.Wake, standby.Options{
		ByteTime: standby.ByteTime(cfg.ConsoleBaud),
		Sleep:    o.Sleep,
	})
	srv := protocol.New(store, sb)
	srv.Verbose = cfg.Verbose

	p := &Plane{
		cfg:     cfg,
		conn:    conn,
		now:     o.Now,
		Bank:    bank,
		Store:   store,
		Monitor: mon,
		Standby: sb,
		Server:  srv,
		LEDs:    leds,
	}
	p.Shell = console.New(h.Console, srv.Command, console.Options{Echo: true})

	for _, name := range cfg.BootEnabled {
		id, ok := supply.Lookup(name)
		if !ok {
			println("[plane] unknown boot supply:", name)
			continue
		}
		_ = store.Request(id, true)
	}

	if conn != nil {
		p.setSub = conn.Subscribe(topicSupplySet)
		p.sbSub = conn.Subscribe(topicStandbyEnter)
		p.publishState("ready", "ok")
	}
	println("Info: power plane ready")
	return p, nil
}

// Transaction is the bus register entry point for the board's target driver.
func (p *Plane) Transaction(rx, tx []byte) { p.Server.Transaction(rx, tx) }

// Step runs one main loop iteration.
func (p *Plane) Step() {
	rep := p.Monitor.Tick()
	p.publishSupply(rep)
	if rep.ID == supply.N12 {
		p.publishFault(rep.Fault)
	}
	p.LEDs.Refresh()
	p.Shell.Poll()
	if p.Standby.Poll() {
		p.wakes++
	}
	p.publishStandby()
	p.serveRequests()
}

// Run steps the plane every TickMs until ctx is done.
func (p *Plane) Run(ctx context.Context) {
	period := time.Duration(p.cfg.TickMs) * time.Millisecond
	if period <= 0 {
		period = time.Millisecond
	}
	tick := time.NewTicker(period)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			p.publishState("stopped", "ok")
			println("Info: power plane stopping")
			return
		case <-tick.C:
			p.Step()
		}
	}
}

// -----------------------------------------------------------------------------
// Publishing
// -----------------------------------------------------------------------------

func (p *Plane) publish(topic bus.Topic, payload any) {
	if p.conn == nil {
		return
	}
	p.conn.Publish(p.conn.NewMessage(topic, payload, true))
}

func (p *Plane) publishState(level, status string) {
	p.publish(topicState, types.ServiceState{Level: level, Status: status, TS: p.now()})
}

func (p *Plane) publishSupply(rep monitor.Report) {
	st := types.SupplyState{
		Name:      rep.ID.String(),
		Requested: rep.Requested,
		Enabled:   rep.Enabled,
		PowerGood: rep.PowerGood,
		Status:    uint8(p.Store.Status(rep.ID)),
	}
	if rep.Err != nil {
		st.Error = string(errcode.Of(rep.Err))
	}
	if p.havePub[rep.ID] && p.published[rep.ID] == st {
		return
	}
	p.published[rep.ID], p.havePub[rep.ID] = st, true
	st.TS = p.now()
	p.publish(supplyTopic(rep.ID), st)
}

func (p *Plane) publishFault(fault bool) {
	if p.haveFault && p.faultPub == fault {
		return
	}
	p.faultPub, p.haveFault = fault, true
	if fault {
		println("[plane] fault: a requested supply is not good")
	}
	p.publish(topicFault, types.FaultState{Fault: fault, TS: p.now()})
}

func (p *Plane) publishStandby() {
	in := p.Standby.InStandby()
	if p.haveSB && p.sbPub == in {
		return
	}
	p.sbPub, p.haveSB = in, true
	p.publish(topicStandby, types.StandbyState{Standby: in, Wakes: p.wakes, TS: p.now()})
}

// -----------------------------------------------------------------------------
// Bus requests
// -----------------------------------------------------------------------------

func (p *Plane) serveRequests() {
	if p.conn == nil {
		return
	}
	for {
		select {
		case m := <-p.setSub.Channel():
			p.reply(m, p.handleSet(m))
		case m := <-p.sbSub.Channel():
			p.reply(m, p.handleStandby())
		default:
			return
		}
	}
}

func (p *Plane) reply(m *bus.Message, r types.SupplyReply) {
	if len(m.ReplyTo) == 0 {
		return
	}
	_ = p.conn.Reply(m, r, false)
}

func failed(err error) types.SupplyReply {
	return types.SupplyReply{Error: string(errcode.Of(err))}
}

func (p *Plane) handleSet(m *bus.Message) types.SupplyReply {
	name, _ := m.Topic[2].(string)
	id, ok := supply.Lookup(name)
	if !ok {
		return failed(errcode.UnknownSupply)
	}
	on, ok := setPayload(m.Payload)
	if !ok {
		return failed(errcode.InvalidPayload)
	}
	if err := p.Store.Request(id, on); err != nil {
		return failed(err)
	}
	return types.SupplyReply{OK: true, Status: uint8(p.Store.Status(id))}
}

// setPayload accepts types.SupplySet, a bare bool or a decoded JSON object
// with an "on" field.
func setPayload(v any) (on, ok bool) {
	switch x := v.(type) {
	case types.SupplySet:
		return x.On, true
	case *types.SupplySet:
		if x == nil {
			return false, false
		}
		return x.On, true
	case bool:
		return x, true
	case map[string]any:
		on, ok = x["on"].(bool)
		return on, ok
	}
	return false, false
}

func (p *Plane) handleStandby() types.SupplyReply {
	if p.Standby.InStandby() {
		return failed(errcode.InStandby)
	}
	if err := p.Standby.Enter(); err != nil {
		return failed(err)
	}
	return types.SupplyReply{OK: true}
}
