package plane

import (
	"context"
	"testing"
	"time"

	"powerctl-go/bus"
	"powerctl-go/internal/hw/hwsim"
	"powerctl-go/internal/ledmatrix"
	"powerctl-go/internal/supply"
	"powerctl-go/services/config"
	"powerctl-go/types"
)

type rig struct {
	timer *hwsim.Timer
	pg    [supply.Count + 1]*hwsim.Pin
	rx    *hwsim.Pin
	clock *hwsim.Clock
	port  *hwsim.Serial
	bus   *bus.Bus
	conn  *bus.Connection
	slept []time.Duration
	p     *Plane
}

func newRig(t *testing.T, mutate func(*types.PlaneConfig)) *rig {
	t.Helper()
	r := &rig{
		timer: &hwsim.Timer{},
		rx:    hwsim.NewPin(1),
		clock: &hwsim.Clock{},
		port:  &hwsim.Serial{},
		bus:   bus.NewBus(16),
	}
	r.conn = r.bus.NewConnection("plane")
	var h Hardware
	h.Supply.Timer = r.timer
	for i := range h.Supply.Bucks {
		r.pg[i+1] = hwsim.NewPin(10 + i)
		h.Supply.Bucks[i] = supply.BuckPins{Sync: hwsim.NewPin(2 + i), PG: r.pg[i+1]}
	}
	r.pg[supply.N12] = hwsim.NewPin(21)
	h.Supply.N12.EN, h.Supply.N12.PG = hwsim.NewPin(20), r.pg[supply.N12]
	for i := range h.LEDs {
		h.LEDs[i] = hwsim.NewPin(26 + i)
	}
	r.rx.Drive(true)
	h.Clock, h.Wake, h.Console = r.clock, r.rx, r.port

	cfg := config.DefaultPlane()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := New(h, cfg, r.conn, Options{
		Sleep: func(d time.Duration) { r.slept = append(r.slept, d) },
		Now:   func() int64 { return 42 },
	})
	if err != nil {
		t.Fatal(err)
	}
	r.p = p
	return r
}

func (r *rig) cycles(n int) {
	for i := 0; i < n*supply.Count; i++ {
		r.p.Step()
	}
}

func (r *rig) allPG(level bool) {
	for _, p := range r.pg[1:] {
		p.Drive(level)
	}
}

func latest(t *testing.T, sub *bus.Subscription) *bus.Message {
	t.Helper()
	var last *bus.Message
	for {
		select {
		case m := <-sub.Channel():
			last = m
		default:
			if last == nil {
				t.Fatal("no message")
			}
			return last
		}
	}
}

func TestBootBringsUpLifeline(t *testing.T) {
	r := newRig(t, nil)
	r.allPG(true)
	r.cycles(2)

	if !r.timer.Armed(3) {
		t.Fatal("lifeline not switching")
	}
	if r.timer.FreqHz() != 600_000 {
		t.Fatalf("timer at %d Hz", r.timer.FreqHz())
	}
	sub := r.conn.Subscribe(bus.T("power", "supply", "3VB", "state"))
	st := latest(t, sub).Payload.(types.SupplyState)
	if !st.Requested || !st.Enabled || !st.PowerGood || st.Status != 0x07 || st.TS != 42 {
		t.Fatalf("3VB state = %+v", st)
	}
	if !r.p.LEDs.Indicator(ledmatrix.LED3VB) {
		t.Fatal("lifeline LED off")
	}
}

func TestConsoleEnable(t *testing.T) {
	r := newRig(t, nil)
	r.port.Inject([]byte("en 5va n12\r"))
	r.cycles(1)
	r.cycles(1)
	if !r.timer.Armed(0) {
		t.Fatal("5VA not enabled from the console")
	}
	if !r.p.Bank.Regulator(supply.N12).IsEnabled() {
		t.Fatal("N12 not enabled from the console")
	}

	r.port.Output()
	r.port.Inject([]byte("status 1\r"))
	r.p.Step()
	if got := r.port.Output(); got != "status 1\r\n5VA requested=on good=no latched=on [0x05]\r\n> " {
		t.Fatalf("console = %q", got)
	}
}

func TestFaultPublishedPerCycle(t *testing.T) {
	r := newRig(t, nil) // 3VB requested, PG never asserted
	sub := r.conn.Subscribe(bus.T("power", "fault"))
	r.cycles(2)
	if f := latest(t, sub).Payload.(types.FaultState); !f.Fault {
		t.Fatal("fault not published")
	}
	r.allPG(true)
	r.cycles(2)
	if f := latest(t, sub).Payload.(types.FaultState); f.Fault {
		t.Fatal("fault not cleared")
	}
}

func TestStandbyRoundTrip(t *testing.T) {
	r := newRig(t, func(c *types.PlaneConfig) { c.BootEnabled = []string{"3VB", "5VA"} })
	r.allPG(true)
	r.cycles(2)
	sub := r.conn.Subscribe(bus.T("power", "standby"))

	r.port.Inject([]byte("standby\r"))
	r.p.Step()
	if sb := latest(t, sub).Payload.(types.StandbyState); !sb.Standby {
		t.Fatal("standby not published")
	}
	if r.timer.Armed(0) || !r.clock.LowPower() {
		t.Fatal("standby posture not applied")
	}

	r.rx.Drive(false)
	r.rx.Drive(true)
	r.p.Step()
	sb := latest(t, sub).Payload.(types.StandbyState)
	if sb.Standby || sb.Wakes != 1 {
		t.Fatalf("after wake: %+v", sb)
	}
	if !r.timer.Armed(3) {
		t.Fatal("lifeline not resynchronized")
	}
	if r.timer.Armed(0) {
		t.Fatal("5VA came back without a request")
	}

	// 5VA is still requested but off: it reads as a fault until cycled.
	faults := r.conn.Subscribe(bus.T("power", "fault"))
	r.cycles(2)
	if f := latest(t, faults).Payload.(types.FaultState); !f.Fault {
		t.Fatal("requested supply left off by standby not reported")
	}
	if st, _ := r.p.Store.Snapshot(supply.P5A); !st.Requested || !st.Latched {
		t.Fatalf("5VA record rewritten: %+v", st)
	}
	r.port.Inject([]byte("disable 5VA\r"))
	r.cycles(2)
	r.port.Inject([]byte("enable 5VA\r"))
	r.cycles(2)
	if !r.timer.Armed(0) {
		t.Fatal("5VA not re-enabled after disable/enable")
	}
}

func TestBusRequests(t *testing.T) {
	r := newRig(t, func(c *types.PlaneConfig) { c.TickMs = 1 })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.p.Run(ctx)

	client := r.bus.NewConnection("client")
	ask := func(topic bus.Topic, payload any) types.SupplyReply {
		t.Helper()
		rctx, rcancel := context.WithTimeout(ctx, time.Second)
		defer rcancel()
		m, err := client.RequestWait(rctx, client.NewMessage(topic, payload, false))
		if err != nil {
			t.Fatalf("%v: %v", topic, err)
		}
		return m.Payload.(types.SupplyReply)
	}

	if rep := ask(bus.T("power", "supply", "5vb", "set"), types.SupplySet{On: true}); !rep.OK || rep.Status&1 == 0 {
		t.Fatalf("set reply = %+v", rep)
	}
	if rep := ask(bus.T("power", "supply", "9V", "set"), true); rep.OK || rep.Error != "unknown_supply" {
		t.Fatalf("bad name reply = %+v", rep)
	}
	if rep := ask(bus.T("power", "supply", "3VA", "set"), "on"); rep.Error != "invalid_payload" {
		t.Fatalf("bad payload reply = %+v", rep)
	}
	if rep := ask(bus.T("power", "supply", "N12", "set"), map[string]any{"on": true}); !rep.OK {
		t.Fatalf("map payload reply = %+v", rep)
	}
	if rep := ask(bus.T("power", "standby", "enter"), types.StandbyEnter{}); !rep.OK {
		t.Fatalf("standby reply = %+v", rep)
	}
	if rep := ask(bus.T("power", "standby", "enter"), nil); rep.Error != "in_standby" {
		t.Fatalf("second standby reply = %+v", rep)
	}
}

func TestTransactionPassthrough(t *testing.T) {
	r := newRig(t, nil)
	r.allPG(true)
	r.cycles(2)
	tx := make([]byte, 1)
	r.p.Transaction([]byte{5}, tx)
	if tx[0] != 0x00 {
		t.Fatalf("N12 = %#x", tx[0])
	}
	r.p.Transaction([]byte{4}, tx)
	if tx[0] != 0x07 {
		t.Fatalf("3VB = %#x", tx[0])
	}
}

func TestUnknownBootSupplyIgnored(t *testing.T) {
	r := newRig(t, func(c *types.PlaneConfig) { c.BootEnabled = []string{"12V", "3VA"} })
	if rec, _ := r.p.Store.Snapshot(supply.P3A); !rec.Requested {
		t.Fatal("3VA not requested")
	}
	if rec, _ := r.p.Store.Snapshot(supply.P3B); rec.Requested {
		t.Fatal("lifeline requested without being listed")
	}
}
