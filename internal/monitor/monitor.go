// Package monitor reconciles requested supply states against the regulators,
// one supply per tick in fixed round-robin order.
package monitor

import (
	"time"

	"powerctl-go/internal/control"
	"powerctl-go/internal/ledmatrix"
	"powerctl-go/internal/supply"
)

// DefaultRecoveryDelay is how long the lifeline stays off after a requested
// power cycle before it is re-requested.
const DefaultRecoveryDelay = 2 * time.Second

// Indicator receives display state. ledmatrix.Driver implements it.
type Indicator interface {
	SetIndicator(id ledmatrix.ID, on bool)
}

// DefaultIndicators maps each supply to its LED.
var DefaultIndicators = [supply.Count + 1]ledmatrix.ID{
	supply.P5A: ledmatrix.LED5VA,
	supply.P5B: ledmatrix.LED5VB,
	supply.P3A: ledmatrix.LED3VA,
	supply.P3B: ledmatrix.LED3VB,
	supply.N12: ledmatrix.LEDN12,
}

type Options struct {
	RecoveryDelay time.Duration       // 0 selects DefaultRecoveryDelay
	Sleep         func(time.Duration) // nil selects time.Sleep

	Indicators     *[supply.Count + 1]ledmatrix.ID // nil selects DefaultIndicators
	FaultIndicator ledmatrix.ID                    // 0 selects ledmatrix.LEDFault
}

// Report describes one tick.
type Report struct {
	ID        supply.ID
	Requested bool  // request captured by this tick
	Enabled   bool  // regulator state after any action
	PowerGood bool  // power good as recorded in the store
	Switched  bool  // a hardware action was issued
	Fault     bool  // aggregate fault so far this cycle
	Err       error // hardware action error, if any
}

// Monitor is driven from the main loop only; it is not safe for concurrent
// Tick calls.
type Monitor struct {
	bank  *supply.Bank
	store *control.Store
	ind   Indicator

	delay    time.Duration
	sleep    func(time.Duration)
	leds     [supply.Count + 1]ledmatrix.ID
	faultLED ledmatrix.ID

	cursor  supply.ID
	fault   bool
	tripped [supply.Count + 1]bool // last hardware action failed
}

func New(bank *supply.Bank, store *control.Store, ind Indicator, o Options) *Monitor {
	m := &Monitor{
		bank:     bank,
		store:    store,
		ind:      ind,
		delay:    o.RecoveryDelay,
		sleep:    o.Sleep,
		leds:     DefaultIndicators,
		faultLED: o.FaultIndicator,
		cursor:   supply.P5A,
	}
	if m.delay <= 0 {
		m.delay = DefaultRecoveryDelay
	}
	if m.sleep == nil {
		m.sleep = time.Sleep
	}
	if o.Indicators != nil {
		m.leds = *o.Indicators
	}
	if m.faultLED == 0 {
		m.faultLED = ledmatrix.LEDFault
	}
	return m
}

// Cursor is the supply the next Tick will visit.
func (m *Monitor) Cursor() supply.ID { return m.cursor }

// Fault is the aggregate fault flag of the current cycle.
func (m *Monitor) Fault() bool { return m.fault }

// Tick services the supply under the cursor and advances it.
func (m *Monitor) Tick() Report {
	id := m.cursor
	reg := m.bank.Regulator(id)

	pg := reg.IsPowerGood() && !m.tripped[id]

	switched, want := m.store.Reconcile(id, pg)

	var err error
	if switched {
		// Outside the atomic section: regulator calls may be slow.
		if want {
			err = reg.Enable(true)
		} else {
			err = reg.Disable()
		}
		m.tripped[id] = err != nil
		if err != nil {
			println("[monitor]", id.String(), "action failed:", err.Error())
		}
		if !want && id == supply.Lifeline {
			println("[monitor]", id.String(), "power cycle, holding off")
			m.sleep(m.delay)
			m.store.Rearm(id)
		}
	}

	if id == supply.P5A {
		m.fault = false
	}
	if want && !pg {
		m.fault = true
	}

	if m.ind != nil {
		m.ind.SetIndicator(m.leds[id], pg && want)
		m.ind.SetIndicator(m.faultLED, m.fault)
	}

	m.cursor++
	if m.cursor > supply.N12 {
		m.cursor = supply.P5A
	}

	return Report{
		ID:        id,
		Requested: want,
		Enabled:   reg.IsEnabled(),
		PowerGood: pg,
		Switched:  switched,
		Fault:     m.fault,
		Err:       err,
	}
}
