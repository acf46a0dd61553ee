// Package ledmatrix drives the charlieplexed status LEDs: three pins, each
// LED sitting between an anode pin and a cathode pin. Refresh lights at most
// one LED per step and walks every (anode, cathode) pair in turn.
package ledmatrix

import "powerctl-go/internal/hw"

// ID encodes an LED as 0xAC: anode pin number in the high byte, cathode in
// the low byte. Pin numbers are 1..NumPins.
type ID uint16

const (
	LED5VA   ID = 0x0102
	LED5VB   ID = 0x0203
	LED3VA   ID = 0x0201
	LED3VB   ID = 0x0302
	LEDN12   ID = 0x0103
	LEDFault ID = 0x0301
)

const NumPins = 3

// DefaultHold is the number of Refresh calls an LED stays lit.
const DefaultHold = 100

func (id ID) anode() int   { return int(id >> 8) }
func (id ID) cathode() int { return int(id & 0xff) }

type phase uint8

const (
	phaseConfig phase = iota
	phaseHold
	phaseBlank
)

// Driver owns the matrix pins. SetIndicator and Refresh are both called
// from the main loop.
type Driver struct {
	pins  [NumPins + 1]hw.Pin // 1-based
	state [NumPins + 1][NumPins + 1]bool
	hold  uint16

	phase phase
	held  uint16
	row   int
	col   int
}

// New takes the A, B, C pins in order. hold of 0 selects DefaultHold.
func New(pins [NumPins]hw.Pin, hold uint16) *Driver {
	if hold == 0 {
		hold = DefaultHold
	}
	d := &Driver{hold: hold, phase: phaseBlank, row: 1, col: 1}
	for i, p := range pins {
		d.pins[i+1] = p
	}
	return d
}

// SetIndicator records the desired state of one LED. Ids outside the matrix
// are ignored.
func (d *Driver) SetIndicator(id ID, on bool) {
	a, c := id.anode(), id.cathode()
	if a < 1 || a > NumPins || c < 1 || c > NumPins {
		return
	}
	d.state[a][c] = on
}

// Indicator reports the recorded state of one LED.
func (d *Driver) Indicator(id ID) bool {
	a, c := id.anode(), id.cathode()
	if a < 1 || a > NumPins || c < 1 || c > NumPins {
		return false
	}
	return d.state[a][c]
}

// Refresh advances the scan by one step.
func (d *Driver) Refresh() {
	switch d.phase {
	case phaseConfig:
		if d.state[d.row][d.col] {
			d.light(d.row, d.col)
		}
		d.held = 0
		d.phase = phaseHold

	case phaseHold:
		if d.held == d.hold {
			d.phase = phaseBlank
		} else {
			d.held++
		}

	case phaseBlank:
		d.blank()
		d.col++
		if d.col > NumPins {
			d.col = 1
			d.row++
		}
		if d.row > NumPins {
			d.row = 1
		}
		d.phase = phaseConfig
	}
}

func (d *Driver) light(anode, cathode int) {
	_ = d.pins[anode].ConfigureOutput(true)
	_ = d.pins[cathode].ConfigureOutput(false)
}

func (d *Driver) blank() {
	for i := 1; i <= NumPins; i++ {
		_ = d.pins[i].ConfigureInput(hw.PullNone)
	}
}
