// Package supply names the board's five power rails and binds each one to
// its regulator.
package supply

import "strings"

// ID identifies a supply. Valid ids are dense 1..Count; None is the
// "no supply selected" sentinel.
type ID uint8

const (
	None ID = iota
	P5A
	P5B
	P3A
	P3B
	N12
)

// Count is the number of real supplies.
const Count = 5

// Lifeline powers the controller itself and clocks the inverting rail.
const Lifeline = P3B

// Bulk are the supplies either of which can feed the inverting rail.
var Bulk = [2]ID{P5A, P5B}

var names = [Count + 1]string{
	None: "",
	P5A:  "5VA",
	P5B:  "5VB",
	P3A:  "3VA",
	P3B:  "3VB",
	N12:  "N12",
}

// All lists the valid ids in monitor order.
func All() [Count]ID { return [Count]ID{P5A, P5B, P3A, P3B, N12} }

func (id ID) Valid() bool { return id >= P5A && id <= N12 }

func (id ID) String() string {
	if !id.Valid() {
		return "none"
	}
	return names[id]
}

// Lookup resolves a supply name, ignoring case. Unknown names report false
// and never resolve to a real id.
func Lookup(name string) (ID, bool) {
	for _, id := range All() {
		if strings.EqualFold(name, names[id]) {
			return id, true
		}
	}
	return None, false
}

// FromByte maps a bus address byte to an id; anything outside 1..Count
// addresses the sentinel.
func FromByte(b byte) ID {
	id := ID(b)
	if !id.Valid() {
		return None
	}
	return id
}
