// Package control holds the per-supply control records shared between the
// monitor loop and the asynchronous command sources.
//
// Requested is written by command sources (console, bus ISR) and by the
// monitor's lifeline rule; PowerGood and Latched are written only by the
// monitor. Every read-modify-write, and every update touching more than one
// field, runs inside critical.Do.
package control

import (
	"powerctl-go/errcode"
	"powerctl-go/internal/critical"
	"powerctl-go/internal/supply"
)

// Record is one supply's control state.
type Record struct {
	Requested bool // latest desired state
	PowerGood bool // last polled hardware signal
	Latched   bool // enabled state the monitor last acted on
}

// Store holds one record per slot, slot 0 being the permanently invalid
// sentinel.
type Store struct {
	recs [supply.Count + 1]Record
}

func NewStore() *Store { return &Store{} }

func slot(id supply.ID) (int, error) {
	if !id.Valid() {
		return 0, errcode.UnknownSupply
	}
	return int(id), nil
}

// Request sets Requested for id.
func (s *Store) Request(id supply.ID, on bool) error {
	i, err := slot(id)
	if err != nil {
		return err
	}
	critical.Do(func() { s.recs[i].Requested = on })
	return nil
}

// Snapshot returns a consistent copy of id's record.
func (s *Store) Snapshot(id supply.ID) (Record, bool) {
	i, err := slot(id)
	if err != nil {
		return Record{}, false
	}
	var r Record
	critical.Do(func() { r = s.recs[i] })
	return r, true
}

// Status encodes id's record as the bus status byte. The sentinel always
// reads as StatusInvalid.
func (s *Store) Status(id supply.ID) Status {
	r, ok := s.Snapshot(id)
	if !ok {
		return StatusInvalid
	}
	return Encode(r)
}

// WriteBus applies a bus data byte to id. Only bit 0 is honoured; the other
// fields are left for the monitor.
func (s *Store) WriteBus(id supply.ID, b byte) error {
	return s.Request(id, Status(b).Requested())
}

// Reconcile is the monitor's atomic step: record the polled power-good,
// decide whether Requested moved since the last action and latch it.
func (s *Store) Reconcile(id supply.ID, pg bool) (switched, want bool) {
	i, err := slot(id)
	if err != nil {
		return false, false
	}
	critical.Do(func() {
		r := &s.recs[i]
		r.PowerGood = pg
		switched = r.Requested != r.Latched
		want = r.Requested
		r.Latched = want
	})
	return switched, want
}

// Rearm re-requests a supply the monitor must not leave off.
func (s *Store) Rearm(id supply.ID) {
	if !id.Valid() {
		return
	}
	critical.Do(func() { s.recs[id].Requested = true })
}
