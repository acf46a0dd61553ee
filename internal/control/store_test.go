package control

import (
	"sync"
	"testing"

	"powerctl-go/errcode"
	"powerctl-go/internal/supply"
)

func TestSentinelIsImmutable(t *testing.T) {
	s := NewStore()
	if err := s.Request(supply.None, true); err != errcode.UnknownSupply {
		t.Fatalf("Request(None) err = %v, want unknown_supply", err)
	}
	if err := s.WriteBus(supply.None, 0xff); err != errcode.UnknownSupply {
		t.Fatalf("WriteBus(None) err = %v", err)
	}
	if got := s.Status(supply.None); got != StatusInvalid {
		t.Fatalf("Status(None) = %#x, want %#x", got, StatusInvalid)
	}
	if _, ok := s.Snapshot(supply.None); ok {
		t.Fatal("Snapshot(None) should fail")
	}
	if s.recs[0] != (Record{}) {
		t.Fatal("sentinel record was mutated")
	}
}

func TestInvalidDistinctFromAllRecords(t *testing.T) {
	for v := 0; v < 8; v++ {
		r := Record{Requested: v&1 != 0, PowerGood: v&2 != 0, Latched: v&4 != 0}
		st := Encode(r)
		if st == StatusInvalid || st.Invalid() {
			t.Fatalf("record %+v encodes as invalid", r)
		}
		if st.Record() != r {
			t.Fatalf("decode(%#x) = %+v, want %+v", st, st.Record(), r)
		}
	}
}

func TestWriteBusHonoursBitZeroOnly(t *testing.T) {
	s := NewStore()
	id := supply.P3A
	_ = s.Request(id, true)
	s.Reconcile(id, true) // PowerGood=true, Latched=true

	if err := s.WriteBus(id, byte(BitPowerGood|BitLatched|BitInvalid)); err != nil {
		t.Fatal(err)
	}
	r, _ := s.Snapshot(id)
	want := Record{Requested: false, PowerGood: true, Latched: true}
	if r != want {
		t.Fatalf("after write: %+v, want %+v", r, want)
	}

	_ = s.WriteBus(id, 0x01)
	r, _ = s.Snapshot(id)
	if !r.Requested || !r.PowerGood || !r.Latched {
		t.Fatalf("bit0 write: %+v", r)
	}
}

func TestReconcileDetectsEdgesOnce(t *testing.T) {
	s := NewStore()
	id := supply.P5B

	if sw, _ := s.Reconcile(id, false); sw {
		t.Fatal("steady off reported a switch")
	}
	_ = s.Request(id, true)
	sw, want := s.Reconcile(id, false)
	if !sw || !want {
		t.Fatalf("rising request: switched=%v want=%v", sw, want)
	}
	if sw, _ := s.Reconcile(id, true); sw {
		t.Fatal("second reconcile of the same request switched again")
	}
	if r, _ := s.Snapshot(id); !r.PowerGood {
		t.Fatal("power good not recorded")
	}

	// Toggle twice between reconciles: last value wins, no edge.
	_ = s.Request(id, false)
	_ = s.Request(id, true)
	if sw, _ := s.Reconcile(id, true); sw {
		t.Fatal("collapsed toggle should not switch")
	}
}

func TestRearm(t *testing.T) {
	s := NewStore()
	s.Rearm(supply.Lifeline)
	if r, _ := s.Snapshot(supply.Lifeline); !r.Requested {
		t.Fatal("Rearm did not request")
	}
	s.Rearm(supply.None)
	if s.Status(supply.None) != StatusInvalid {
		t.Fatal("Rearm touched the sentinel slot")
	}
}

func TestConcurrentRequestsAndReconcile(t *testing.T) {
	s := NewStore()
	id := supply.N12
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			_ = s.WriteBus(id, byte(i&1))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			s.Reconcile(id, false)
		}
	}()
	wg.Wait()
	// Last write was 1999&1 == 1.
	r, _ := s.Snapshot(id)
	if !r.Requested {
		t.Fatal("final requested state lost")
	}
	sw, want := s.Reconcile(id, false)
	r, _ = s.Snapshot(id)
	if r.Latched != want || (sw && !want) {
		t.Fatalf("latched=%v want=%v switched=%v", r.Latched, want, sw)
	}
}
