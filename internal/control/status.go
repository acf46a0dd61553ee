package control

// Status is the single-byte encoding of a Record used by the bus register
// protocol.
type Status uint8

const (
	BitRequested Status = 1 << 0
	BitPowerGood Status = 1 << 1
	BitLatched   Status = 1 << 2
	BitInvalid   Status = 1 << 7

	// StatusInvalid is what the sentinel slot reads as. No real record
	// encodes to it.
	StatusInvalid = BitInvalid
)

func Encode(r Record) Status {
	var s Status
	if r.Requested {
		s |= BitRequested
	}
	if r.PowerGood {
		s |= BitPowerGood
	}
	if r.Latched {
		s |= BitLatched
	}
	return s
}

func (s Status) Requested() bool { return s&BitRequested != 0 }
func (s Status) PowerGood() bool { return s&BitPowerGood != 0 }
func (s Status) Latched() bool   { return s&BitLatched != 0 }
func (s Status) Invalid() bool   { return s&BitInvalid != 0 }

// Record decodes s. The result is meaningless when Invalid.
func (s Status) Record() Record {
	return Record{Requested: s.Requested(), PowerGood: s.PowerGood(), Latched: s.Latched()}
}
