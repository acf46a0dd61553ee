package types

// ------------------------
// Supplies
// ------------------------

// Retained value: power/supply/<name>/state
type SupplyState struct {
	Name      string `json:"name"`      // "5VA", "5VB", "3VA", "3VB", "N12"
	Requested bool   `json:"requested"` // operator intent
	Enabled   bool   `json:"enabled"`   // regulator output switched on
	PowerGood bool   `json:"power_good"`
	Status    uint8  `json:"status"` // bus status byte
	Error     string `json:"error,omitempty"`
	TS        int64  `json:"ts_ms"`
}

// Retained value: power/fault
type FaultState struct {
	Fault bool  `json:"fault"` // a requested supply is not good
	TS    int64 `json:"ts_ms"`
}

// Retained value: power/standby
type StandbyState struct {
	Standby bool  `json:"standby"`
	Wakes   int   `json:"wakes"`
	TS      int64 `json:"ts_ms"`
}

// Controls

// Request on power/supply/<name>/set. Reply: SupplyReply.
type SupplySet struct {
	On bool `json:"on"`
}

// Request on power/standby/enter. Reply: SupplyReply without Status.
type StandbyEnter struct{}

type SupplyReply struct {
	OK     bool   `json:"ok"`
	Status uint8  `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}
