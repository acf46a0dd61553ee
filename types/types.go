package types

// ---- Service state (retained) ----

// Retained value: <service>/state
type ServiceState struct {
	Level  string `json:"level"`  // "idle", "ready", "stopped"
	Status string `json:"status"` // short code, errcode values on failure
	TS     int64  `json:"ts_ms"`
}
