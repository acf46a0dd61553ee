package types

// Power plane configuration supplied on topic "config/power".
type PlaneConfig struct {
	TickMs          int      `json:"tick_ms"`            // main loop period
	RecoveryMs      int      `json:"recovery_ms"`        // lifeline off time on a power cycle
	LEDHold         int      `json:"led_hold"`           // refresh steps an LED stays lit
	ConsoleBaud     uint32   `json:"console_baud"`       // also sets the standby settle time
	SyncHz          uint32   `json:"sync_hz"`            // buck switching frequency
	BusAddr         uint16   `json:"bus_addr"`           // register protocol target address
	BootEnabled     []string `json:"boot_enabled"`       // supplies requested at start
	Verbose         bool     `json:"verbose"`            // console prints help on unknown commands
	TelemetryPeriod int      `json:"telemetry_period_s"` // 0 disables the summary log
}
