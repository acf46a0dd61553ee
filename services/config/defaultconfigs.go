package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "power": {
      "tick_ms": 1,
      "recovery_ms": 2000,
      "led_hold": 100,
      "console_baud": 115200,
      "sync_hz": 600000,
      "bus_addr": 40,
      "boot_enabled": ["3VB"],
      "telemetry_period_s": 10
  }
}`

const cfgHost = `{
  "power": {
      "tick_ms": 2,
      "recovery_ms": 500,
      "led_hold": 4,
      "boot_enabled": ["3VB", "5VA"],
      "verbose": true,
      "telemetry_period_s": 5
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"host": []byte(cfgHost),
}
