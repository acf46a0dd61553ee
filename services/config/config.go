package config

import (
	"context"
	"errors"

	"powerctl-go/bus"
	"powerctl-go/errcode"
	"powerctl-go/types"
	"powerctl-go/x/mathx"

	"github.com/andreyvit/tinyjson"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	planeKey     = "power"
	CtxDeviceKey = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// load decodes the embedded document for device into its top-level sections.
func load(device string) (m map[string]any, err error) {
	if device == "" {
		return nil, errors.New("missing device ID")
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, errors.New("no embedded config for device: " + device)
	}

	// tinyjson panics on malformed input.
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, &errcode.E{C: errcode.InvalidPayload, Op: "config", Msg: "malformed JSON"}
		}
	}()
	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()

	m, ok = val.(map[string]any)
	if !ok {
		return nil, errors.New("embedded config is not a JSON object")
	}
	return m, nil
}

// publishConfig reads the device config from embedded data and publishes it as retained messages.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	m, err := load(device)
	if err != nil {
		return err
	}
	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	return nil
}

// Start publishes the device config in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("[config] publish failed:", err.Error())
		}
	}()
}

// -----------------------------------------------------------------------------
// Power plane section
// -----------------------------------------------------------------------------

// DefaultPlane is used for every key the device config leaves out.
func DefaultPlane() types.PlaneConfig {
	return types.PlaneConfig{
		TickMs:          1,
		RecoveryMs:      2000,
		LEDHold:         100,
		ConsoleBaud:     115200,
		SyncHz:          600_000,
		BusAddr:         0x28,
		BootEnabled:     []string{"3VB"},
		TelemetryPeriod: 10,
	}
}

// Plane returns the device's power plane configuration. A device with no
// "power" section gets DefaultPlane.
func Plane(device string) (types.PlaneConfig, error) {
	m, err := load(device)
	if err != nil {
		return DefaultPlane(), err
	}
	return PlaneFrom(m[planeKey])
}

// PlaneFrom decodes a "power" section as published on config/power. Values
// out of range are clamped; wrong types are errors.
func PlaneFrom(section any) (types.PlaneConfig, error) {
	pc := DefaultPlane()
	if section == nil {
		return pc, nil
	}
	m, ok := section.(map[string]any)
	if !ok {
		return pc, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "power section is not an object"}
	}

	var err error
	num := func(key string, lo, hi int64, dst func(int64)) {
		v, present := m[key]
		if !present || err != nil {
			return
		}
		n, ok := toInt(v)
		if !ok {
			err = &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: key + " is not a number"}
			return
		}
		dst(mathx.Clamp(n, lo, hi))
	}
	num("tick_ms", 1, 100, func(n int64) { pc.TickMs = int(n) })
	num("recovery_ms", 100, 60_000, func(n int64) { pc.RecoveryMs = int(n) })
	num("led_hold", 1, 10_000, func(n int64) { pc.LEDHold = int(n) })
	num("console_baud", 1200, 1_000_000, func(n int64) { pc.ConsoleBaud = uint32(n) })
	num("sync_hz", 100_000, 2_000_000, func(n int64) { pc.SyncHz = uint32(n) })
	num("bus_addr", 0x08, 0x77, func(n int64) { pc.BusAddr = uint16(n) })
	num("telemetry_period_s", 0, 3600, func(n int64) { pc.TelemetryPeriod = int(n) })
	if err != nil {
		return DefaultPlane(), err
	}

	if v, ok := m["verbose"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			return DefaultPlane(), &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "verbose is not a bool"}
		}
		pc.Verbose = b
	}
	if v, ok := m["boot_enabled"]; ok {
		list, isList := v.([]any)
		if !isList {
			return DefaultPlane(), &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "boot_enabled is not a list"}
		}
		pc.BootEnabled = pc.BootEnabled[:0]
		for _, e := range list {
			s, isStr := e.(string)
			if !isStr {
				return DefaultPlane(), &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "boot_enabled entry is not a string"}
			}
			pc.BootEnabled = append(pc.BootEnabled, s)
		}
	}
	return pc, nil
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		return int64(x), true
	case float32:
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	}
	return 0, false
}
