package config

import (
	"context"
	"testing"
	"time"

	"powerctl-go/bus"
	"powerctl-go/errcode"
)

func TestConfig_PublishEmbedded_RetainedPerKey(t *testing.T) {
	// Override lookup for this test.
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		if device != "pico" {
			return nil, false
		}
		return []byte(`{
			"board": "bench",
			"trace": true,
			"power": {"boot_enabled": ["3VB"]}
		}`), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	// Arrange bus and service.
	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewConfigService()

	// Start publisher with device ID in context.
	ctx := context.WithValue(context.Background(), CtxDeviceKey, "pico")
	svc.Start(ctx, conn)

	// Subscribe; retained messages should arrive immediately.
	sub := conn.Subscribe(bus.Topic{configPrefix, "#"})

	type gotMsg struct {
		key string
		val any
	}

	wantCount := 3 // board, trace, power
	got := map[string]gotMsg{}

	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < wantCount && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if len(m.Topic) < 2 {
				t.Fatalf("unexpected topic length: %#v", m.Topic)
			}
			// Assert tokens to string
			prefix, ok := m.Topic[0].(string)
			if !ok {
				t.Fatalf("topic[0] type %T, want string", m.Topic[0])
			}
			if prefix != configPrefix {
				t.Fatalf("unexpected prefix: %q", prefix)
			}
			keyTok := m.Topic[1]
			key, ok := keyTok.(string)
			if !ok {
				t.Fatalf("topic[1] type %T, want string", keyTok)
			}
			got[key] = gotMsg{key: key, val: m.Payload}
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(got) != wantCount {
		t.Fatalf("expected %d retained messages, got %d (%v)", wantCount, len(got), got)
	}

	// Assert payloads without reflect.
	if v, ok := got["board"]; !ok {
		t.Fatal("missing 'board' message")
	} else if s, ok := v.val.(string); !ok || s != "bench" {
		t.Fatalf("board payload = %#v, want \"bench\"", v.val)
	}
	if v, ok := got["trace"]; !ok {
		t.Fatal("missing 'trace' message")
	} else if bval, ok := v.val.(bool); !ok || bval != true {
		t.Fatalf("trace payload = %#v, want true", v.val)
	}
	if v, ok := got["power"]; !ok {
		t.Fatal("missing 'power' message")
	} else if pc, err := PlaneFrom(v.val); err != nil {
		t.Fatalf("power payload: %v", err)
	} else if len(pc.BootEnabled) != 1 || pc.BootEnabled[0] != "3VB" {
		t.Fatalf("boot_enabled = %v", pc.BootEnabled)
	}
}

func TestConfig_PublishConfig_MissingDevice(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-missing-device")
	svc := NewConfigService()

	// No device ID in context
	if err := svc.publishConfig(context.Background(), conn); err == nil {
		t.Fatal("expected error for missing device ID, got nil")
	}
}

func TestConfig_PublishConfig_NoConfigFound(t *testing.T) {
	// Override lookup to simulate absence.
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) { return nil, false }
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(4)
	conn := b.NewConnection("test-no-config")
	svc := NewConfigService()

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "unknown-device")
	if err := svc.publishConfig(ctx, conn); err == nil {
		t.Fatal("expected error for missing embedded config, got nil")
	}
}

func TestPlane_Defaults(t *testing.T) {
	pc, err := PlaneFrom(nil)
	if err != nil {
		t.Fatal(err)
	}
	if pc.RecoveryMs != 2000 || pc.LEDHold != 100 || pc.SyncHz != 600_000 {
		t.Fatalf("defaults = %+v", pc)
	}
	if len(pc.BootEnabled) != 1 || pc.BootEnabled[0] != "3VB" {
		t.Fatalf("default boot set = %v", pc.BootEnabled)
	}
}

func TestPlane_ClampsAndOverrides(t *testing.T) {
	pc, err := PlaneFrom(map[string]any{
		"tick_ms":      float64(0),
		"recovery_ms":  float64(1e9),
		"console_baud": float64(9600),
		"bus_addr":     float64(0x80),
		"verbose":      true,
		"boot_enabled": []any{"5VA", "n12"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if pc.TickMs != 1 || pc.RecoveryMs != 60_000 || pc.ConsoleBaud != 9600 || pc.BusAddr != 0x77 {
		t.Fatalf("clamped = %+v", pc)
	}
	if !pc.Verbose || len(pc.BootEnabled) != 2 || pc.BootEnabled[1] != "n12" {
		t.Fatalf("overrides = %+v", pc)
	}
}

func TestPlane_WrongTypes(t *testing.T) {
	for _, sec := range []any{
		"power",
		map[string]any{"tick_ms": "fast"},
		map[string]any{"verbose": 1.0},
		map[string]any{"boot_enabled": "3VB"},
		map[string]any{"boot_enabled": []any{3.0}},
	} {
		pc, err := PlaneFrom(sec)
		if err == nil {
			t.Fatalf("%#v: expected error", sec)
		}
		if errcode.Of(err) != errcode.InvalidParams {
			t.Fatalf("%#v: code %v", sec, errcode.Of(err))
		}
		if pc.RecoveryMs != DefaultPlane().RecoveryMs {
			t.Fatal("error path should return defaults")
		}
	}
}

func TestPlane_Embedded(t *testing.T) {
	pc, err := Plane("host")
	if err != nil {
		t.Fatal(err)
	}
	if !pc.Verbose || len(pc.BootEnabled) != 2 {
		t.Fatalf("host plane = %+v", pc)
	}
	if _, err := Plane("nope"); err == nil {
		t.Fatal("unknown device should fail")
	}
}

func TestLoad_Malformed(t *testing.T) {
	old := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(string) ([]byte, bool) { return []byte(`{"power": `), true }
	t.Cleanup(func() { EmbeddedConfigLookup = old })

	if _, err := load("pico"); err == nil {
		t.Fatal("truncated document accepted")
	}
}
