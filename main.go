package main

import (
	"context"
	"time"

	"powerctl-go/bus"
	"powerctl-go/internal/board"
	"powerctl-go/services/config"
	"powerctl-go/services/plane"
	"powerctl-go/services/telemetry"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(bootDelay)
	println("[main] boot", board.Device)

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, board.Device)
	b := bus.NewBus(8)

	config.NewConfigService().Start(ctx, b.NewConnection("config"))
	cfg, err := config.Plane(board.Device)
	if err != nil {
		println("[main] config:", err.Error(), "(using defaults)")
	}

	brd, err := board.Open(ctx, cfg)
	if err != nil {
		println("[main] board:", err.Error())
		return
	}
	p, err := plane.New(brd.HW, cfg, b.NewConnection("plane"), plane.Options{})
	if err != nil {
		println("[main] plane:", err.Error())
		return
	}
	if err := brd.ServeBus(ctx, cfg.BusAddr, p.Transaction); err != nil {
		println("[main] register bus:", err.Error())
	}
	if cfg.TelemetryPeriod > 0 {
		svc := &telemetry.Service{}
		_ = svc.Start(ctx, b.NewConnection("telemetry"), time.Duration(cfg.TelemetryPeriod)*time.Second)
	}

	p.Run(ctx)
}
