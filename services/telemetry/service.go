// Package telemetry logs a periodic one-line summary of the power plane from
// the retained state it publishes on the bus.
package telemetry

import (
	"context"
	"sync"
	"time"

	"powerctl-go/bus"
	"powerctl-go/internal/supply"
	"powerctl-go/types"
	"powerctl-go/x/conv"
)

var (
	topicConfigPower = bus.Topic{"config", "power"}
	topicSupplyState = bus.Topic{"power", "supply", "+", "state"}
	topicFault       = bus.Topic{"power", "fault"}
	topicStandby     = bus.Topic{"power", "standby"}
)

const defaultPeriod = 10 * time.Second

type Service struct {
	mu       sync.Mutex
	supplies [supply.Count + 1]types.SupplyState
	seen     [supply.Count + 1]bool
	fault    bool
	standby  types.StandbyState
}

// Observe folds one bus message into the summary state.
func (s *Service) Observe(msg *bus.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch p := msg.Payload.(type) {
	case types.SupplyState:
		if id, ok := supply.Lookup(p.Name); ok {
			s.supplies[id] = p
			s.seen[id] = true
		}
	case types.FaultState:
		s.fault = p.Fault
	case types.StandbyState:
		s.standby = p
	}
}

// Summary renders e.g. "5VA=on+ 5VB=off 3VA=on! 3VB=on+ N12=off fault wakes=0".
// "+" marks a good supply, "!" a requested supply that is not good.
func (s *Service) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := make([]byte, 0, 80)
	for _, id := range supply.All() {
		b = append(b, id.String()...)
		b = append(b, '=')
		st := s.supplies[id]
		switch {
		case !s.seen[id]:
			b = append(b, '?')
		case st.Requested && st.PowerGood:
			b = append(b, "on+"...)
		case st.Requested:
			b = append(b, "on!"...)
		default:
			b = append(b, "off"...)
		}
		b = append(b, ' ')
	}
	if s.fault {
		b = append(b, "fault"...)
	} else {
		b = append(b, "ok"...)
	}
	if s.standby.Standby {
		b = append(b, " standby"...)
	}
	var nb [20]byte
	b = append(b, " wakes="...)
	b = append(b, conv.Itoa(nb[:], int64(s.standby.Wakes))...)
	return string(b)
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, period time.Duration) {
	cfgSub := conn.Subscribe(topicConfigPower)
	defer conn.Unsubscribe(cfgSub)
	stateSub := conn.Subscribe(topicSupplyState)
	defer conn.Unsubscribe(stateSub)
	faultSub := conn.Subscribe(topicFault)
	defer conn.Unsubscribe(faultSub)
	sbSub := conn.Subscribe(topicStandby)
	defer conn.Unsubscribe(sbSub)

	tick := time.NewTicker(period)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: telemetry service stopping")
			return
		case t := <-tick.C:
			println("Info:", t.Format("15:04:05"), s.Summary())
		case msg := <-stateSub.Channel():
			s.Observe(msg)
		case msg := <-faultSub.Channel():
			s.Observe(msg)
		case msg := <-sbSub.Channel():
			s.Observe(msg)
		case msg := <-cfgSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["telemetry_period_s"].(float64); ok && iv > 0 {
					tick.Reset(time.Duration(iv) * time.Second)
					println("Info:", "telemetry period set to", int(iv), "seconds")
				}
			}
		}
	}
}

// Start runs the service until ctx is done. A period of zero selects the
// default.
func (s *Service) Start(ctx context.Context, conn *bus.Connection, period time.Duration) error {
	if period <= 0 {
		period = defaultPeriod
	}
	go s.serviceLoop(ctx, conn, period)
	return nil
}
