// Package regulator defines the capability contract shared by every power
// regulator topology on the board and its two implementations.
package regulator

// Regulator is the uniform contract the monitor, standby and protocol layers
// are written against. Errors are reserved for hardware fault detection;
// they carry errcode.HardwareFault.
type Regulator interface {
	// Probe performs one-time hardware setup. Calling it again is a no-op.
	Probe() error
	// Enable turns the regulator on. If it is already on, Enable switches
	// synchronization mode. Topologies without a sync mode ignore sync.
	Enable(sync bool) error
	Disable() error
	IsEnabled() bool
	// IsPowerGood is false whenever the regulator is disabled.
	IsPowerGood() bool
}

// Syncer is implemented by topologies that can follow the shared switching
// clock.
type Syncer interface {
	Synchronized() bool
}
