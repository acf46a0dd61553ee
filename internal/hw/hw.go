// Package hw is the hardware boundary of the control plane. Core packages
// only see these interfaces; boards bind them to machine registers (rp2040)
// or to hwsim (host).
package hw

// Pull selects the input bias of a pin.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Pin is a single GPIO line. ConfigureInput with PullNone is also how a
// line is released to high impedance.
type Pin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// IRQPin extends Pin with interrupts. The handler runs in interrupt context.
type IRQPin interface {
	Pin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// CompareTimer is a free-running counter shared by several outputs. Each
// compare channel, once armed, drives its routed pin with a square wave at
// the configured frequency; invert shifts that channel by 180 degrees.
type CompareTimer interface {
	Configure(freqHz uint32) error
	Arm(ch uint8, invert bool) error
	Disarm(ch uint8)
	Armed(ch uint8) bool
}

// SystemClock switches the CPU between full speed and a slow low-power
// reference.
type SystemClock interface {
	SetLowPower(low bool) error
	LowPower() bool
}

// Serial is a byte stream with non-blocking receive.
type Serial interface {
	Buffered() int
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
}

// EdgeToString is used in log lines.
func EdgeToString(e Edge) string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}
