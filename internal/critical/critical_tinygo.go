//go:build tinygo

package critical

import "runtime/interrupt"

// State is the saved interrupt mask.
type State = interrupt.State

func Enter() State { return interrupt.Disable() }
func Exit(s State) { interrupt.Restore(s) }
