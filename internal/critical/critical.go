// Package critical provides the atomic section used for state shared with
// interrupt handlers. On TinyGo it masks interrupts; on host builds a single
// process-wide mutex stands in for the mask.
//
// Sections must not nest.
package critical

// Do runs fn with interrupts suppressed for its full duration.
func Do(fn func()) {
	s := Enter()
	defer Exit(s)
	fn()
}
