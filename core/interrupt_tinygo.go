//go:build tinygo

package core

import "runtime/interrupt"

// State is the saved interrupt mask.
type State = interrupt.State

// disableInterrupts masks interrupts and returns the previous state. Used to
// keep timer events from observing half-applied command-context updates.
func disableInterrupts() State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt mask.
func restoreInterrupts(state State) {
	interrupt.Restore(state)
}
