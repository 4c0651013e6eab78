//go:build !tinygo

package core

// State is a placeholder for interrupt state on regular Go.
type State uintptr

// disableInterrupts is a no-op on regular Go. The simulator delivers timer
// events and commands on a single goroutine, so command-context critical
// sections cannot be preempted there.
func disableInterrupts() State {
	return 0
}

// restoreInterrupts restores the interrupt state; no-op on regular Go.
func restoreInterrupts(state State) {
}
