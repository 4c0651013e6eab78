package core

// Tick durations the period converter assumes. They are fixed by the timer
// prescaler configuration of the platform layer, outside this core's control.
const (
	FastTickUS = 10  // fast channel: one tick per 10 µs
	SlowTickUS = 100 // slow channel: one tick per 100 µs
)

// TimerDriver abstracts one periodic hardware timer running in interrupt
// mode. The platform layer invokes the registered event handler once per
// elapsed period; a given timer's events are never reentrant.
//
// All methods are synchronous side effects and must be callable from both
// main-loop and interrupt context.
type TimerDriver interface {
	// StartPeriodic arms the timer to fire its event every period.
	StartPeriodic()

	// Stop disarms the timer. A pending event may still be latched; callers
	// pair Stop with ClearPending.
	Stop()

	// SetPeriod programs the period in native ticks. Takes effect on the next
	// counter wrap; callers reset the counter when an immediate effect is
	// needed.
	SetPeriod(ticks uint32)

	// ResetCounter rewinds the running counter to zero.
	ResetCounter()

	// ClearPending drops a latched-but-undelivered period event.
	ClearPending()
}

// SerialDriver transmits raw reply bytes. The write is performed by the
// platform layer; any timeout policy lives there too.
type SerialDriver interface {
	Transmit(buf []byte)
}

// TriggerDriver fires the optional scope-trigger output at cycle start.
// Implementations must be non-blocking; a missed trigger is preferable to a
// stalled cycle.
type TriggerDriver interface {
	Fire()
}
