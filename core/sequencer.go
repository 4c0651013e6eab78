package core

// RunState is the sequencer's top-level state.
type RunState uint8

const (
	StateIdle RunState = iota
	StateRunning
)

func (s RunState) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// ExitMode is a pending stop request.
type ExitMode uint8

const (
	ExitNone ExitMode = iota
	// ExitSoft stops at the next cycle boundary, with the bridge already in
	// the all-off pattern.
	ExitSoft
	// ExitHard is executed synchronously by HardStop and therefore never
	// persists in the state.
	ExitHard
)

// Fast-channel phases within one cycle.
const (
	phasePositive = 0
	phaseNegative = 1
	phaseOff      = 2
)

// Sequencer is the pulse-sequencing state machine. The fast timer supplies
// three equally spaced sub-events that shape one bipolar pulse pair per
// cycle; the slow timer bounds the cycle and is the single point where a
// soft stop is honored, so the output is always left in the all-off pattern
// between pulses.
//
// OnFastTick and OnSlowTick run in their timer's interrupt context and are
// the only writers of phase and cycle bookkeeping. Command-context mutations
// (Start, RequestSoftStop, HardStop) run with timer interrupts masked.
type Sequencer struct {
	fast    TimerDriver
	slow    TimerDriver
	bridge  *Bridge
	trigger TriggerDriver // optional, may be nil

	state RunState
	phase uint8
	exit  ExitMode

	cycles uint32
	// targetCycles is the cycle count requested by the last START (0 = run
	// until STOP). Recorded for readout only: the run is not auto-terminated.
	targetCycles uint16
}

// NewSequencer returns an idle Sequencer over the two channel timers and the
// bridge output driver.
func NewSequencer(fast, slow TimerDriver, bridge *Bridge) *Sequencer {
	return &Sequencer{fast: fast, slow: slow, bridge: bridge}
}

// SetTrigger installs the optional scope-trigger output, fired at each cycle
// start.
func (s *Sequencer) SetTrigger(t TriggerDriver) {
	s.trigger = t
}

// Start arms both timers and enters RUNNING with phase 0. A Start while
// already running is a no-op.
func (s *Sequencer) Start(targetCycles uint16) {
	st := disableInterrupts()
	defer restoreInterrupts(st)

	if s.state != StateIdle {
		return
	}
	s.exit = ExitNone
	s.phase = phasePositive
	s.cycles = 0
	s.targetCycles = targetCycles

	s.fast.ResetCounter()
	s.slow.ResetCounter()
	s.fast.ClearPending()
	s.slow.ClearPending()
	s.fast.StartPeriodic()
	s.slow.StartPeriodic()

	s.state = StateRunning
	s.fireTrigger()
}

// RequestSoftStop asks for a stop at the next cycle boundary. It never takes
// effect mid-cycle; callers must not assume an immediate state change.
func (s *Sequencer) RequestSoftStop() {
	st := disableInterrupts()
	defer restoreInterrupts(st)

	s.exit = ExitSoft
}

// HardStop stops both timers and forces every output off immediately,
// regardless of waveform position. Not glitch-free: this is the explicit
// stop-now escape hatch.
func (s *Sequencer) HardStop() {
	st := disableInterrupts()
	defer restoreInterrupts(st)

	s.fast.Stop()
	s.slow.Stop()
	s.fast.ClearPending()
	s.slow.ClearPending()
	s.bridge.AllOff()
	s.state = StateIdle
	s.phase = phasePositive
	s.exit = ExitNone
}

// OnFastTick handles one fast-timer period event. Interrupt context.
//
// Exactly three fast events occur per cycle: positive pattern, negative
// pattern, all-off. The third event stops the fast timer so no fourth phase
// effect can fire within the running cycle.
func (s *Sequencer) OnFastTick() {
	if s.state != StateRunning {
		return
	}
	switch s.phase {
	case phasePositive:
		s.bridge.PositivePulse()
		s.phase = phaseNegative
	case phaseNegative:
		s.bridge.NegativePulse()
		s.phase = phaseOff
	default:
		s.bridge.AllOff()
		s.fast.Stop()
		s.fast.ClearPending()
	}
}

// OnSlowTick handles one cycle-boundary event. Interrupt context.
//
// This is the only path that performs a clean stop: when a soft stop is
// pending the outputs are already off here, guaranteed by the completed fast
// cycle. Otherwise the fast timer is rearmed for the next cycle.
func (s *Sequencer) OnSlowTick() {
	if s.state != StateRunning {
		return
	}
	if s.exit == ExitSoft {
		s.slow.Stop()
		s.slow.ClearPending()
		s.state = StateIdle
		s.phase = phasePositive
		s.exit = ExitNone
		return
	}

	s.cycles++
	s.phase = phasePositive
	s.fast.ResetCounter()
	s.fast.ClearPending()
	s.fast.StartPeriodic()
	s.fireTrigger()
}

func (s *Sequencer) fireTrigger() {
	if s.trigger != nil {
		s.trigger.Fire()
	}
}

// State returns the current run state.
func (s *Sequencer) State() RunState { return s.state }

// Phase returns the fast-channel phase, meaningful only while running.
func (s *Sequencer) Phase() uint8 { return s.phase }

// Exit returns the pending stop request.
func (s *Sequencer) Exit() ExitMode { return s.exit }

// Cycles returns the number of completed cycles since the last Start.
func (s *Sequencer) Cycles() uint32 { return s.cycles }

// TargetCycles returns the cycle target recorded by the last Start.
func (s *Sequencer) TargetCycles() uint16 { return s.targetCycles }
