// Package sim runs the firmware core against simulated hardware: virtual
// periodic timers advanced by an explicit clock, and recorded bridge legs.
// Tests drive the clock by hand; the pulsesim daemon drives it from wall
// time through Runner.
package sim

import (
	"io"
	"sync"

	"gopulse/core"
)

// GPIO records bridge leg state. Safe for concurrent readers; the core only
// writes from the event goroutine.
type GPIO struct {
	mu      sync.Mutex
	legs    [core.NumLegs]bool
	changes int
}

func (g *GPIO) SetLeg(leg core.Leg, on bool) {
	g.mu.Lock()
	g.legs[leg] = on
	g.changes++
	g.mu.Unlock()
}

// Legs returns the current leg states.
func (g *GPIO) Legs() [core.NumLegs]bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.legs
}

// Changes returns the total number of leg writes.
func (g *GPIO) Changes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.changes
}

// Timer is a virtual periodic timer. It implements core.TimerDriver and
// fires its handler from Device.AdvanceUS, on the caller's goroutine.
type Timer struct {
	tickUS  uint32
	period  uint32
	running bool
	elapsed uint64 // µs into the current period
	handler func()
}

func (t *Timer) StartPeriodic() { t.running = true }
func (t *Timer) Stop()          { t.running = false }

func (t *Timer) SetPeriod(ticks uint32) { t.period = ticks }
func (t *Timer) ResetCounter()          { t.elapsed = 0 }

// ClearPending is a no-op: virtual events fire synchronously during Advance
// and are never latched.
func (t *Timer) ClearPending() {}

// Running reports whether the timer is armed.
func (t *Timer) Running() bool { return t.running }

// PeriodTicks returns the programmed period.
func (t *Timer) PeriodTicks() uint32 { return t.period }

func (t *Timer) periodUS() uint64 {
	return uint64(t.period) * uint64(t.tickUS)
}

// dueIn returns the µs until the next event, if armed with a valid period.
func (t *Timer) dueIn() (uint64, bool) {
	if !t.running || t.period == 0 {
		return 0, false
	}
	return t.periodUS() - t.elapsed, true
}

// step advances the timer by us, which must not exceed its dueIn value, and
// fires the handler on period completion.
func (t *Timer) step(us uint64) {
	if !t.running || t.period == 0 {
		return
	}
	t.elapsed += us
	if t.elapsed >= t.periodUS() {
		t.elapsed = 0
		t.handler()
	}
}

// Device is the full firmware core wired to simulated drivers. All methods
// must be called from a single goroutine, mirroring the firmware's
// non-preemptive event model; only Mailbox posting is safe across
// goroutines (Runner handles that).
type Device struct {
	GPIO *GPIO
	Fast *Timer
	Slow *Timer

	Store *core.ConfigStore
	Seq   *core.Sequencer

	disp *core.Dispatcher
	ctrl *core.Controller
}

// New builds a simulated device. READBACK replies are written to reply.
func New(reply io.Writer) *Device {
	d := &Device{
		GPIO:  &GPIO{},
		Fast:  &Timer{tickUS: core.FastTickUS},
		Slow:  &Timer{tickUS: core.SlowTickUS},
		Store: &core.ConfigStore{},
	}
	conv := core.NewConverter(d.Fast, d.Slow, d.Store)
	d.Seq = core.NewSequencer(d.Fast, d.Slow, core.NewBridge(d.GPIO))
	d.disp = core.NewDispatcher(conv, d.Seq, d.Store, writerSerial{w: reply})
	d.ctrl = core.NewController(d.disp)

	d.Fast.handler = d.Seq.OnFastTick
	d.Slow.handler = d.Seq.OnSlowTick
	return d
}

// SetDebugWriter routes the core's dispatch diagnostics.
func (d *Device) SetDebugWriter(w core.DebugWriter) {
	d.disp.SetDebugWriter(w)
}

// Post hands a received frame to the command mailbox.
func (d *Device) Post(frame []byte) {
	d.ctrl.Mailbox().Post(frame)
}

// Poll runs one main-loop iteration.
func (d *Device) Poll() bool {
	return d.ctrl.Poll()
}

// AdvanceUS moves simulated time forward, delivering timer events in order.
// Event handlers may stop or rearm timers mid-advance, exactly as interrupt
// handlers do on hardware.
func (d *Device) AdvanceUS(us uint64) {
	timers := [...]*Timer{d.Fast, d.Slow}
	for us > 0 {
		step := us
		for _, t := range timers {
			if due, ok := t.dueIn(); ok && due < step {
				step = due
			}
		}
		for _, t := range timers {
			t.step(step)
		}
		us -= step
	}
}

// Step runs one poll-then-advance iteration, the simulated equivalent of the
// firmware main loop interleaved with us microseconds of hardware time.
func (d *Device) Step(us uint64) {
	d.Poll()
	d.AdvanceUS(us)
}

type writerSerial struct {
	w io.Writer
}

func (s writerSerial) Transmit(buf []byte) {
	if s.w != nil {
		s.w.Write(buf)
	}
}
