//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

// RP2040 TIMER peripheral. The timer counts microseconds at 1 MHz; each of
// the four alarms compares against the low 32 bits and raises its own IRQ
// line. Alarms are one-shot, so periodic behavior comes from re-arming in
// the handler.
const (
	timerBase   = 0x40054000
	timerALARM0 = timerBase + 0x10
	timerARMED  = timerBase + 0x20
	timerRAWL   = timerBase + 0x28
	timerINTR   = timerBase + 0x34
	timerINTE   = timerBase + 0x38
)

var (
	timerArmed = (*volatile.Register32)(unsafe.Pointer(uintptr(timerARMED)))
	timerRawL  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerRAWL)))
	timerIntr  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
)

func nowUS() uint32 {
	return timerRawL.Get()
}

// alarmTimer implements core.TimerDriver on one TIMER alarm. index doubles
// as the alarm number and the IRQ bit position.
type alarmTimer struct {
	index  uint8
	tickUS uint32

	period  uint32 // ticks
	next    uint32 // absolute µs deadline of the next event
	running bool
	onTick  func()
}

func (t *alarmTimer) alarmReg() *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM0) + 4*uintptr(t.index)))
}

func (t *alarmTimer) periodUS() uint32 {
	return t.period * t.tickUS
}

func (t *alarmTimer) StartPeriodic() {
	if t.period == 0 {
		return
	}
	t.running = true
	t.next = nowUS() + t.periodUS()
	t.alarmReg().Set(t.next)
	timerInte.SetBits(1 << t.index)
}

func (t *alarmTimer) Stop() {
	t.running = false
	timerInte.ClearBits(1 << t.index)
	// Writing the alarm's ARMED bit disarms it
	timerArmed.Set(1 << t.index)
}

func (t *alarmTimer) SetPeriod(ticks uint32) {
	t.period = ticks
}

func (t *alarmTimer) ResetCounter() {
	t.next = nowUS()
}

func (t *alarmTimer) ClearPending() {
	timerIntr.Set(1 << t.index)
}

func (t *alarmTimer) irq() {
	timerIntr.Set(1 << t.index)
	if !t.running {
		return
	}
	// Re-arm from the previous deadline, not from now, so handler latency
	// does not accumulate into the period
	t.next += t.periodUS()
	t.alarmReg().Set(t.next)
	t.onTick()
}

func initTimerIRQs() {
	i0 := interrupt.New(rp.IRQ_TIMER_IRQ_0, handleTimerIRQ0)
	i0.Enable()
	i1 := interrupt.New(rp.IRQ_TIMER_IRQ_1, handleTimerIRQ1)
	i1.Enable()
}

func handleTimerIRQ0(interrupt.Interrupt) {
	fastTimer.irq()
}

func handleTimerIRQ1(interrupt.Interrupt) {
	slowTimer.irq()
}
