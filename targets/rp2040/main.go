//go:build rp2040

package main

import (
	"machine"

	"gopulse/core"
)

var (
	fastTimer = &alarmTimer{index: 0, tickUS: core.FastTickUS}
	slowTimer = &alarmTimer{index: 1, tickUS: core.SlowTickUS}
)

func main() {
	uart := initUART()

	gpio := newBridgeGPIO()
	store := &core.ConfigStore{}
	conv := core.NewConverter(fastTimer, slowTimer, store)
	seq := core.NewSequencer(fastTimer, slowTimer, core.NewBridge(gpio))
	fastTimer.onTick = seq.OnFastTick
	slowTimer.onTick = seq.OnSlowTick

	// Scope sync output is best effort; the bridge runs fine without it
	if trig, err := newScopeTrigger(machine.GP15); err == nil {
		seq.SetTrigger(trig)
	}

	disp := core.NewDispatcher(conv, seq, store, serialTX{uart: uart})
	disp.SetDebugWriter(func(s string) {
		uart.Write([]byte(s))
		uart.Write([]byte("\r\n"))
	})
	ctrl := core.NewController(disp)

	initTimerIRQs()

	mail := ctrl.Mailbox()
	for {
		pollUART(uart, mail)
		ctrl.Poll()
	}
}
