//go:build rp2040

package main

import (
	"machine"
	"time"

	pio "github.com/tinygo-org/pio/rp2-pio"
	"github.com/tinygo-org/pio/rp2-pio/piolib"
)

// scopeTrigger emits a single short pulse on a spare pin at the start of
// each waveform cycle, so an oscilloscope can sync on it. The pulse comes
// from a PIO state machine and costs nothing in the timer handlers.
type scopeTrigger struct {
	pulsar *piolib.Pulsar
}

func newScopeTrigger(pin machine.Pin) (*scopeTrigger, error) {
	sm := pio.PIO0.StateMachine(0)
	p, err := piolib.NewPulsar(sm, pin)
	if err != nil {
		return nil, err
	}
	if err := p.SetPeriod(2 * time.Microsecond); err != nil {
		return nil, err
	}
	return &scopeTrigger{pulsar: p}, nil
}

// Fire implements core.TriggerDriver.
func (t *scopeTrigger) Fire() {
	t.pulsar.Start(1)
}
