//go:build rp2040

package main

import (
	"machine"

	"gopulse/core"
)

// H-bridge pin assignment. Each leg drives one gate driver input.
var legPins = [core.NumLegs]machine.Pin{
	core.LegDriveLeft:   machine.GP2,
	core.LegEnableLeft:  machine.GP3,
	core.LegDriveRight:  machine.GP4,
	core.LegEnableRight: machine.GP5,
}

type bridgeGPIO struct{}

// newBridgeGPIO configures the bridge pins as outputs, all low, so the
// bridge powers up disabled.
func newBridgeGPIO() bridgeGPIO {
	for _, pin := range legPins {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.Low()
	}
	return bridgeGPIO{}
}

func (bridgeGPIO) SetLeg(leg core.Leg, on bool) {
	legPins[leg].Set(on)
}
