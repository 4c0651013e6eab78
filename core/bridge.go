package core

// Bridge drives the four legs of the full bridge as whole output patterns.
// It holds no state: the sequencer decides which pattern is active.
type Bridge struct {
	gpio GPIODriver
}

// NewBridge returns a Bridge driving legs through gpio.
func NewBridge(gpio GPIODriver) *Bridge {
	return &Bridge{gpio: gpio}
}

// PositivePulse conducts left high side and right low side.
func (b *Bridge) PositivePulse() {
	b.gpio.SetLeg(LegDriveLeft, true)
	b.gpio.SetLeg(LegEnableLeft, true)
	b.gpio.SetLeg(LegDriveRight, false)
	b.gpio.SetLeg(LegEnableRight, true)
}

// NegativePulse conducts with reversed polarity.
func (b *Bridge) NegativePulse() {
	b.gpio.SetLeg(LegDriveLeft, false)
	b.gpio.SetLeg(LegEnableLeft, true)
	b.gpio.SetLeg(LegDriveRight, true)
	b.gpio.SetLeg(LegEnableRight, true)
}

// AllOff releases every leg. Enables drop first so no half bridge conducts
// while the drive lines settle.
func (b *Bridge) AllOff() {
	b.gpio.SetLeg(LegEnableRight, false)
	b.gpio.SetLeg(LegEnableLeft, false)
	b.gpio.SetLeg(LegDriveRight, false)
	b.gpio.SetLeg(LegDriveLeft, false)
}
