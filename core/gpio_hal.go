package core

// Leg identifies one of the four logical half-bridge drive/enable lines.
type Leg uint8

const (
	LegDriveLeft Leg = iota
	LegEnableLeft
	LegDriveRight
	LegEnableRight

	// NumLegs is the number of bridge lines a GPIODriver must back.
	NumLegs = 4
)

func (l Leg) String() string {
	switch l {
	case LegDriveLeft:
		return "drive_left"
	case LegEnableLeft:
		return "enable_left"
	case LegDriveRight:
		return "drive_right"
	case LegEnableRight:
		return "enable_right"
	}
	return "leg?"
}

// GPIODriver is the abstract bridge-leg interface the core uses.
// Platform-specific implementations handle actual pin control. SetLeg is a
// pure side effect and must be callable from interrupt context.
type GPIODriver interface {
	SetLeg(leg Leg, on bool)
}
