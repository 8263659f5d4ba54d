package steering

import "github.com/beamlab/piezo-core/internal/driver"

// Control identifies an operator-facing motion control. Which physical jog
// direction it drives depends on the axis's direction flag, since the
// mapping from beam movement to voltage change depends on how the mirror
// mount is oriented.
type Control string

const (
	// ControlIncrease is the operator control labelled as increasing the
	// axis position.
	ControlIncrease Control = "increase"
	// ControlDecrease is the operator control labelled as decreasing the
	// axis position.
	ControlDecrease Control = "decrease"
)

// MapControl translates an operator control into a physical jog direction.
// With flipped false the mapping is the identity; with flipped true the
// controls drive the opposite voltage direction.
func MapControl(flipped bool, control Control) driver.JogDirection {
	increase := control == ControlIncrease
	if flipped {
		increase = !increase
	}
	if increase {
		return driver.JogIncrease
	}
	return driver.JogDecrease
}
