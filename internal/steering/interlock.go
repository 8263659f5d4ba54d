package steering

// Interlock reports which operator controls are currently permitted on an
// axis.
type Interlock struct {
	IncreaseAllowed bool `json:"increase_allowed"`
	DecreaseAllowed bool `json:"decrease_allowed"`
}

// physicalInterlock evaluates the jog-limit rules against raw readings:
// within one jog step of zero the physical decrease is forbidden, within
// one step of the hardware limit the physical increase is forbidden. The
// near-zero rule wins when both hold, which can happen on a device whose
// range is narrower than two jog steps.
func physicalInterlock(voltage, step, maxVoltage float64) (increaseOK, decreaseOK bool) {
	if voltage <= step {
		return true, false
	}
	if voltage+step >= maxVoltage {
		return false, true
	}
	return true, true
}

// ControlInterlock maps the physical interlock through the axis direction
// flag so the result speaks in operator controls rather than voltage
// directions.
func ControlInterlock(flipped bool, voltage, step, maxVoltage float64) Interlock {
	incOK, decOK := physicalInterlock(voltage, step, maxVoltage)
	if flipped {
		incOK, decOK = decOK, incOK
	}
	return Interlock{IncreaseAllowed: incOK, DecreaseAllowed: decOK}
}
