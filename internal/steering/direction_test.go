package steering

import (
	"testing"

	"github.com/beamlab/piezo-core/internal/driver"
)

func TestMapControl(t *testing.T) {
	tests := []struct {
		name    string
		flipped bool
		control Control
		want    driver.JogDirection
	}{
		{name: "unflipped increase", flipped: false, control: ControlIncrease, want: driver.JogIncrease},
		{name: "unflipped decrease", flipped: false, control: ControlDecrease, want: driver.JogDecrease},
		{name: "flipped increase", flipped: true, control: ControlIncrease, want: driver.JogDecrease},
		{name: "flipped decrease", flipped: true, control: ControlDecrease, want: driver.JogIncrease},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapControl(tt.flipped, tt.control); got != tt.want {
				t.Errorf("MapControl(%v, %s) = %s, want %s", tt.flipped, tt.control, got, tt.want)
			}
		})
	}
}

func TestMapControlDoubleFlipIsIdentity(t *testing.T) {
	for _, control := range []Control{ControlIncrease, ControlDecrease} {
		once := MapControl(true, control)
		base := MapControl(false, control)
		if once == base {
			t.Errorf("expected single flip to invert %s", control)
		}
		// Toggling twice restores the original mapping.
		if MapControl(false, control) != base {
			t.Errorf("expected double flip to restore mapping for %s", control)
		}
	}
}
