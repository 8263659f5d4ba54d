package axis

import "fmt"

// serialLength is the fixed length of a piezo controller serial number.
const serialLength = 8

// Serial is a validated piezo controller serial number: exactly eight
// decimal digits.
type Serial string

// ParseSerial validates s and returns it as a Serial.
func ParseSerial(s string) (Serial, error) {
	if len(s) != serialLength {
		return "", fmt.Errorf("%w: %q must be %d digits", ErrInvalidSerial, s, serialLength)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q contains non-digit characters", ErrInvalidSerial, s)
		}
	}
	return Serial(s), nil
}

// String returns the serial as a plain string.
func (s Serial) String() string {
	return string(s)
}
