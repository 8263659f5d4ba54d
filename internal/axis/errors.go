package axis

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for registry and controller operations.
var (
	// ErrInvalidSerial indicates a serial number that is not eight
	// decimal digits.
	ErrInvalidSerial = errors.New("axis: invalid serial number")

	// ErrSettingsTimeout indicates device settings did not initialize
	// within the allowed window after connecting.
	ErrSettingsTimeout = errors.New("axis: device settings initialization timed out")

	// ErrStopped indicates the controller has been terminally stopped.
	ErrStopped = errors.New("axis: controller stopped")
)

// DeviceCountError indicates fewer devices were enumerated than the system
// requires.
type DeviceCountError struct {
	Count    int
	Required int
}

func (e *DeviceCountError) Error() string {
	return fmt.Sprintf("axis: %d device(s) detected, at least %d required", e.Count, e.Required)
}

// MismatchSerialError indicates a requested serial number was not found in
// the enumerated device list.
type MismatchSerialError struct {
	Attempted Serial
	Available []Serial
}

func (e *MismatchSerialError) Error() string {
	avail := make([]string, len(e.Available))
	for i, s := range e.Available {
		avail[i] = s.String()
	}
	return fmt.Sprintf("axis: serial %s not found, available: [%s]",
		e.Attempted, strings.Join(avail, ", "))
}

// RejectReason classifies why a command was refused without being sent to
// the hardware.
type RejectReason string

const (
	// RejectSettling means the previous command's settle window has not
	// elapsed yet.
	RejectSettling RejectReason = "settling"

	// RejectStopped means the controller has been terminally stopped.
	RejectStopped RejectReason = "stopped"

	// RejectNotConnected means no device connection is open.
	RejectNotConnected RejectReason = "not_connected"

	// RejectNotEnabled means the output stage is disabled.
	RejectNotEnabled RejectReason = "not_enabled"

	// RejectOutOfRange means a requested value falls outside the allowed
	// range.
	RejectOutOfRange RejectReason = "out_of_range"

	// RejectInterlocked means the jog-limit interlock currently forbids
	// the requested motion control.
	RejectInterlocked RejectReason = "interlocked"

	// RejectInvalidReading means the last observed voltage fell outside
	// the valid range, so motion commands are refused.
	RejectInvalidReading RejectReason = "invalid_reading"
)

// CommandRejectedError is returned when a command is refused by the
// controller's own preconditions rather than by the hardware.
type CommandRejectedError struct {
	Command string
	Reason  RejectReason
	Detail  string
}

func (e *CommandRejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("axis: %s rejected (%s)", e.Command, e.Reason)
	}
	return fmt.Sprintf("axis: %s rejected (%s): %s", e.Command, e.Reason, e.Detail)
}

// IsRejected reports whether err is a CommandRejectedError, returning the
// typed error when it is.
func IsRejected(err error) (*CommandRejectedError, bool) {
	var rej *CommandRejectedError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
