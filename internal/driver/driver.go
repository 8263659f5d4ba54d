package driver

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by Manager and Device implementations.
var (
	// ErrUnknownSerial indicates a serial number not present in the
	// enumerated device list.
	ErrUnknownSerial = errors.New("driver: unknown serial number")

	// ErrNotConnected indicates an operation that requires an open
	// connection was attempted on a disconnected device.
	ErrNotConnected = errors.New("driver: device not connected")

	// ErrNotEnabled indicates a motion command was attempted while the
	// output stage is disabled.
	ErrNotEnabled = errors.New("driver: output not enabled")

	// ErrSettingsNotInitialized indicates the device settings did not
	// become available within the allowed time.
	ErrSettingsNotInitialized = errors.New("driver: settings not initialized")
)

// JogDirection selects which way a jog command moves the output voltage.
type JogDirection int

const (
	// JogIncrease moves the output voltage up by one jog step.
	JogIncrease JogDirection = iota
	// JogDecrease moves the output voltage down by one jog step.
	JogDecrease
)

// String returns the lowercase name of the direction.
func (d JogDirection) String() string {
	if d == JogDecrease {
		return "decrease"
	}
	return "increase"
}

// Manager enumerates attached controllers and opens device handles.
//
// Implementations must be safe for concurrent use.
type Manager interface {
	// BuildDeviceList refreshes the set of attached devices. It must be
	// called before DeviceList or Open return meaningful results.
	BuildDeviceList(ctx context.Context) error

	// DeviceList returns the serial numbers of all enumerated devices.
	DeviceList() []string

	// IsDeviceConnected reports whether the device with the given serial
	// is present in the last enumeration.
	IsDeviceConnected(serial string) bool

	// Open returns a handle for the device with the given serial.
	// Returns ErrUnknownSerial if the serial was not enumerated.
	Open(serial string) (Device, error)
}

// Device is a handle to a single piezo controller channel.
//
// Implementations must be safe for concurrent use. Commands act on the
// hardware immediately; callers are responsible for honouring the settle
// windows the firmware needs between commands.
type Device interface {
	// IsConnected reports whether the device connection is open.
	IsConnected() bool

	// Connect opens the device connection.
	Connect(ctx context.Context) error

	// Disconnect closes the device connection. Safe to call when already
	// disconnected.
	Disconnect() error

	// StartPolling starts the device's internal status polling at the
	// given interval.
	StartPolling(interval time.Duration) error

	// StopPolling stops the device's internal status polling.
	StopPolling()

	// Enable energises the output stage.
	Enable() error

	// Disable de-energises the output stage. The physical output drops to
	// zero volts but the controller retains its last commanded target.
	Disable() error

	// IsSettingsInitialized reports whether device settings have been
	// read back from the hardware.
	IsSettingsInitialized() bool

	// WaitForSettingsInitialized blocks until settings are available or
	// the context is done.
	WaitForSettingsInitialized(ctx context.Context) error

	// OutputVoltage returns the current output voltage in volts.
	OutputVoltage() (float64, error)

	// SetOutputVoltage commands a new output voltage in volts.
	SetOutputVoltage(v float64) error

	// MaxOutputVoltage returns the hardware voltage limit in volts.
	MaxOutputVoltage() (float64, error)

	// JogStep returns the configured jog step size in volts.
	JogStep() (float64, error)

	// SetJogStep sets the jog step size in volts.
	SetJogStep(step float64) error

	// Jog moves the output by one jog step in the given direction.
	Jog(dir JogDirection) error

	// SetZero commands the output to zero volts and clears the
	// remembered target.
	SetZero() error
}
