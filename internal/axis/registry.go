package axis

import (
	"context"
	"fmt"

	"github.com/beamlab/piezo-core/internal/driver"
)

// minimumDeviceCount is the smallest enumeration that allows dual-axis
// operation.
const minimumDeviceCount = 2

// Logger is the minimal logging interface the package depends on.
// Satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry wraps the driver's device enumeration with the validation rules
// controllers depend on: a minimum device count and serial membership
// checks. It holds no state of its own beyond its dependencies, so a single
// Registry can be shared by every controller.
type Registry struct {
	mgr    driver.Manager
	logger Logger
}

// NewRegistry creates a Registry backed by the given device manager.
func NewRegistry(mgr driver.Manager) *Registry {
	return &Registry{
		mgr:    mgr,
		logger: noopLogger{},
	}
}

// SetLogger configures structured logging output.
func (r *Registry) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Enumerate refreshes the device list and returns all serials that parse
// as valid controller serial numbers. Serials the driver reports that do
// not parse are logged and skipped.
func (r *Registry) Enumerate(ctx context.Context) ([]Serial, error) {
	if err := r.mgr.BuildDeviceList(ctx); err != nil {
		return nil, fmt.Errorf("building device list: %w", err)
	}

	raw := r.mgr.DeviceList()
	serials := make([]Serial, 0, len(raw))
	for _, s := range raw {
		serial, err := ParseSerial(s)
		if err != nil {
			r.logger.Warn("skipping unparseable serial", "serial", s, "error", err)
			continue
		}
		serials = append(serials, serial)
	}

	r.logger.Debug("device enumeration complete", "count", len(serials))
	return serials, nil
}

// RequireMinimumCount refreshes the device list and fails with a
// DeviceCountError when fewer than two controllers are attached. The check
// counts every enumerated device, including ones whose serials fail to
// parse, so the reported count matches what the driver sees.
func (r *Registry) RequireMinimumCount(ctx context.Context) error {
	if err := r.mgr.BuildDeviceList(ctx); err != nil {
		return fmt.Errorf("building device list: %w", err)
	}
	count := len(r.mgr.DeviceList())
	if count < minimumDeviceCount {
		return &DeviceCountError{Count: count, Required: minimumDeviceCount}
	}
	return nil
}

// Open returns a device handle for serial after validating it against the
// current enumeration.
func (r *Registry) Open(ctx context.Context, serial Serial) (driver.Device, error) {
	if err := r.Validate(ctx, serial); err != nil {
		return nil, err
	}
	dev, err := r.mgr.Open(serial.String())
	if err != nil {
		return nil, fmt.Errorf("opening device %s: %w", serial, err)
	}
	return dev, nil
}

// Validate enumerates devices and fails with a MismatchSerialError when
// serial is not among them.
func (r *Registry) Validate(ctx context.Context, serial Serial) error {
	serials, err := r.Enumerate(ctx)
	if err != nil {
		return err
	}
	for _, s := range serials {
		if s == serial {
			return nil
		}
	}
	return &MismatchSerialError{Attempted: serial, Available: serials}
}
