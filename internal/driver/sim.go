package driver

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	simDefaultMaxVoltage = 75.0
	simDefaultJogStep    = 1.0
	simWaitPollInterval  = 5 * time.Millisecond
)

// Simulator is an in-memory Manager backed by SimDevice handles.
//
// It exists so the control core can be exercised end to end without
// hardware attached. Devices are seeded at construction and can be added,
// removed or fault-injected at runtime.
type Simulator struct {
	mu       sync.Mutex
	devices  map[string]*SimDevice
	buildErr error
}

// NewSimulator returns a Simulator seeded with one device per serial.
func NewSimulator(serials ...string) *Simulator {
	s := &Simulator{devices: make(map[string]*SimDevice)}
	for _, serial := range serials {
		s.devices[serial] = newSimDevice(serial)
	}
	return s
}

// AddDevice attaches a new simulated device and returns its handle.
// Replaces any existing device with the same serial.
func (s *Simulator) AddDevice(serial string) *SimDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := newSimDevice(serial)
	s.devices[serial] = d
	return d
}

// RemoveDevice detaches the device with the given serial.
func (s *Simulator) RemoveDevice(serial string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, serial)
}

// Device returns the handle for the given serial, or nil if absent.
// Intended for tests that need to inspect or fault-inject a device.
func (s *Simulator) Device(serial string) *SimDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devices[serial]
}

// SetBuildError makes subsequent BuildDeviceList calls fail with err.
// Pass nil to clear.
func (s *Simulator) SetBuildError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildErr = err
}

// BuildDeviceList implements Manager.
func (s *Simulator) BuildDeviceList(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildErr
}

// DeviceList implements Manager. Serials are returned in ascending order.
func (s *Simulator) DeviceList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	serials := make([]string, 0, len(s.devices))
	for serial := range s.devices {
		serials = append(serials, serial)
	}
	sort.Strings(serials)
	return serials
}

// IsDeviceConnected implements Manager.
func (s *Simulator) IsDeviceConnected(serial string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.devices[serial]
	return ok
}

// Open implements Manager.
func (s *Simulator) Open(serial string) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[serial]
	if !ok {
		return nil, ErrUnknownSerial
	}
	return d, nil
}

// SimDevice is an in-memory Device.
//
// The physical output voltage and the remembered commanded target are
// tracked separately so the re-enable behaviour of the real firmware is
// reproduced: Disable drops the output to zero but keeps the target, and
// the next Jog after Enable moves relative to that target.
type SimDevice struct {
	mu            sync.Mutex
	serial        string
	connected     bool
	polling       bool
	enabled       bool
	settingsDelay time.Duration
	settingsAt    time.Time
	maxVoltage    float64
	voltage       float64
	target        float64
	jogStep       float64
	connectErr    error
	commandErr    error
}

func newSimDevice(serial string) *SimDevice {
	return &SimDevice{
		serial:     serial,
		maxVoltage: simDefaultMaxVoltage,
		jogStep:    simDefaultJogStep,
	}
}

// Serial returns the device serial number.
func (d *SimDevice) Serial() string {
	return d.serial
}

// SetMaxVoltage overrides the hardware voltage limit.
func (d *SimDevice) SetMaxVoltage(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maxVoltage = v
}

// SetSettingsDelay delays settings initialization by dur after Connect.
func (d *SimDevice) SetSettingsDelay(dur time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settingsDelay = dur
}

// SetConnectError makes subsequent Connect calls fail with err.
func (d *SimDevice) SetConnectError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connectErr = err
}

// SetCommandError makes subsequent command calls fail with err.
// Pass nil to clear.
func (d *SimDevice) SetCommandError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commandErr = err
}

// Target returns the remembered commanded target voltage.
func (d *SimDevice) Target() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target
}

// IsPolling reports whether internal polling is active.
func (d *SimDevice) IsPolling() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polling
}

// IsEnabled reports whether the output stage is energised.
func (d *SimDevice) IsEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// IsConnected implements Device.
func (d *SimDevice) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Connect implements Device.
func (d *SimDevice) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connectErr != nil {
		return d.connectErr
	}
	d.connected = true
	d.settingsAt = time.Now().Add(d.settingsDelay)
	return nil
}

// Disconnect implements Device.
func (d *SimDevice) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	d.polling = false
	return nil
}

// StartPolling implements Device.
func (d *SimDevice) StartPolling(interval time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return ErrNotConnected
	}
	d.polling = true
	return nil
}

// StopPolling implements Device.
func (d *SimDevice) StopPolling() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.polling = false
}

// Enable implements Device. The output stays at zero volts; the remembered
// target is applied by the next motion command.
func (d *SimDevice) Enable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return ErrNotConnected
	}
	if d.commandErr != nil {
		return d.commandErr
	}
	d.enabled = true
	return nil
}

// Disable implements Device. The output drops to zero volts but the
// remembered target is kept.
func (d *SimDevice) Disable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return ErrNotConnected
	}
	if d.commandErr != nil {
		return d.commandErr
	}
	d.enabled = false
	d.voltage = 0
	return nil
}

// IsSettingsInitialized implements Device.
func (d *SimDevice) IsSettingsInitialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected && !time.Now().Before(d.settingsAt)
}

// WaitForSettingsInitialized implements Device.
func (d *SimDevice) WaitForSettingsInitialized(ctx context.Context) error {
	ticker := time.NewTicker(simWaitPollInterval)
	defer ticker.Stop()
	for {
		if d.IsSettingsInitialized() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrSettingsNotInitialized
		case <-ticker.C:
		}
	}
}

// OutputVoltage implements Device.
func (d *SimDevice) OutputVoltage() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return 0, ErrNotConnected
	}
	return d.voltage, nil
}

// SetOutputVoltage implements Device. While disabled the target is stored
// but the physical output stays at zero.
func (d *SimDevice) SetOutputVoltage(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return ErrNotConnected
	}
	if d.commandErr != nil {
		return d.commandErr
	}
	d.target = clamp(v, 0, d.maxVoltage)
	if d.enabled {
		d.voltage = d.target
	}
	return nil
}

// MaxOutputVoltage implements Device.
func (d *SimDevice) MaxOutputVoltage() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return 0, ErrNotConnected
	}
	return d.maxVoltage, nil
}

// JogStep implements Device.
func (d *SimDevice) JogStep() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return 0, ErrNotConnected
	}
	return d.jogStep, nil
}

// SetJogStep implements Device.
func (d *SimDevice) SetJogStep(step float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return ErrNotConnected
	}
	if d.commandErr != nil {
		return d.commandErr
	}
	d.jogStep = step
	return nil
}

// Jog implements Device. Motion is relative to the remembered target, which
// is how the real firmware behaves after a disable/enable cycle.
func (d *SimDevice) Jog(dir JogDirection) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return ErrNotConnected
	}
	if !d.enabled {
		return ErrNotEnabled
	}
	if d.commandErr != nil {
		return d.commandErr
	}
	next := d.target + d.jogStep
	if dir == JogDecrease {
		next = d.target - d.jogStep
	}
	d.target = clamp(next, 0, d.maxVoltage)
	d.voltage = d.target
	return nil
}

// SetZero implements Device. Clears both the output and the remembered
// target.
func (d *SimDevice) SetZero() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return ErrNotConnected
	}
	if d.commandErr != nil {
		return d.commandErr
	}
	d.target = 0
	d.voltage = 0
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
