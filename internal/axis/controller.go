package axis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beamlab/piezo-core/internal/driver"
)

// State identifies where a Controller is in its lifecycle.
type State string

const (
	// StateDisconnected means no device connection is open.
	StateDisconnected State = "disconnected"
	// StateConnecting means a connection attempt is in progress.
	StateConnecting State = "connecting"
	// StateConnectedDisabled means the connection is open but the output
	// stage is de-energised.
	StateConnectedDisabled State = "connected_disabled"
	// StateConnectedEnabled means the connection is open and the output
	// stage is energised.
	StateConnectedEnabled State = "connected_enabled"
	// StateStopped is terminal: the controller has released its device
	// and accepts no further commands.
	StateStopped State = "stopped"
)

// Connected reports whether the state holds an open device connection.
func (s State) Connected() bool {
	return s == StateConnectedDisabled || s == StateConnectedEnabled
}

// Enabled reports whether the output stage is energised in this state.
func (s State) Enabled() bool {
	return s == StateConnectedEnabled
}

// maxJogStep is the largest allowed jog step size in volts.
const maxJogStep = 10.0

const (
	defaultDevicePollInterval  = 250 * time.Millisecond
	defaultSettingsInitTimeout = 10 * time.Second
)

// SettleDurations holds the quiet period the firmware needs after each
// command class before it will reliably accept the next one.
type SettleDurations struct {
	Connect    time.Duration
	Enable     time.Duration
	Disable    time.Duration
	Voltage    time.Duration
	JogStep    time.Duration
	Disconnect time.Duration
}

// DefaultSettleDurations returns the settle windows measured against the
// real hardware.
func DefaultSettleDurations() SettleDurations {
	return SettleDurations{
		Connect:    500 * time.Millisecond,
		Enable:     250 * time.Millisecond,
		Disable:    250 * time.Millisecond,
		Voltage:    time.Second,
		JogStep:    250 * time.Millisecond,
		Disconnect: time.Second,
	}
}

// Options configures a Controller. The zero value uses hardware defaults.
type Options struct {
	// Settle overrides the per-command settle windows. Zero value means
	// DefaultSettleDurations.
	Settle SettleDurations

	// DevicePollInterval is the device's internal status polling
	// interval. Defaults to 250ms.
	DevicePollInterval time.Duration

	// SettingsInitTimeout bounds the wait for device settings after
	// connecting. Defaults to 10s.
	SettingsInitTimeout time.Duration

	// Logger receives structured log output. Defaults to a no-op.
	Logger Logger

	// Clock overrides the time source. Test hook.
	Clock func() time.Time
}

// Controller owns a single piezo controller channel and enforces the
// lifecycle, bounds and settle rules for every command sent to it.
type Controller struct {
	serial       Serial
	dev          driver.Device
	logger       Logger
	now          func() time.Time
	settle       SettleDurations
	pollInterval time.Duration
	initTimeout  time.Duration

	mu          sync.Mutex
	state       State
	maxVoltage  float64
	voltage     float64
	jogStep     float64
	settleUntil time.Time
}

// Start validates serial against the registry, opens the device and brings
// it to the connected-enabled state: connect, start the device's internal
// polling, enable the output and wait for settings initialization.
//
// Construction is the one place the controller blocks; the wait for
// settings is bounded by SettingsInitTimeout and ctx, and a timeout is
// fatal (the device is released and ErrSettingsTimeout returned).
func Start(ctx context.Context, reg *Registry, serial Serial, opts Options) (*Controller, error) {
	if err := reg.RequireMinimumCount(ctx); err != nil {
		return nil, err
	}

	dev, err := reg.Open(ctx, serial)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		serial:       serial,
		dev:          dev,
		logger:       opts.Logger,
		now:          opts.Clock,
		settle:       opts.Settle,
		pollInterval: opts.DevicePollInterval,
		initTimeout:  opts.SettingsInitTimeout,
		state:        StateConnecting,
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if (c.settle == SettleDurations{}) {
		c.settle = DefaultSettleDurations()
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultDevicePollInterval
	}
	if c.initTimeout <= 0 {
		c.initTimeout = defaultSettingsInitTimeout
	}

	if err := c.bringUp(ctx); err != nil {
		return nil, err
	}

	c.logger.Info("axis controller started",
		"serial", serial.String(),
		"max_voltage", c.maxVoltage,
		"jog_step", c.jogStep,
	)
	return c, nil
}

// bringUp runs the connect sequence and moves the controller to
// connected-enabled. Called from Start and Connect with c.mu not held in
// Start (no concurrent access yet) and held in Connect.
func (c *Controller) bringUp(ctx context.Context) error {
	if !c.dev.IsConnected() {
		if err := c.dev.Connect(ctx); err != nil {
			return fmt.Errorf("connecting to device %s: %w", c.serial, err)
		}
	}

	if err := c.dev.StartPolling(c.pollInterval); err != nil {
		c.releaseDevice()
		return fmt.Errorf("starting device polling for %s: %w", c.serial, err)
	}

	if err := c.dev.Enable(); err != nil {
		c.releaseDevice()
		return fmt.Errorf("enabling output for %s: %w", c.serial, err)
	}

	if !c.dev.IsSettingsInitialized() {
		waitCtx, cancel := context.WithTimeout(ctx, c.initTimeout)
		err := c.dev.WaitForSettingsInitialized(waitCtx)
		cancel()
		if err != nil {
			c.releaseDevice()
			return fmt.Errorf("%w: device %s: %v", ErrSettingsTimeout, c.serial, err)
		}
	}

	maxV, err := c.dev.MaxOutputVoltage()
	if err != nil {
		c.releaseDevice()
		return fmt.Errorf("reading max output voltage for %s: %w", c.serial, err)
	}
	step, err := c.dev.JogStep()
	if err != nil {
		c.releaseDevice()
		return fmt.Errorf("reading jog step for %s: %w", c.serial, err)
	}
	voltage, err := c.dev.OutputVoltage()
	if err != nil {
		c.releaseDevice()
		return fmt.Errorf("reading output voltage for %s: %w", c.serial, err)
	}

	c.maxVoltage = maxV
	c.jogStep = step
	c.voltage = voltage
	c.state = StateConnectedEnabled
	// One window covering both the connect and enable quiet periods.
	c.settleUntil = c.now().Add(c.settle.Connect + c.settle.Enable)
	return nil
}

// releaseDevice tears down a partially established connection.
func (c *Controller) releaseDevice() {
	c.dev.StopPolling()
	if err := c.dev.Disconnect(); err != nil {
		c.logger.Warn("disconnect during teardown failed",
			"serial", c.serial.String(), "error", err)
	}
	c.state = StateDisconnected
}

// Serial returns the serial number of the owned device.
func (c *Controller) Serial() Serial {
	return c.serial
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot is a point-in-time view of a controller for read models.
type Snapshot struct {
	Serial     Serial  `json:"serial"`
	State      State   `json:"state"`
	Voltage    float64 `json:"voltage"`
	MaxVoltage float64 `json:"max_voltage"`
	JogStep    float64 `json:"jog_step"`
	Settling   bool    `json:"settling"`
}

// Snapshot returns the current state, readings and settle status.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Serial:     c.serial,
		State:      c.state,
		Voltage:    c.voltage,
		MaxVoltage: c.maxVoltage,
		JogStep:    c.jogStep,
		Settling:   c.now().Before(c.settleUntil),
	}
}

// gate rejects commands that arrive while stopped or inside a settle
// window. Caller must hold c.mu.
func (c *Controller) gate(command string) *CommandRejectedError {
	if c.state == StateStopped {
		return &CommandRejectedError{Command: command, Reason: RejectStopped}
	}
	if remaining := c.settleUntil.Sub(c.now()); remaining > 0 {
		return &CommandRejectedError{
			Command: command,
			Reason:  RejectSettling,
			Detail:  fmt.Sprintf("%s remaining", remaining.Round(time.Millisecond)),
		}
	}
	return nil
}

// SetVoltage commands a new output voltage. The value must lie within
// [0, max output voltage] or the command is rejected without touching the
// hardware.
func (c *Controller) SetVoltage(v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rej := c.gate("set_voltage"); rej != nil {
		return rej
	}
	if !c.state.Connected() {
		return &CommandRejectedError{Command: "set_voltage", Reason: RejectNotConnected}
	}
	if v < 0 || v > c.maxVoltage {
		return &CommandRejectedError{
			Command: "set_voltage",
			Reason:  RejectOutOfRange,
			Detail:  fmt.Sprintf("%.3f outside [0, %.3f]", v, c.maxVoltage),
		}
	}

	if err := c.dev.SetOutputVoltage(v); err != nil {
		return fmt.Errorf("setting output voltage on %s: %w", c.serial, err)
	}
	c.voltage = v
	c.settleUntil = c.now().Add(c.settle.Voltage)
	c.logger.Debug("output voltage set", "serial", c.serial.String(), "voltage", v)
	return nil
}

// SetJogStep changes the jog step size. The value must lie within
// [0, 10] volts or the command is rejected without touching the hardware.
func (c *Controller) SetJogStep(step float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rej := c.gate("set_jog_step"); rej != nil {
		return rej
	}
	if !c.state.Connected() {
		return &CommandRejectedError{Command: "set_jog_step", Reason: RejectNotConnected}
	}
	if step < 0 || step > maxJogStep {
		return &CommandRejectedError{
			Command: "set_jog_step",
			Reason:  RejectOutOfRange,
			Detail:  fmt.Sprintf("%.3f outside [0, %.3f]", step, maxJogStep),
		}
	}

	if err := c.dev.SetJogStep(step); err != nil {
		return fmt.Errorf("setting jog step on %s: %w", c.serial, err)
	}
	c.jogStep = step
	c.settleUntil = c.now().Add(c.settle.JogStep)
	c.logger.Debug("jog step set", "serial", c.serial.String(), "jog_step", step)
	return nil
}

// Jog moves the output one jog step in the given direction. Requires the
// output enabled and the last observed voltage within [0, max]; the
// hardware clamps the resulting voltage at its limits.
func (c *Controller) Jog(dir driver.JogDirection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rej := c.gate("jog"); rej != nil {
		return rej
	}
	switch c.state {
	case StateConnectedEnabled:
	case StateConnectedDisabled:
		return &CommandRejectedError{Command: "jog", Reason: RejectNotEnabled}
	default:
		return &CommandRejectedError{Command: "jog", Reason: RejectNotConnected}
	}
	if c.voltage < 0 || c.voltage > c.maxVoltage {
		return &CommandRejectedError{
			Command: "jog",
			Reason:  RejectInvalidReading,
			Detail:  fmt.Sprintf("observed %.3f outside [0, %.3f]", c.voltage, c.maxVoltage),
		}
	}

	if err := c.dev.Jog(dir); err != nil {
		return fmt.Errorf("jogging %s on %s: %w", dir, c.serial, err)
	}
	if v, err := c.dev.OutputVoltage(); err == nil {
		c.voltage = v
	} else {
		c.logger.Warn("voltage readback after jog failed",
			"serial", c.serial.String(), "error", err)
	}
	c.logger.Debug("jogged", "serial", c.serial.String(), "direction", dir.String(), "voltage", c.voltage)
	return nil
}

// Zero drives the output to zero volts and clears the device's remembered
// target.
func (c *Controller) Zero() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rej := c.gate("zero"); rej != nil {
		return rej
	}
	if !c.state.Connected() {
		return &CommandRejectedError{Command: "zero", Reason: RejectNotConnected}
	}

	if err := c.dev.SetZero(); err != nil {
		return fmt.Errorf("zeroing output on %s: %w", c.serial, err)
	}
	c.voltage = 0
	c.settleUntil = c.now().Add(c.settle.Voltage)
	c.logger.Debug("output zeroed", "serial", c.serial.String())
	return nil
}

// Enable energises the output stage. No-op when already enabled.
func (c *Controller) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rej := c.gate("enable"); rej != nil {
		return rej
	}
	switch c.state {
	case StateConnectedEnabled:
		return nil
	case StateConnectedDisabled:
	default:
		return &CommandRejectedError{Command: "enable", Reason: RejectNotConnected}
	}

	if err := c.dev.Enable(); err != nil {
		return fmt.Errorf("enabling output on %s: %w", c.serial, err)
	}
	c.state = StateConnectedEnabled
	c.settleUntil = c.now().Add(c.settle.Enable)
	c.logger.Info("output enabled", "serial", c.serial.String())
	return nil
}

// Disable de-energises the output stage. The physical output drops to zero
// volts; the device keeps its remembered target. No-op when already
// disabled.
func (c *Controller) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rej := c.gate("disable"); rej != nil {
		return rej
	}
	switch c.state {
	case StateConnectedDisabled:
		return nil
	case StateConnectedEnabled:
	default:
		return &CommandRejectedError{Command: "disable", Reason: RejectNotConnected}
	}

	if err := c.dev.Disable(); err != nil {
		return fmt.Errorf("disabling output on %s: %w", c.serial, err)
	}
	c.state = StateConnectedDisabled
	c.voltage = 0
	c.settleUntil = c.now().Add(c.settle.Disable)
	c.logger.Info("output disabled", "serial", c.serial.String())
	return nil
}

// Disconnect stops device polling and closes the connection. The output
// stage is left as-is; the hardware keeps driving its last voltage. No-op
// when already disconnected.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rej := c.gate("disconnect"); rej != nil {
		return rej
	}
	if !c.state.Connected() {
		return nil
	}

	c.dev.StopPolling()
	if err := c.dev.Disconnect(); err != nil {
		return fmt.Errorf("disconnecting %s: %w", c.serial, err)
	}
	c.state = StateDisconnected
	c.settleUntil = c.now().Add(c.settle.Disconnect)
	c.logger.Info("device disconnected", "serial", c.serial.String())
	return nil
}

// Connect re-runs the full connect sequence after a Disconnect. No-op when
// already connected.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rej := c.gate("connect"); rej != nil {
		return rej
	}
	if c.state.Connected() {
		return nil
	}

	c.state = StateConnecting
	if err := c.bringUp(ctx); err != nil {
		return err
	}
	c.logger.Info("device reconnected", "serial", c.serial.String())
	return nil
}

// Refresh re-reads the output voltage from the device. No-op when the
// controller holds no connection.
func (c *Controller) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Connected() {
		return nil
	}
	v, err := c.dev.OutputVoltage()
	if err != nil {
		return fmt.Errorf("reading output voltage from %s: %w", c.serial, err)
	}
	c.voltage = v
	return nil
}

// Stop is the terminal shutdown: best-effort disable, stop polling and
// disconnect, then refuse all further commands. Safe to call repeatedly;
// subsequent calls return nil.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStopped {
		return nil
	}

	var errs []error
	if c.state.Connected() {
		if c.state.Enabled() {
			if err := c.dev.Disable(); err != nil {
				errs = append(errs, fmt.Errorf("disabling output on %s: %w", c.serial, err))
			}
		}
		c.dev.StopPolling()
		if err := c.dev.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("disconnecting %s: %w", c.serial, err))
		}
	}
	c.state = StateStopped
	c.voltage = 0
	c.logger.Info("axis controller stopped", "serial", c.serial.String())
	return errors.Join(errs...)
}
