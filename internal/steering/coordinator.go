package steering

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/beamlab/piezo-core/internal/axis"
)

// AxisID names one of the two steering axes.
type AxisID string

const (
	// AxisX is the horizontal steering axis.
	AxisX AxisID = "x"
	// AxisY is the vertical steering axis.
	AxisY AxisID = "y"
)

// axisOrder fixes the iteration order for status and polling.
var axisOrder = [2]AxisID{AxisX, AxisY}

// ErrUnknownAxis indicates an axis identifier other than "x" or "y".
var ErrUnknownAxis = errors.New("steering: unknown axis")

// ParseAxisID validates an axis identifier from an external source.
func ParseAxisID(s string) (AxisID, error) {
	switch AxisID(s) {
	case AxisX:
		return AxisX, nil
	case AxisY:
		return AxisY, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAxis, s)
}

// Logger is the minimal logging interface the package depends on.
// Satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AxisStatus is the per-axis read model exposed to the API, the websocket
// stream and the MQTT state topics.
type AxisStatus struct {
	Axis AxisID `json:"axis"`
	axis.Snapshot
	Flipped bool `json:"direction_flipped"`
	Interlock
	LastError string `json:"last_error,omitempty"`
}

// Status is the combined read model for both axes.
type Status struct {
	Axes []AxisStatus `json:"axes"`
}

// Options configures a Coordinator.
type Options struct {
	// Controller is passed through to every axis controller started by
	// the coordinator.
	Controller axis.Options

	// Assignments persists the axis-to-serial assignment. Optional; when
	// nil, reassignments are not persisted across restarts.
	Assignments AssignmentStore

	// Audit records every operator command. Optional.
	Audit Recorder

	// Logger receives structured log output. Defaults to a no-op.
	Logger Logger
}

type axisSlot struct {
	ctrl    *axis.Controller
	serial  axis.Serial
	flipped bool
	lastErr string
}

// Coordinator owns the X and Y axis controllers and applies the
// direction-flag mapping and jog-limit interlock to every motion command.
type Coordinator struct {
	registry    *axis.Registry
	ctrlOpts    axis.Options
	assignments AssignmentStore
	audit       Recorder
	logger      Logger

	mu   sync.RWMutex
	axes map[AxisID]*axisSlot
}

// NewCoordinator creates a Coordinator. Call Start to bring the axes up.
func NewCoordinator(registry *axis.Registry, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Coordinator{
		registry:    registry,
		ctrlOpts:    opts.Controller,
		assignments: opts.Assignments,
		audit:       opts.Audit,
		logger:      logger,
		axes:        make(map[AxisID]*axisSlot),
	}
}

// Start brings up both axis controllers. The stored assignment takes
// precedence over the given serials; when no assignment is stored the
// given serials are used and persisted. Fails without side effects on
// validation errors; if the second axis fails to start the first is
// stopped before returning.
func (c *Coordinator) Start(ctx context.Context, serialX, serialY axis.Serial) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.assignments != nil {
		stored, err := c.assignments.Load(ctx)
		switch {
		case err == nil:
			c.logger.Info("restoring stored axis assignment",
				"serial_x", stored.SerialX.String(),
				"serial_y", stored.SerialY.String(),
			)
			serialX, serialY = stored.SerialX, stored.SerialY
		case errors.Is(err, ErrNoAssignment):
		default:
			return fmt.Errorf("loading axis assignment: %w", err)
		}
	}

	if err := c.startAxesLocked(ctx, serialX, serialY); err != nil {
		return err
	}
	return c.persistLocked(ctx, serialX, serialY)
}

// Reassign swaps both axes onto new serial numbers: validation first, then
// existing controllers are stopped, new ones started and the assignment
// persisted. Returns without touching the running controllers when
// validation fails.
func (c *Coordinator) Reassign(ctx context.Context, serialX, serialY axis.Serial) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if serialX == serialY {
		return fmt.Errorf("steering: both axes assigned serial %s", serialX)
	}
	if err := c.registry.RequireMinimumCount(ctx); err != nil {
		return err
	}
	if err := c.registry.Validate(ctx, serialX); err != nil {
		return err
	}
	if err := c.registry.Validate(ctx, serialY); err != nil {
		return err
	}

	for _, id := range axisOrder {
		if slot := c.axes[id]; slot != nil && slot.ctrl != nil {
			if err := slot.ctrl.Stop(); err != nil {
				c.logger.Warn("stopping axis during reassignment failed",
					"axis", string(id), "error", err)
			}
		}
	}
	c.axes = make(map[AxisID]*axisSlot)

	if err := c.startAxesLocked(ctx, serialX, serialY); err != nil {
		return err
	}
	if err := c.persistLocked(ctx, serialX, serialY); err != nil {
		return err
	}
	c.logger.Info("axes reassigned",
		"serial_x", serialX.String(), "serial_y", serialY.String())
	return nil
}

// startAxesLocked starts X then Y, stopping X if Y fails. Caller holds c.mu.
func (c *Coordinator) startAxesLocked(ctx context.Context, serialX, serialY axis.Serial) error {
	if serialX == serialY {
		return fmt.Errorf("steering: both axes assigned serial %s", serialX)
	}

	ctrlX, err := axis.Start(ctx, c.registry, serialX, c.ctrlOpts)
	if err != nil {
		return fmt.Errorf("starting x axis: %w", err)
	}
	ctrlY, err := axis.Start(ctx, c.registry, serialY, c.ctrlOpts)
	if err != nil {
		if stopErr := ctrlX.Stop(); stopErr != nil {
			c.logger.Warn("stopping x axis after y failure", "error", stopErr)
		}
		return fmt.Errorf("starting y axis: %w", err)
	}

	c.axes[AxisX] = &axisSlot{ctrl: ctrlX, serial: serialX}
	c.axes[AxisY] = &axisSlot{ctrl: ctrlY, serial: serialY}
	return nil
}

// persistLocked saves the assignment when a store is configured. Caller
// holds c.mu.
func (c *Coordinator) persistLocked(ctx context.Context, serialX, serialY axis.Serial) error {
	if c.assignments == nil {
		return nil
	}
	if err := c.assignments.Save(ctx, Assignment{SerialX: serialX, SerialY: serialY}); err != nil {
		return fmt.Errorf("persisting axis assignment: %w", err)
	}
	return nil
}

// Assignment returns the current axis-to-serial assignment.
func (c *Coordinator) Assignment() (Assignment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	x, y := c.axes[AxisX], c.axes[AxisY]
	if x == nil || y == nil {
		return Assignment{}, false
	}
	return Assignment{SerialX: x.serial, SerialY: y.serial}, true
}

// axisView is a consistent copy of one slot's fields, taken under the
// coordinator lock so command paths never race direction toggles or
// reassignments.
type axisView struct {
	ctrl    *axis.Controller
	serial  axis.Serial
	flipped bool
	lastErr string
}

func (c *Coordinator) view(id AxisID) (axisView, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	slot := c.axes[id]
	if slot == nil || slot.ctrl == nil {
		return axisView{}, fmt.Errorf("%w: %q", ErrUnknownAxis, id)
	}
	return axisView{
		ctrl:    slot.ctrl,
		serial:  slot.serial,
		flipped: slot.flipped,
		lastErr: slot.lastErr,
	}, nil
}

// record writes the command outcome to the audit trail, best effort.
func (c *Coordinator) record(ctx context.Context, id AxisID, command string, value *float64, cmdErr error) {
	if c.audit == nil {
		return
	}
	entry := AuditEntry{
		Axis:    string(id),
		Command: command,
		Value:   value,
		Outcome: auditOutcomeAccepted,
	}
	if cmdErr != nil {
		if rej, ok := axis.IsRejected(cmdErr); ok {
			entry.Outcome = auditOutcomeRejected
			entry.Reason = string(rej.Reason)
		} else {
			entry.Outcome = auditOutcomeFailed
			entry.Reason = cmdErr.Error()
		}
	}
	if err := c.audit.Record(ctx, entry); err != nil {
		c.logger.Warn("audit record failed", "command", command, "error", err)
	}
}

// Increase jogs the axis in the direction its increase control maps to.
// Rejected when the jog-limit interlock forbids the control.
func (c *Coordinator) Increase(ctx context.Context, id AxisID) error {
	return c.jog(ctx, id, ControlIncrease)
}

// Decrease jogs the axis in the direction its decrease control maps to.
// Rejected when the jog-limit interlock forbids the control.
func (c *Coordinator) Decrease(ctx context.Context, id AxisID) error {
	return c.jog(ctx, id, ControlDecrease)
}

func (c *Coordinator) jog(ctx context.Context, id AxisID, control Control) error {
	command := "jog_" + string(control)
	ax, err := c.view(id)
	if err != nil {
		return err
	}

	snap := ax.ctrl.Snapshot()
	if snap.State.Connected() {
		lock := ControlInterlock(ax.flipped, snap.Voltage, snap.JogStep, snap.MaxVoltage)
		allowed := lock.IncreaseAllowed
		if control == ControlDecrease {
			allowed = lock.DecreaseAllowed
		}
		if !allowed {
			err := &axis.CommandRejectedError{Command: command, Reason: axis.RejectInterlocked}
			c.record(ctx, id, command, nil, err)
			return err
		}
	}

	err = ax.ctrl.Jog(MapControl(ax.flipped, control))
	c.record(ctx, id, command, nil, err)
	return err
}

// SetVoltage commands a new output voltage on the axis.
func (c *Coordinator) SetVoltage(ctx context.Context, id AxisID, v float64) error {
	ax, err := c.view(id)
	if err != nil {
		return err
	}
	err = ax.ctrl.SetVoltage(v)
	c.record(ctx, id, "set_voltage", &v, err)
	return err
}

// SetJogStep changes the jog step size on the axis.
func (c *Coordinator) SetJogStep(ctx context.Context, id AxisID, step float64) error {
	ax, err := c.view(id)
	if err != nil {
		return err
	}
	err = ax.ctrl.SetJogStep(step)
	c.record(ctx, id, "set_jog_step", &step, err)
	return err
}

// Zero drives the axis output to zero volts.
func (c *Coordinator) Zero(ctx context.Context, id AxisID) error {
	ax, err := c.view(id)
	if err != nil {
		return err
	}
	err = ax.ctrl.Zero()
	c.record(ctx, id, "zero", nil, err)
	return err
}

// Enable energises the axis output stage.
func (c *Coordinator) Enable(ctx context.Context, id AxisID) error {
	ax, err := c.view(id)
	if err != nil {
		return err
	}
	err = ax.ctrl.Enable()
	c.record(ctx, id, "enable", nil, err)
	return err
}

// Disable de-energises the axis output stage.
func (c *Coordinator) Disable(ctx context.Context, id AxisID) error {
	ax, err := c.view(id)
	if err != nil {
		return err
	}
	err = ax.ctrl.Disable()
	c.record(ctx, id, "disable", nil, err)
	return err
}

// Connect re-opens the axis device connection after a disconnect.
func (c *Coordinator) Connect(ctx context.Context, id AxisID) error {
	ax, err := c.view(id)
	if err != nil {
		return err
	}
	err = ax.ctrl.Connect(ctx)
	c.record(ctx, id, "connect", nil, err)
	return err
}

// Disconnect closes the axis device connection.
func (c *Coordinator) Disconnect(ctx context.Context, id AxisID) error {
	ax, err := c.view(id)
	if err != nil {
		return err
	}
	err = ax.ctrl.Disconnect()
	c.record(ctx, id, "disconnect", nil, err)
	return err
}

// ToggleDirection flips the axis direction flag, swapping which physical
// jog direction the operator controls drive.
func (c *Coordinator) ToggleDirection(ctx context.Context, id AxisID) error {
	c.mu.Lock()
	slot := c.axes[id]
	if slot == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownAxis, id)
	}
	slot.flipped = !slot.flipped
	flipped := slot.flipped
	c.mu.Unlock()

	c.logger.Info("axis direction toggled", "axis", string(id), "flipped", flipped)
	c.record(ctx, id, "toggle_direction", nil, nil)
	return nil
}

// Refresh re-reads the axis voltage from hardware. Errors are retained in
// the axis status until the next successful refresh.
func (c *Coordinator) Refresh(id AxisID) error {
	ax, err := c.view(id)
	if err != nil {
		return err
	}
	refreshErr := ax.ctrl.Refresh()

	c.mu.Lock()
	if slot := c.axes[id]; slot != nil {
		if refreshErr != nil {
			slot.lastErr = refreshErr.Error()
		} else {
			slot.lastErr = ""
		}
	}
	c.mu.Unlock()
	return refreshErr
}

// AxisStatus returns the read model for one axis.
func (c *Coordinator) AxisStatus(id AxisID) (AxisStatus, bool) {
	ax, err := c.view(id)
	if err != nil {
		return AxisStatus{}, false
	}

	snap := ax.ctrl.Snapshot()
	status := AxisStatus{
		Axis:      id,
		Snapshot:  snap,
		Flipped:   ax.flipped,
		LastError: ax.lastErr,
	}
	if snap.State.Connected() {
		status.Interlock = ControlInterlock(ax.flipped, snap.Voltage, snap.JogStep, snap.MaxVoltage)
	}
	return status, true
}

// Status returns the read model for both axes in x, y order.
func (c *Coordinator) Status() Status {
	var status Status
	for _, id := range axisOrder {
		if st, ok := c.AxisStatus(id); ok {
			status.Axes = append(status.Axes, st)
		}
	}
	return status
}

// Stop terminally stops both axis controllers. Safe to call repeatedly.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, id := range axisOrder {
		if slot := c.axes[id]; slot != nil && slot.ctrl != nil {
			if err := slot.ctrl.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stopping %s axis: %w", id, err))
			}
		}
	}
	return errors.Join(errs...)
}
