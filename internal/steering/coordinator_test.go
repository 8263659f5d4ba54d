package steering

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/beamlab/piezo-core/internal/axis"
	"github.com/beamlab/piezo-core/internal/driver"
)

const (
	testSerialX = "29500241"
	testSerialY = "29500242"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memoryAssignments is an in-memory AssignmentStore.
type memoryAssignments struct {
	mu    sync.Mutex
	a     Assignment
	saved bool
}

func (m *memoryAssignments) Load(_ context.Context) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return Assignment{}, ErrNoAssignment
	}
	return m.a, nil
}

func (m *memoryAssignments) Save(_ context.Context, a Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.a = a
	m.saved = true
	return nil
}

// memoryRecorder is an in-memory audit Recorder.
type memoryRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (m *memoryRecorder) Record(_ context.Context, entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryRecorder) all() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

func startTestCoordinator(t *testing.T, opts Options) (*Coordinator, *driver.Simulator, *fakeClock) {
	t.Helper()
	sim := driver.NewSimulator(testSerialX, testSerialY)
	clk := newFakeClock()
	opts.Controller.Clock = clk.Now

	coord := NewCoordinator(axis.NewRegistry(sim), opts)
	if err := coord.Start(context.Background(), testSerialX, testSerialY); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Skip past the startup settle window.
	clk.Advance(time.Second)
	return coord, sim, clk
}

func TestCoordinatorStartBringsUpBothAxes(t *testing.T) {
	coord, _, _ := startTestCoordinator(t, Options{})

	status := coord.Status()
	if len(status.Axes) != 2 {
		t.Fatalf("expected 2 axes, got %d", len(status.Axes))
	}
	if status.Axes[0].Axis != AxisX || status.Axes[1].Axis != AxisY {
		t.Errorf("expected x, y order, got %v, %v", status.Axes[0].Axis, status.Axes[1].Axis)
	}
	for _, st := range status.Axes {
		if st.State != axis.StateConnectedEnabled {
			t.Errorf("axis %s: expected connected_enabled, got %s", st.Axis, st.State)
		}
	}
}

func TestCoordinatorStartPersistsAssignment(t *testing.T) {
	store := &memoryAssignments{}
	startTestCoordinator(t, Options{Assignments: store})

	saved, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("expected assignment persisted: %v", err)
	}
	if saved.SerialX != testSerialX || saved.SerialY != testSerialY {
		t.Errorf("unexpected persisted assignment: %+v", saved)
	}
}

func TestCoordinatorStartRestoresStoredAssignment(t *testing.T) {
	// Stored assignment has the serials swapped relative to the
	// requested ones; the store wins.
	store := &memoryAssignments{}
	if err := store.Save(context.Background(), Assignment{SerialX: testSerialY, SerialY: testSerialX}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	coord, _, _ := startTestCoordinator(t, Options{Assignments: store})
	a, ok := coord.Assignment()
	if !ok {
		t.Fatal("expected assignment")
	}
	if a.SerialX != testSerialY || a.SerialY != testSerialX {
		t.Errorf("expected stored assignment restored, got %+v", a)
	}
}

func TestCoordinatorStartRejectsDuplicateSerial(t *testing.T) {
	sim := driver.NewSimulator(testSerialX, testSerialY)
	coord := NewCoordinator(axis.NewRegistry(sim), Options{})
	if err := coord.Start(context.Background(), testSerialX, testSerialX); err == nil {
		t.Fatal("expected duplicate serial to fail")
	}
}

func TestCoordinatorJogAndToggleDirection(t *testing.T) {
	coord, _, clk := startTestCoordinator(t, Options{})
	ctx := context.Background()

	if err := coord.SetVoltage(ctx, AxisX, 40); err != nil {
		t.Fatalf("SetVoltage failed: %v", err)
	}
	clk.Advance(2 * time.Second)

	// Default mapping: increase control raises the voltage.
	if err := coord.Increase(ctx, AxisX); err != nil {
		t.Fatalf("Increase failed: %v", err)
	}
	st, _ := coord.AxisStatus(AxisX)
	if st.Voltage != 41 {
		t.Errorf("expected 41 after increase, got %v", st.Voltage)
	}

	// Flipped mapping: the same control lowers the voltage.
	if err := coord.ToggleDirection(ctx, AxisX); err != nil {
		t.Fatalf("ToggleDirection failed: %v", err)
	}
	if err := coord.Increase(ctx, AxisX); err != nil {
		t.Fatalf("Increase failed: %v", err)
	}
	st, _ = coord.AxisStatus(AxisX)
	if st.Voltage != 40 {
		t.Errorf("expected 40 after flipped increase, got %v", st.Voltage)
	}

	// Toggling twice restores the original mapping.
	if err := coord.ToggleDirection(ctx, AxisX); err != nil {
		t.Fatalf("ToggleDirection failed: %v", err)
	}
	if err := coord.Increase(ctx, AxisX); err != nil {
		t.Fatalf("Increase failed: %v", err)
	}
	st, _ = coord.AxisStatus(AxisX)
	if st.Voltage != 41 {
		t.Errorf("expected 41 after double toggle, got %v", st.Voltage)
	}
}

func TestCoordinatorInterlockRejectsForbiddenControl(t *testing.T) {
	coord, _, clk := startTestCoordinator(t, Options{})
	ctx := context.Background()

	if err := coord.SetJogStep(ctx, AxisX, 5); err != nil {
		t.Fatalf("SetJogStep failed: %v", err)
	}
	clk.Advance(time.Second)
	if err := coord.SetVoltage(ctx, AxisX, 3); err != nil {
		t.Fatalf("SetVoltage failed: %v", err)
	}
	clk.Advance(2 * time.Second)

	// Within one step of zero: decrease forbidden, increase allowed.
	err := coord.Decrease(ctx, AxisX)
	rej, ok := axis.IsRejected(err)
	if !ok || rej.Reason != axis.RejectInterlocked {
		t.Fatalf("expected interlocked rejection, got %v", err)
	}
	if err := coord.Increase(ctx, AxisX); err != nil {
		t.Errorf("expected increase allowed near zero: %v", err)
	}

	// With the direction flipped the forbidden control swaps.
	clk.Advance(time.Second)
	if err := coord.SetVoltage(ctx, AxisX, 3); err != nil {
		t.Fatalf("SetVoltage failed: %v", err)
	}
	clk.Advance(2 * time.Second)
	if err := coord.ToggleDirection(ctx, AxisX); err != nil {
		t.Fatalf("ToggleDirection failed: %v", err)
	}
	err = coord.Increase(ctx, AxisX)
	if rej, ok := axis.IsRejected(err); !ok || rej.Reason != axis.RejectInterlocked {
		t.Fatalf("expected flipped increase interlocked, got %v", err)
	}
	if err := coord.Decrease(ctx, AxisX); err != nil {
		t.Errorf("expected flipped decrease allowed near zero: %v", err)
	}
}

func TestCoordinatorInterlockReportedWhileDisabled(t *testing.T) {
	coord, _, clk := startTestCoordinator(t, Options{})
	ctx := context.Background()

	if err := coord.Disable(ctx, AxisX); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	clk.Advance(time.Second)

	// A connected axis reports the computed interlock even with the output
	// stage off. At zero volts only the increase control is permitted.
	st, ok := coord.AxisStatus(AxisX)
	if !ok {
		t.Fatal("AxisStatus returned no status")
	}
	if st.State != axis.StateConnectedDisabled {
		t.Fatalf("expected connected_disabled, got %s", st.State)
	}
	if !st.Interlock.IncreaseAllowed || st.Interlock.DecreaseAllowed {
		t.Errorf("expected interlock {increase:true decrease:false}, got %+v", st.Interlock)
	}

	// Once disconnected the interlock reverts to its zero value.
	if err := coord.Disconnect(ctx, AxisX); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	clk.Advance(2 * time.Second)
	st, ok = coord.AxisStatus(AxisX)
	if !ok {
		t.Fatal("AxisStatus returned no status")
	}
	if st.Interlock.IncreaseAllowed || st.Interlock.DecreaseAllowed {
		t.Errorf("expected zero interlock when disconnected, got %+v", st.Interlock)
	}
}

func TestCoordinatorRecordsAudit(t *testing.T) {
	rec := &memoryRecorder{}
	coord, _, clk := startTestCoordinator(t, Options{Audit: rec})
	ctx := context.Background()

	if err := coord.SetVoltage(ctx, AxisX, 40); err != nil {
		t.Fatalf("SetVoltage failed: %v", err)
	}
	// Still settling: the next command is rejected and audited as such.
	if err := coord.SetVoltage(ctx, AxisX, 41); err == nil {
		t.Fatal("expected settling rejection")
	}
	clk.Advance(2 * time.Second)
	// Out of range: rejected.
	if err := coord.SetVoltage(ctx, AxisX, 80); err == nil {
		t.Fatal("expected out-of-range rejection")
	}

	entries := rec.all()
	if len(entries) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(entries))
	}
	if entries[0].Outcome != "accepted" {
		t.Errorf("expected first entry accepted, got %s", entries[0].Outcome)
	}
	if entries[1].Outcome != "rejected" || entries[1].Reason != string(axis.RejectSettling) {
		t.Errorf("expected settling rejection audited, got %+v", entries[1])
	}
	if entries[2].Outcome != "rejected" || entries[2].Reason != string(axis.RejectOutOfRange) {
		t.Errorf("expected out-of-range rejection audited, got %+v", entries[2])
	}
	if entries[0].Value == nil || *entries[0].Value != 40 {
		t.Errorf("expected command value recorded, got %+v", entries[0].Value)
	}
}

func TestCoordinatorReassign(t *testing.T) {
	store := &memoryAssignments{}
	coord, sim, clk := startTestCoordinator(t, Options{Assignments: store})
	ctx := context.Background()

	sim.AddDevice("29500243")

	// Unknown serial: validation fails, running axes untouched.
	err := coord.Reassign(ctx, "29599999", testSerialY)
	var mismatch *axis.MismatchSerialError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchSerialError, got %v", err)
	}
	st, _ := coord.AxisStatus(AxisX)
	if st.State != axis.StateConnectedEnabled {
		t.Errorf("expected x axis still running, got %s", st.State)
	}

	// Valid reassignment swaps the x axis to the new device.
	if err := coord.Reassign(ctx, "29500243", testSerialY); err != nil {
		t.Fatalf("Reassign failed: %v", err)
	}
	clk.Advance(time.Second)

	a, ok := coord.Assignment()
	if !ok || a.SerialX != "29500243" {
		t.Errorf("expected x axis on 29500243, got %+v", a)
	}
	saved, err := store.Load(ctx)
	if err != nil || saved.SerialX != "29500243" {
		t.Errorf("expected reassignment persisted, got %+v (%v)", saved, err)
	}
	// The old x device was released.
	if sim.Device(testSerialX).IsConnected() {
		t.Error("expected old x device disconnected")
	}
}

func TestCoordinatorStop(t *testing.T) {
	coord, sim, _ := startTestCoordinator(t, Options{})

	if err := coord.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	for _, serial := range []string{testSerialX, testSerialY} {
		if sim.Device(serial).IsConnected() {
			t.Errorf("expected %s released after stop", serial)
		}
	}
	// Repeated stop stays clean.
	if err := coord.Stop(); err != nil {
		t.Errorf("expected repeated stop to return nil: %v", err)
	}

	err := coord.SetVoltage(context.Background(), AxisX, 10)
	if rej, ok := axis.IsRejected(err); !ok || rej.Reason != axis.RejectStopped {
		t.Errorf("expected stopped rejection, got %v", err)
	}
}

func TestParseAxisID(t *testing.T) {
	if id, err := ParseAxisID("x"); err != nil || id != AxisX {
		t.Errorf("ParseAxisID(x) = %v, %v", id, err)
	}
	if id, err := ParseAxisID("y"); err != nil || id != AxisY {
		t.Errorf("ParseAxisID(y) = %v, %v", id, err)
	}
	if _, err := ParseAxisID("z"); !errors.Is(err, ErrUnknownAxis) {
		t.Errorf("expected ErrUnknownAxis, got %v", err)
	}
}
