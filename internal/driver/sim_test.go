package driver

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSimulatorEnumeration(t *testing.T) {
	sim := NewSimulator("29500001", "29500002")

	if err := sim.BuildDeviceList(context.Background()); err != nil {
		t.Fatalf("BuildDeviceList failed: %v", err)
	}

	list := sim.DeviceList()
	if len(list) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(list))
	}
	if list[0] != "29500001" || list[1] != "29500002" {
		t.Errorf("expected sorted serials, got %v", list)
	}

	if !sim.IsDeviceConnected("29500001") {
		t.Error("expected 29500001 to be present")
	}
	if sim.IsDeviceConnected("29599999") {
		t.Error("expected 29599999 to be absent")
	}
}

func TestSimulatorOpenUnknownSerial(t *testing.T) {
	sim := NewSimulator("29500001")

	if _, err := sim.Open("29599999"); !errors.Is(err, ErrUnknownSerial) {
		t.Errorf("expected ErrUnknownSerial, got %v", err)
	}
}

func TestSimulatorBuildError(t *testing.T) {
	sim := NewSimulator("29500001")
	injected := errors.New("usb enumeration failed")
	sim.SetBuildError(injected)

	if err := sim.BuildDeviceList(context.Background()); !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}

	sim.SetBuildError(nil)
	if err := sim.BuildDeviceList(context.Background()); err != nil {
		t.Errorf("expected nil after clearing, got %v", err)
	}
}

func TestSimDeviceLifecycle(t *testing.T) {
	sim := NewSimulator("29500001")
	dev, err := sim.Open("29500001")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// Commands before Connect must fail.
	if _, err := dev.OutputVoltage(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected before Connect, got %v", err)
	}

	if err := dev.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !dev.IsConnected() {
		t.Error("expected connected after Connect")
	}

	if err := dev.StartPolling(250 * time.Millisecond); err != nil {
		t.Fatalf("StartPolling failed: %v", err)
	}
	if err := dev.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}

	if err := dev.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if dev.IsConnected() {
		t.Error("expected disconnected after Disconnect")
	}
	// Disconnect is safe to repeat.
	if err := dev.Disconnect(); err != nil {
		t.Errorf("repeated Disconnect failed: %v", err)
	}
}

func TestSimDeviceJogRequiresEnable(t *testing.T) {
	sim := NewSimulator("29500001")
	dev := sim.Device("29500001")

	if err := dev.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := dev.Jog(JogIncrease); !errors.Is(err, ErrNotEnabled) {
		t.Errorf("expected ErrNotEnabled, got %v", err)
	}
}

func TestSimDeviceJogClampsAtLimits(t *testing.T) {
	sim := NewSimulator("29500001")
	dev := sim.Device("29500001")
	dev.SetMaxVoltage(75)

	mustConnect(t, dev)
	if err := dev.SetJogStep(5); err != nil {
		t.Fatalf("SetJogStep failed: %v", err)
	}

	// Decrease clamps at zero.
	if err := dev.SetOutputVoltage(3); err != nil {
		t.Fatalf("SetOutputVoltage failed: %v", err)
	}
	if err := dev.Jog(JogDecrease); err != nil {
		t.Fatalf("Jog failed: %v", err)
	}
	if v, _ := dev.OutputVoltage(); v != 0 {
		t.Errorf("expected clamp at 0, got %v", v)
	}

	// Increase clamps at the hardware limit.
	if err := dev.SetOutputVoltage(72); err != nil {
		t.Fatalf("SetOutputVoltage failed: %v", err)
	}
	if err := dev.Jog(JogIncrease); err != nil {
		t.Fatalf("Jog failed: %v", err)
	}
	if v, _ := dev.OutputVoltage(); v != 75 {
		t.Errorf("expected clamp at 75, got %v", v)
	}
}

func TestSimDeviceRememberedTargetAfterReenable(t *testing.T) {
	sim := NewSimulator("29500001")
	dev := sim.Device("29500001")

	mustConnect(t, dev)
	if err := dev.SetOutputVoltage(40); err != nil {
		t.Fatalf("SetOutputVoltage failed: %v", err)
	}

	// Disable drops the output but keeps the target.
	if err := dev.Disable(); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	if v, _ := dev.OutputVoltage(); v != 0 {
		t.Errorf("expected 0 V while disabled, got %v", v)
	}
	if got := dev.Target(); got != 40 {
		t.Errorf("expected remembered target 40, got %v", got)
	}

	// After re-enable the first jog moves relative to the remembered
	// target, not the near-zero output.
	if err := dev.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if err := dev.Jog(JogIncrease); err != nil {
		t.Fatalf("Jog failed: %v", err)
	}
	if v, _ := dev.OutputVoltage(); v != 41 {
		t.Errorf("expected 41 V after jog, got %v", v)
	}
}

func TestSimDeviceSetZeroClearsTarget(t *testing.T) {
	sim := NewSimulator("29500001")
	dev := sim.Device("29500001")

	mustConnect(t, dev)
	if err := dev.SetOutputVoltage(25); err != nil {
		t.Fatalf("SetOutputVoltage failed: %v", err)
	}
	if err := dev.SetZero(); err != nil {
		t.Fatalf("SetZero failed: %v", err)
	}
	if v, _ := dev.OutputVoltage(); v != 0 {
		t.Errorf("expected 0 V after SetZero, got %v", v)
	}
	if got := dev.Target(); got != 0 {
		t.Errorf("expected cleared target, got %v", got)
	}
}

func TestSimDeviceWaitForSettings(t *testing.T) {
	sim := NewSimulator("29500001")
	dev := sim.Device("29500001")
	dev.SetSettingsDelay(20 * time.Millisecond)

	mustConnect(t, dev)
	if dev.IsSettingsInitialized() {
		t.Error("expected settings uninitialized immediately after Connect")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := dev.WaitForSettingsInitialized(ctx); err != nil {
		t.Fatalf("WaitForSettingsInitialized failed: %v", err)
	}
	if !dev.IsSettingsInitialized() {
		t.Error("expected settings initialized after wait")
	}
}

func TestSimDeviceWaitForSettingsTimeout(t *testing.T) {
	sim := NewSimulator("29500001")
	dev := sim.Device("29500001")
	dev.SetSettingsDelay(time.Hour)

	mustConnect(t, dev)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := dev.WaitForSettingsInitialized(ctx); !errors.Is(err, ErrSettingsNotInitialized) {
		t.Errorf("expected ErrSettingsNotInitialized, got %v", err)
	}
}

func TestSimDeviceCommandErrorInjection(t *testing.T) {
	sim := NewSimulator("29500001")
	dev := sim.Device("29500001")

	mustConnect(t, dev)
	if err := dev.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}

	injected := errors.New("usb write failed")
	dev.SetCommandError(injected)
	if err := dev.SetOutputVoltage(10); !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}
	if err := dev.Jog(JogIncrease); !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}

	dev.SetCommandError(nil)
	if err := dev.SetOutputVoltage(10); err != nil {
		t.Errorf("expected success after clearing, got %v", err)
	}
}

func mustConnect(t *testing.T, dev *SimDevice) {
	t.Helper()
	if err := dev.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := dev.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
}
