package axis

import (
	"context"
	"errors"
	"testing"

	"github.com/beamlab/piezo-core/internal/driver"
)

func TestRegistryEnumerateSkipsInvalidSerials(t *testing.T) {
	sim := driver.NewSimulator("29500241", "29500242", "not-a-serial")
	reg := NewRegistry(sim)

	serials, err := reg.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if len(serials) != 2 {
		t.Fatalf("expected 2 valid serials, got %d: %v", len(serials), serials)
	}
	if serials[0] != "29500241" || serials[1] != "29500242" {
		t.Errorf("unexpected serials: %v", serials)
	}
}

func TestRegistryEnumeratePropagatesBuildError(t *testing.T) {
	sim := driver.NewSimulator("29500241")
	injected := errors.New("usb enumeration failed")
	sim.SetBuildError(injected)
	reg := NewRegistry(sim)

	if _, err := reg.Enumerate(context.Background()); !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}
}

func TestRegistryRequireMinimumCount(t *testing.T) {
	tests := []struct {
		name    string
		serials []string
		wantErr bool
	}{
		{name: "none", serials: nil, wantErr: true},
		{name: "one", serials: []string{"29500241"}, wantErr: true},
		{name: "two", serials: []string{"29500241", "29500242"}, wantErr: false},
		{name: "three", serials: []string{"29500241", "29500242", "29500243"}, wantErr: false},
		// The count covers raw enumeration entries, malformed serials included.
		{name: "one valid one malformed", serials: []string{"29500241", "not-a-serial"}, wantErr: false},
		{name: "one malformed only", serials: []string{"not-a-serial"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(driver.NewSimulator(tt.serials...))
			err := reg.RequireMinimumCount(context.Background())
			if !tt.wantErr {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var countErr *DeviceCountError
			if !errors.As(err, &countErr) {
				t.Fatalf("expected DeviceCountError, got %v", err)
			}
			if countErr.Count != len(tt.serials) {
				t.Errorf("expected count %d, got %d", len(tt.serials), countErr.Count)
			}
			if countErr.Required != 2 {
				t.Errorf("expected required 2, got %d", countErr.Required)
			}
		})
	}
}

func TestRegistryValidateMismatch(t *testing.T) {
	sim := driver.NewSimulator("29500241", "29500242")
	reg := NewRegistry(sim)

	if err := reg.Validate(context.Background(), "29500241"); err != nil {
		t.Fatalf("expected valid serial to pass: %v", err)
	}

	err := reg.Validate(context.Background(), "29599999")
	var mismatch *MismatchSerialError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchSerialError, got %v", err)
	}
	if mismatch.Attempted != "29599999" {
		t.Errorf("expected attempted serial in error, got %s", mismatch.Attempted)
	}
	if len(mismatch.Available) != 2 {
		t.Errorf("expected available list of 2, got %v", mismatch.Available)
	}
}

func TestRegistryOpen(t *testing.T) {
	sim := driver.NewSimulator("29500241", "29500242")
	reg := NewRegistry(sim)

	dev, err := reg.Open(context.Background(), "29500241")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if dev == nil {
		t.Fatal("expected device handle")
	}

	var mismatch *MismatchSerialError
	if _, err := reg.Open(context.Background(), "29599999"); !errors.As(err, &mismatch) {
		t.Errorf("expected MismatchSerialError, got %v", err)
	}
}
