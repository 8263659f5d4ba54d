package axis

import (
	"errors"
	"testing"
)

func TestParseSerial(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: "29500241", wantErr: false},
		{name: "too short", input: "2950024", wantErr: true},
		{name: "too long", input: "295002411", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "letters", input: "2950024a", wantErr: true},
		{name: "whitespace", input: "2950024 ", wantErr: true},
		{name: "negative", input: "-9500241", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serial, err := ParseSerial(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSerial) {
					t.Errorf("expected ErrInvalidSerial, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if serial.String() != tt.input {
				t.Errorf("expected %q, got %q", tt.input, serial)
			}
		})
	}
}
