package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
service:
  id: "bench-rig"
axes:
  serial_x: "29500241"
  serial_y: "29500242"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.ID != "bench-rig" {
		t.Errorf("Service.ID = %q, want %q", cfg.Service.ID, "bench-rig")
	}

	if cfg.Axes.SerialX != "29500241" {
		t.Errorf("Axes.SerialX = %q, want %q", cfg.Axes.SerialX, "29500241")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
service:
  id: ""
database:
  path: "/tmp/test.db"
api:
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty service.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	// valid returns a configuration that passes validation; tests mutate
	// one field at a time.
	valid := func() *Config {
		return &Config{
			Service: ServiceConfig{ID: "piezocore-001"},
			Axes: AxesConfig{
				SerialX:      "29500241",
				SerialY:      "29500242",
				PollInterval: 1000,
				Driver:       "sim",
			},
			Database: DatabaseConfig{Path: "/data/piezocore.db"},
			MQTT:     MQTTConfig{QoS: 1},
			API:      APIConfig{Port: 8080},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: false},
		{name: "missing service ID", mutate: func(c *Config) { c.Service.ID = "" }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid port low", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "invalid port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "short serial", mutate: func(c *Config) { c.Axes.SerialX = "2950024" }, wantErr: true},
		{name: "non-numeric serial", mutate: func(c *Config) { c.Axes.SerialY = "2950024a" }, wantErr: true},
		{name: "duplicate serials", mutate: func(c *Config) { c.Axes.SerialY = c.Axes.SerialX }, wantErr: true},
		{name: "empty serials allowed", mutate: func(c *Config) { c.Axes.SerialX = ""; c.Axes.SerialY = "" }, wantErr: false},
		{name: "zero poll interval", mutate: func(c *Config) { c.Axes.PollInterval = 0 }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Axes.Driver = "vendor" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestConfig_GetAxesDurations(t *testing.T) {
	cfg := &Config{
		Axes: AxesConfig{
			PollInterval:        1000,
			DevicePollInterval:  250,
			SettingsInitTimeout: 10,
		},
	}

	if got := cfg.GetPollInterval().Milliseconds(); got != 1000 {
		t.Errorf("GetPollInterval() = %v ms, want 1000", got)
	}

	if got := cfg.GetDevicePollInterval().Milliseconds(); got != 250 {
		t.Errorf("GetDevicePollInterval() = %v ms, want 250", got)
	}

	if got := cfg.GetSettingsInitTimeout().Seconds(); got != 10 {
		t.Errorf("GetSettingsInitTimeout() = %v s, want 10", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("PIEZOCORE_AXES_SERIAL_X", "29500241")
	t.Setenv("PIEZOCORE_AXES_SERIAL_Y", "29500242")
	t.Setenv("PIEZOCORE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("PIEZOCORE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("PIEZOCORE_MQTT_USERNAME", "testuser")
	t.Setenv("PIEZOCORE_MQTT_PASSWORD", "testpass")
	t.Setenv("PIEZOCORE_API_HOST", "192.168.1.1")
	t.Setenv("PIEZOCORE_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Axes.SerialX != "29500241" {
		t.Errorf("Axes.SerialX = %q, want %q", cfg.Axes.SerialX, "29500241")
	}

	if cfg.Axes.SerialY != "29500242" {
		t.Errorf("Axes.SerialY = %q, want %q", cfg.Axes.SerialY, "29500242")
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Service.ID == "" {
		t.Error("defaultConfig should have non-empty Service.ID")
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}

	if cfg.Axes.PollInterval != 1000 {
		t.Errorf("defaultConfig Axes.PollInterval = %d, want 1000", cfg.Axes.PollInterval)
	}
}
