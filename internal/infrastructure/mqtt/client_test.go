package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/beamlab/piezo-core/internal/infrastructure/config"
)

func testMQTTConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "piezocore-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}
}

func TestBuildClientOptionsBrokerURL(t *testing.T) {
	cfg := testMQTTConfig()

	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 {
		t.Fatalf("expected 1 broker, got %d", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "tcp://localhost:1883" {
		t.Errorf("broker URL = %q, want tcp://localhost:1883", got)
	}
	if opts.ClientID != "piezocore-test" {
		t.Errorf("client ID = %q", opts.ClientID)
	}
	if opts.Username != "" {
		t.Errorf("expected no username without auth config, got %q", opts.Username)
	}
}

func TestBuildClientOptionsTLS(t *testing.T) {
	cfg := testMQTTConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)
	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("scheme = %q, want ssl", got)
	}
	if opts.TLSConfig == nil {
		t.Fatal("expected TLS config to be set")
	}
	if opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Errorf("TLS min version = %d, want %d", opts.TLSConfig.MinVersion, tlsMinVersion)
	}
}

func TestBuildClientOptionsAuth(t *testing.T) {
	cfg := testMQTTConfig()
	cfg.Auth.Username = "piezo"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)
	if opts.Username != "piezo" || opts.Password != "secret" {
		t.Errorf("credentials not applied: username=%q", opts.Username)
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := testMQTTConfig()
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	if opts.WillTopic != "piezocore/system/status" {
		t.Errorf("will topic = %q", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("expected retained will message")
	}

	var msg struct {
		Status   string `json:"status"`
		ClientID string `json:"client_id"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
		t.Fatalf("will payload is not valid JSON: %v", err)
	}
	if msg.Status != "offline" || msg.Reason != "unexpected_disconnect" {
		t.Errorf("will payload = %+v", msg)
	}
	if msg.ClientID != "piezocore-test" {
		t.Errorf("client_id = %q", msg.ClientID)
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("piezocore-test")
	if !strings.Contains(online, `"status":"online"`) {
		t.Errorf("online payload missing status: %s", online)
	}

	offline := buildOfflinePayload("piezocore-test")
	if !strings.Contains(offline, `"status":"offline"`) {
		t.Errorf("offline payload missing status: %s", offline)
	}
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload missing reason: %s", offline)
	}
}

func TestPublishValidation(t *testing.T) {
	// A client that never connected. Validation errors must surface before
	// any connection check or network activity.
	c := &Client{cfg: testMQTTConfig()}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("{}"), 1, ErrInvalidTopic},
		{"invalid qos", "piezocore/state/axis/x", []byte("{}"), 3, ErrInvalidQoS},
		{"oversized payload", "piezocore/state/axis/x", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "piezocore/state/axis/x", []byte("{}"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishEventNotConnected(t *testing.T) {
	c := &Client{cfg: testMQTTConfig()}
	err := c.PublishEvent("piezocore/event/axis/x", []byte("{}"))
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishEvent() error = %v, want %v", err, ErrNotConnected)
	}
}

func TestHealthCheckNotConnected(t *testing.T) {
	c := &Client{cfg: testMQTTConfig()}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}

func TestCloseWithoutConnect(t *testing.T) {
	c := &Client{cfg: testMQTTConfig()}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v", err)
	}
}
