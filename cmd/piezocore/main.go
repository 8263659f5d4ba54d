// piezocore - dual-axis piezo beam steering service
//
// This is the main entry point for the piezocore application. It drives a
// pair of piezo actuator controllers as a steering mirror's X and Y axes,
// exposing an HTTP API and WebSocket state stream to operator UIs and
// publishing telemetry to MQTT and InfluxDB.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/beamlab/piezo-core/migrations"

	"github.com/beamlab/piezo-core/internal/api"
	"github.com/beamlab/piezo-core/internal/axis"
	"github.com/beamlab/piezo-core/internal/driver"
	"github.com/beamlab/piezo-core/internal/infrastructure/config"
	"github.com/beamlab/piezo-core/internal/infrastructure/database"
	"github.com/beamlab/piezo-core/internal/infrastructure/influxdb"
	"github.com/beamlab/piezo-core/internal/infrastructure/logging"
	"github.com/beamlab/piezo-core/internal/infrastructure/mqtt"
	"github.com/beamlab/piezo-core/internal/steering"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting piezocore",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Device manager. Only the simulator backend builds on every platform;
	// the Kinesis backend needs the vendor SDK and is selected at build time.
	mgr, err := newDeviceManager(cfg)
	if err != nil {
		return fmt.Errorf("creating device manager: %w", err)
	}

	registry := axis.NewRegistry(mgr)
	registry.SetLogger(log)

	serials, err := registry.Enumerate(ctx)
	if err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	log.Info("devices enumerated", "serials", serials)

	// Coordinator with persisted assignment and command audit. With MQTT
	// enabled each audited command is also published to its axis event topic.
	var audit steering.Recorder = steering.NewAuditRepository(db)
	if mqttClient != nil {
		audit = &mqttAuditPublisher{next: audit, client: mqttClient, logger: log}
	}
	coordinator := steering.NewCoordinator(registry, steering.Options{
		Controller: axis.Options{
			DevicePollInterval:  cfg.GetDevicePollInterval(),
			SettingsInitTimeout: cfg.GetSettingsInitTimeout(),
			Logger:              log,
		},
		Assignments: steering.NewAssignmentRepository(db),
		Audit:       audit,
		Logger:      log,
	})

	serialX, err := axis.ParseSerial(cfg.Axes.SerialX)
	if err != nil {
		return fmt.Errorf("axes.serial_x: %w", err)
	}
	serialY, err := axis.ParseSerial(cfg.Axes.SerialY)
	if err != nil {
		return fmt.Errorf("axes.serial_y: %w", err)
	}

	// A failed axis start leaves the service up: the API stays available
	// so an operator can fix the hardware and reassign the axes.
	if err := coordinator.Start(ctx, serialX, serialY); err != nil {
		log.Error("starting axes failed, awaiting reassignment", "error", err)
	} else {
		log.Info("axes started", "serial_x", serialX, "serial_y", serialY)
	}
	defer func() {
		log.Info("stopping axes")
		if stopErr := coordinator.Stop(); stopErr != nil {
			log.Error("error stopping axes", "error", stopErr)
		}
	}()

	// WebSocket hub is shared between the API server and the poll loop
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Coordinator: coordinator,
		Audit:       steering.NewAuditRepository(db),
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Poll loop fans the axis read model out to the hub, MQTT and InfluxDB
	publishers := []steering.StatePublisher{hub}
	if mqttClient != nil {
		publishers = append(publishers, &mqttStatePublisher{client: mqttClient, logger: log})
	}
	pollOpts := steering.PollOptions{
		Interval:   cfg.GetPollInterval(),
		Publishers: publishers,
		Logger:     log,
	}
	if influxClient != nil {
		pollOpts.Sampler = influxClient
	}
	poll := steering.NewPollLoop(coordinator, pollOpts)
	poll.Start(ctx)
	defer poll.Stop()
	log.Info("poll loop started", "interval", cfg.GetPollInterval())

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Poll loop
	// 2. API server
	// 3. Axis controllers
	// 4. InfluxDB (if enabled)
	// 5. MQTT (if enabled)
	// 6. Database

	log.Info("piezocore stopped")
	return nil
}

// newDeviceManager selects the device backend from config.
func newDeviceManager(cfg *config.Config) (driver.Manager, error) {
	switch cfg.Axes.Driver {
	case "sim":
		return driver.NewSimulator(cfg.Axes.SerialX, cfg.Axes.SerialY), nil
	default:
		return nil, fmt.Errorf("unknown axes driver %q", cfg.Axes.Driver)
	}
}

// mqttStatePublisher publishes the axis read model to the retained per-axis
// state topics.
type mqttStatePublisher struct {
	client *mqtt.Client
	logger *logging.Logger
}

func (p *mqttStatePublisher) PublishAxisState(status steering.AxisStatus) {
	payload, err := json.Marshal(status)
	if err != nil {
		p.logger.Error("marshalling axis state", "axis", status.Axis, "error", err)
		return
	}
	topic := mqtt.Topics{}.AxisState(string(status.Axis))
	if err := p.client.PublishRetained(topic, payload); err != nil {
		p.logger.Warn("publishing axis state", "topic", topic, "error", err)
	}
}

// mqttAuditPublisher mirrors every audit entry to the per-axis event topic
// before handing it to the persistent recorder.
type mqttAuditPublisher struct {
	next   steering.Recorder
	client *mqtt.Client
	logger *logging.Logger
}

func (p *mqttAuditPublisher) Record(ctx context.Context, entry steering.AuditEntry) error {
	if payload, err := json.Marshal(entry); err != nil {
		p.logger.Error("marshalling audit entry", "axis", entry.Axis, "error", err)
	} else {
		topic := mqtt.Topics{}.AxisEvent(entry.Axis)
		if err := p.client.PublishEvent(topic, payload); err != nil {
			p.logger.Warn("publishing axis event", "topic", topic, "error", err)
		}
	}
	return p.next.Record(ctx, entry)
}

// getConfigPath returns the configuration file path.
// Uses PIEZOCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PIEZOCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
