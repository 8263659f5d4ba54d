// Package mqtt provides MQTT client connectivity for piezocore.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// piezocore uses MQTT as an outbound telemetry bus. The poll loop publishes
// per-axis state snapshots and the client publishes a retained service
// status message. piezocore never subscribes; commands arrive over the
// HTTP API.
//
//	piezocore → MQTT Broker → External consumers (dashboards, loggers)
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Publish an axis state snapshot
//	topic := mqtt.Topics{}.AxisState("x")
//	client.Publish(topic, payload, 1, false)
package mqtt
