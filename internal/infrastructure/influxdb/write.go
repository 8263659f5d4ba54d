package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteAxisSample writes a single axis telemetry sample to InfluxDB.
//
// This is the primary method for recording axis state over time. The poll
// loop calls it once per tick for each connected axis. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - axisID: Logical axis identifier ("x" or "y")
//   - serial: Serial number of the device driving the axis
//   - voltage: Output voltage in volts
//   - jogStep: Configured jog step size in volts
//
// Example:
//
//	client.WriteAxisSample("x", "29500241", 37.5, 1.0)
func (c *Client) WriteAxisSample(axisID string, serial string, voltage float64, jogStep float64) {
	c.WritePoint(
		"axis_metrics",
		map[string]string{
			"axis":   axisID,
			"serial": serial,
		},
		map[string]interface{}{
			"voltage":  voltage,
			"jog_step": jogStep,
		},
	)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "piezocore-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
