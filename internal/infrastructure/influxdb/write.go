package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteCommandMetric records the outcome and duration of an API command.
// Points batch in the background, so the call returns immediately and is
// a no-op whenever the sink is disabled or down.
func (c *Client) WriteCommandMetric(command string, ok bool, duration time.Duration) {
	c.WritePoint(
		"command",
		map[string]string{
			"command": command,
			"status":  statusTag(ok),
		},
		map[string]any{
			"duration_ms": millis(duration),
		},
	)
}

// WriteArtifactMetric records the outcome of a single assistant's artifact
// generation during a write run.
func (c *Client) WriteArtifactMetric(assistant string, written bool, entities int, warnings int) {
	status := "written"
	if !written {
		status = "failed"
	}

	c.WritePoint(
		"artifact_write",
		map[string]string{
			"assistant": assistant,
			"status":    status,
		},
		map[string]any{
			"entities": entities,
			"warnings": warnings,
		},
	)
}

// WriteSyncMetric records the outcome of a HomeKit bridge push or pull.
// A sync counts as ok only when the bridge rejected nothing.
func (c *Client) WriteSyncMetric(direction string, added, removed, failed int, duration time.Duration) {
	c.WritePoint(
		"bridge_sync",
		map[string]string{
			"direction": direction,
			"status":    statusTag(failed == 0),
		},
		map[string]any{
			"added":       added,
			"removed":     removed,
			"failed":      failed,
			"duration_ms": millis(duration),
		},
	)
}

// WritePoint records a measurement stamped with the current time. Keep
// tags low-cardinality; unbounded values belong in fields.
//
// Example:
//
//	client.WritePoint("registry_refresh",
//	    map[string]string{"source": "startup"},
//	    map[string]any{"entities": 412, "duration_ms": 88.0})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime records a measurement with an explicit timestamp,
// for data observed earlier than it is written.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}

// statusTag converts a success flag to a low-cardinality tag value.
func statusTag(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
