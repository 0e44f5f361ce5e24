// Package influxdb ships operational metrics to an InfluxDB bucket.
//
// Three measurements cover the service: command (API mutation outcomes
// and latency), artifact_write (per-assistant generation runs), and
// bridge_sync (HomeKit push and pull results). WritePoint remains open
// for anything else worth charting.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteCommandMetric("write_artifacts", true, elapsed)
//
// Writes never block a request: points batch in the background and batch
// failures surface through the SetOnError callback rather than the write
// call. Connect and HealthCheck return their errors directly. All methods
// are safe for concurrent use, including on a zero-value Client, which
// behaves as permanently disconnected.
//
// The sink is optional. With influxdb.enabled false the service holds no
// client at all and every write site checks for nil first. Mutations are
// rare events, so the configured batch_size is an upper bound in practice
// and flush_interval decides how stale the bucket can run.
package influxdb
