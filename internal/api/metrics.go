package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the payload served by GET /api/v1/metrics.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	InfluxDB      InfluxMetrics    `json:"influxdb"`
	Directory     DirectoryMetrics `json:"directory"`
	Database      DatabaseMetrics  `json:"database"`
}

// RuntimeMetrics reports process-level Go runtime figures.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// MQTTMetrics reports the state of the event publisher, when one is wired.
type MQTTMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// InfluxMetrics reports the state of the metrics sink, when one is wired.
type InfluxMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// DirectoryMetrics summarises the cached hub registry snapshot.
type DirectoryMetrics struct {
	Entities    int            `json:"entities"`
	Devices     int            `json:"devices"`
	Areas       int            `json:"areas"`
	ByDomain    map[string]int `json:"by_domain"`
	LastRefresh string         `json:"last_refresh,omitempty"`
}

// DatabaseMetrics mirrors sql.DBStats for the exposure store.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics assembles a point-in-time snapshot of process and
// infrastructure health. Optional subsystems report Enabled: false when
// they were never configured, so dashboards can tell "off" from "down".
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime:       runtimeMetrics(),
		MQTT:          s.mqttMetrics(),
		InfluxDB:      s.influxMetrics(),
		Directory:     s.directoryMetrics(),
		Database:      s.databaseMetrics(),
	})
}

func runtimeMetrics() RuntimeMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return RuntimeMetrics{
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: mib(ms.Alloc),
		MemoryTotalMB: mib(ms.TotalAlloc),
		NumGC:         ms.NumGC,
	}
}

// mib converts bytes to mebibytes for human-scaled dashboard axes.
func mib(b uint64) float64 {
	return float64(b) / (1 << 20)
}

func (s *Server) mqttMetrics() MQTTMetrics {
	if s.mqtt == nil {
		return MQTTMetrics{}
	}
	return MQTTMetrics{Enabled: true, Connected: s.mqtt.IsConnected()}
}

func (s *Server) influxMetrics() InfluxMetrics {
	if s.influx == nil {
		return InfluxMetrics{}
	}
	return InfluxMetrics{Enabled: true, Connected: s.influx.IsConnected()}
}

func (s *Server) directoryMetrics() DirectoryMetrics {
	byDomain := make(map[string]int)
	for _, rec := range s.directory.Entities() {
		byDomain[rec.Domain]++
	}

	dm := DirectoryMetrics{
		Entities: s.directory.Count(),
		Devices:  len(s.directory.Devices()),
		Areas:    len(s.directory.Areas()),
		ByDomain: byDomain,
	}
	if last := s.directory.LastRefresh(); !last.IsZero() {
		dm.LastRefresh = last.UTC().Format(time.RFC3339)
	}
	return dm
}

func (s *Server) databaseMetrics() DatabaseMetrics {
	if s.db == nil {
		return DatabaseMetrics{}
	}
	stats := s.db.Stats()
	return DatabaseMetrics{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
	}
}
