package api

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

// healthCheckTimeout bounds each dependency probe in /health.
const healthCheckTimeout = 2 * time.Second

// SystemStatus is the /status response.
type SystemStatus struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeStatus   `json:"runtime"`
	Sensors       SensorStatus    `json:"sensors"`
	WebSocket     WSStatus        `json:"websocket"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Database      *DatabaseStatus `json:"database,omitempty"`
}

// RuntimeStatus contains Go runtime statistics.
type RuntimeStatus struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// SensorStatus summarises the registry.
type SensorStatus struct {
	Total    int            `json:"total"`
	NextID   int            `json:"next_id"`
	ByStatus map[string]int `json:"by_status"`
	ByType   map[string]int `json:"by_type"`
}

// WSStatus contains WebSocket hub statistics.
type WSStatus struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTStatus reports the event publisher.
type MQTTStatus struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// DatabaseStatus contains connection pool statistics.
type DatabaseStatus struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// HealthResponse is the /health response.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// handleHealth reports ok, or 503 degraded when an enabled dependency fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	healthy := true

	probe := func(name string, check func(context.Context) error) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			return
		}
		checks[name] = "ok"
	}

	if s.db != nil {
		probe("database", s.db.HealthCheck)
	}
	if s.publisher != nil {
		probe("mqtt", s.publisher.HealthCheck)
	}

	resp := HealthResponse{Status: "ok", Version: s.version}
	if len(checks) > 0 {
		resp.Checks = checks
	}
	if !healthy {
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStatus returns a snapshot of the running service.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeStatus{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Sensors: SensorStatus{
			Total:    s.registry.Count(),
			NextID:   s.registry.NextID(),
			ByStatus: s.registry.CountByStatus(),
			ByType:   s.registry.CountByType(),
		},
		WebSocket: WSStatus{
			ConnectedClients: s.hub.ClientCount(),
		},
	}

	if s.publisher != nil {
		status.MQTT = MQTTStatus{
			Enabled:   true,
			Connected: s.publisher.IsConnected(),
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		status.Database = &DatabaseStatus{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, status)
}
