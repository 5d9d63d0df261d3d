package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemInfo is the /system response.
type SystemInfo struct {
	Timestamp     string        `json:"timestamp"`
	Version       string        `json:"version"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Runtime       RuntimeInfo   `json:"runtime"`
	WebSocket     WSInfo        `json:"websocket"`
	MQTT          *MQTTInfo     `json:"mqtt,omitempty"`
	Database      *DatabaseInfo `json:"database,omitempty"`
}

// RuntimeInfo contains Go runtime statistics.
type RuntimeInfo struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSInfo contains WebSocket hub statistics.
type WSInfo struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTInfo contains broker connection state.
type MQTTInfo struct {
	Connected bool `json:"connected"`
}

// DatabaseInfo contains database connection pool statistics.
type DatabaseInfo struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	info := SystemInfo{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeInfo{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / 1024 / 1024,
			NumGC:         mem.NumGC,
		},
		WebSocket: WSInfo{ConnectedClients: s.hub.ClientCount()},
	}

	if s.mqtt != nil {
		info.MQTT = &MQTTInfo{Connected: s.mqtt.IsConnected()}
	}
	if s.db != nil {
		stats := s.db.Stats()
		info.Database = &DatabaseInfo{
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Idle:            stats.Idle,
			WaitCount:       stats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, info)
}
