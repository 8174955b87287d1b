package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the /system response: process and dashboard statistics
// for operators without a Prometheus server.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	Dashboard     DashboardMetrics `json:"dashboard"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// DashboardMetrics summarises the published state.
type DashboardMetrics struct {
	Stream         string `json:"stream"`
	Sequence       uint64 `json:"sequence"`
	LayoutRevision uint64 `json:"layout_revision"`
	ActivePins     int    `json:"active_pins"`
	FrameLive      bool   `json:"frame_live"`
}

func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	st := s.dash.Snapshot()
	writeJSON(w, http.StatusOK, SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Dashboard: DashboardMetrics{
			Stream:         st.Stream.String(),
			Sequence:       st.Sequence,
			LayoutRevision: st.Revision,
			ActivePins:     st.Active.Len(),
			FrameLive:      s.dash.Frame() != nil,
		},
	})
}
