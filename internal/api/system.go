package api

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Timestamp      string         `json:"timestamp"`
	Version        string         `json:"version"`
	Mode           string         `json:"mode"`
	UptimeSeconds  int64          `json:"uptime_seconds"`
	ActiveStrategy string         `json:"active_strategy"`
	StrategyCount  int            `json:"strategy_count"`
	CycleRunning   bool           `json:"cycle_running"`
	Runtime        RuntimeMetrics `json:"runtime"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// handleHealth runs every registered component check. Any failure turns
// the response into 503 "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: s.version}

	if len(s.health) > 0 {
		names := make([]string, 0, len(s.health))
		for name := range s.health {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Components = make(map[string]string, len(names))
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := s.health[name].HealthCheck(ctx)
			cancel()
			if err != nil {
				resp.Status = "degraded"
				resp.Components[name] = err.Error()
				continue
			}
			resp.Components[name] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	writeJSON(w, http.StatusOK, StatusResponse{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Version:        s.version,
		Mode:           s.mode,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		ActiveStrategy: s.strategies.ActiveName(),
		StrategyCount:  len(s.strategies.List()),
		CycleRunning:   s.cycles.Busy(),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
	})
}
