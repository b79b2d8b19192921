package handlers

import (
	"log"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// SystemHandler handles health and process stats requests
type SystemHandler struct {
	version   string
	providers []string
	startedAt time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(version string, providers []string) *SystemHandler {
	return &SystemHandler{
		version:   version,
		providers: providers,
		startedAt: time.Now(),
	}
}

// HealthResponse is the health endpoint payload
type HealthResponse struct {
	Status    string   `json:"status"`
	Version   string   `json:"version"`
	Providers []string `json:"providers"`
	UptimeSec int64    `json:"uptime_seconds"`
}

// ProcessStats is the stats endpoint payload
type ProcessStats struct {
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	RSSMB         float64 `json:"rss_mb"`
	CPUPercent    float64 `json:"cpu_percent"`
	SystemMemUsed float64 `json:"system_mem_used_percent"`
	UptimeSec     int64   `json:"uptime_seconds"`
}

// Health handles GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Providers: h.providers,
		UptimeSec: int64(time.Since(h.startedAt).Seconds()),
	})
}

// Stats handles GET /api/stats
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := ProcessStats{
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(ms.HeapAlloc) / (1 << 20),
		UptimeSec:   int64(time.Since(h.startedAt).Seconds()),
	}

	ctx := r.Context()

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.SystemMemUsed = vm.UsedPercent
	} else {
		log.Printf("[SystemHandler] failed to read system memory: %v", err)
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
			stats.CPUPercent = pct
		}
		if mi, err := proc.MemoryInfoWithContext(ctx); err == nil {
			stats.RSSMB = float64(mi.RSS) / (1 << 20)
		}
	}

	RenderJSON(w, http.StatusOK, stats)
}
