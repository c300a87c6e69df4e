package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/papertrader/internal/di"
)

// SystemHealthResponse is the payload of GET /api/system/health
type SystemHealthResponse struct {
	Status           string            `json:"status"`
	Uptime           string            `json:"uptime"`
	CPUPercent       float64           `json:"cpu_percent"`
	MemoryPercent    float64           `json:"memory_percent"`
	DiskPercent      float64           `json:"disk_percent"`
	DataDirMB        float64           `json:"data_dir_mb"`
	Database         string            `json:"database"`
	EventSubscribers int               `json:"event_subscribers"`
	Strategies       int               `json:"strategies"`
	Backups          bool              `json:"backups_enabled"`
	Checks           map[string]string `json:"checks"`
}

// SystemHandlers reports host and engine health
type SystemHandlers struct {
	container *di.Container
	started   time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates the system handlers
func NewSystemHandlers(container *di.Container, started time.Time, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		container: container,
		started:   started,
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleSystemHealth handles GET /api/system/health. The status degrades
// when the journal database fails its health check.
func (h *SystemHandlers) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cpuPercent, memPercent := h.getSystemStats()
	dataDir := h.container.Config.DataDir

	resp := SystemHealthResponse{
		Status:           "healthy",
		Uptime:           time.Since(h.started).Round(time.Second).String(),
		CPUPercent:       cpuPercent,
		MemoryPercent:    memPercent,
		DataDirMB:        h.getDirSize(dataDir),
		Database:         "ok",
		EventSubscribers: h.container.EventManager.SubscriberCount(),
		Strategies:       len(h.container.Coordinator.Entries()),
		Backups:          h.container.BackupService != nil,
		Checks:           map[string]string{},
	}

	if usage, err := disk.UsageWithContext(ctx, dataDir); err == nil {
		resp.DiskPercent = usage.UsedPercent
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	if err := h.container.JournalDB.HealthCheck(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
	}

	for _, meta := range h.container.Strategies.Metas() {
		if _, err := h.container.LedgerService.Get(meta.ID); err != nil {
			resp.Status = "degraded"
			resp.Checks[meta.ID] = err.Error()
		} else {
			resp.Checks[meta.ID] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// getSystemStats returns CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// Short sample window keeps the endpoint responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}
