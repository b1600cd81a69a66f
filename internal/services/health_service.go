package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"loandash/internal/config"
	"loandash/pkg/contracts"
	"loandash/pkg/contracts/domain"
)

// DatasetStatus is the part of DatasetService the health checks read.
type DatasetStatus interface {
	Loaded() bool
	Source() string
	Dataset() (domain.DatasetInfo, error)
}

// ClientCounter reports connected WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   contracts.VersionInfo
	paths     *config.Paths
	dataset   DatasetStatus
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// Ready reports whether every dependency is ready.
func (h HealthStatus) Ready() bool { return h.Status == StatusReady }

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// Health states
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// NewHealthService creates a new health service. hub may be nil when the
// WebSocket feed is disabled.
func NewHealthService(version contracts.VersionInfo, paths *config.Paths, dataset DatasetStatus, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version.Version),
		slog.String("build_time", version.BuildTime),
		slog.String("git_commit", version.GitCommit))

	return &HealthService{
		version:   version,
		paths:     paths,
		dataset:   dataset,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   hs.version.Version,
	}
}

// ReadinessCheck returns readiness status. The service is ready once a
// dataset has been loaded.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version.Version,
		Services: map[string]ServiceHealth{
			"dataset":   hs.checkDatasetHealth(),
			"websocket": hs.checkWebSocketHealth(),
			"exports":   hs.checkExportsHealth(),
		},
	}

	for name, service := range status.Services {
		if service.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "ReadinessCheck: dependency not ready",
				slog.String("service", name),
				slog.String("message", service.Message))
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   hs.version.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":      hs.version.Version,
		"build_time":   hs.version.BuildTime,
		"git_commit":   hs.version.GitCommit,
		"go_version":   hs.version.GoVersion,
		"os":           hs.version.OS,
		"arch":         hs.version.Architecture,
		"api_version":  hs.version.APIVersion,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDatasetHealth() ServiceHealth {
	if hs.dataset == nil || !hs.dataset.Loaded() {
		source := ""
		if hs.dataset != nil {
			source = hs.dataset.Source()
		}
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: fmt.Sprintf("dataset not loaded from %s", source),
		}
	}

	info, err := hs.dataset.Dataset()
	if err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d rows from %s", info.Rows, info.Source),
		Uptime:  time.Since(info.LoadedAt).Round(time.Second).String(),
	}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: StatusReady, Message: "WebSocket feed disabled"}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount()),
		Uptime:  time.Since(hs.startTime).Round(time.Second).String(),
	}
}

func (hs *HealthService) checkExportsHealth() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: StatusReady, Message: "exports are streamed"}
	}
	info, err := os.Stat(hs.paths.ExportsDir)
	if err != nil || !info.IsDir() {
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: fmt.Sprintf("exports directory not found: %s", hs.paths.ExportsDir),
		}
	}
	return ServiceHealth{Status: StatusReady, Message: "exports directory is accessible"}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
	}
}
