package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"instaetl/internal/config"
	"instaetl/internal/files"
	"instaetl/internal/infrastructure"
)

// HealthStatus represents the readiness of the environment for a run
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents one checked dependency
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health statuses
const (
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusSkipped  = "skipped"
)

// HealthService checks that directories, input and warehouse are usable
type HealthService struct {
	version string
	cfg     *config.Config
	openDB  DBOpener
	logger  *slog.Logger
}

// NewHealthService creates a new health service
func NewHealthService(version string, cfg *config.Config, openDB DBOpener, logger *slog.Logger) *HealthService {
	return &HealthService{
		version: version,
		cfg:     cfg,
		openDB:  openDB,
		logger:  infrastructure.WithComponent(logger, "health"),
	}
}

// ReadinessCheck checks every dependency of a run. The overall status is
// ready only when no check reports not_ready.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		},
		Services: map[string]ServiceHealth{
			"staging_dir": checkWritableDir(hs.cfg.Paths.StagingDir),
			"output_dir":  checkWritableDir(hs.cfg.Paths.OutputDir),
			"logs_dir":    checkWritableDir(hs.cfg.Paths.LogsDir),
			"input":       hs.checkInput(),
			"warehouse":   hs.checkWarehouse(ctx),
		},
	}

	for name, svc := range status.Services {
		if svc.Status == StatusNotReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "Readiness check failed",
				slog.String("check", name),
				slog.String("message", svc.Message))
		}
	}

	hs.logger.InfoContext(ctx, "Readiness check completed", slog.String("status", status.Status))
	return status
}

func checkWritableDir(dir string) ServiceHealth {
	if dir == "" {
		return ServiceHealth{Status: StatusNotReady, Message: "not configured"}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return ServiceHealth{Status: StatusReady, Message: dir}
}

func (hs *HealthService) checkInput() ServiceHealth {
	if hs.cfg.Paths.InputPath == "" {
		return ServiceHealth{Status: StatusSkipped, Message: "no input configured"}
	}
	path, err := files.NewManager(hs.cfg.Paths, hs.logger).ResolveInput(hs.cfg.Paths.InputPath)
	if err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	if !files.IsSupportedInput(path) {
		return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("unsupported input %s", path)}
	}
	return ServiceHealth{Status: StatusReady, Message: path}
}

func (hs *HealthService) checkWarehouse(ctx context.Context) ServiceHealth {
	if !hs.cfg.Warehouse.Enabled {
		return ServiceHealth{Status: StatusSkipped, Message: "warehouse load disabled"}
	}
	if hs.openDB == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "no database opener"}
	}

	db, err := hs.openDB(hs.cfg.Warehouse.Driver, hs.cfg.Warehouse.DSN)
	if err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	return ServiceHealth{Status: StatusReady, Message: hs.cfg.Warehouse.Driver}
}
