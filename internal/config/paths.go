package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Well-known output file names. Every run overwrites them.
const (
	CleanedCSV     = "Instagram_Analytics_clean.csv"
	KPICSV         = "Instagram_Analytics_clean_with_KPIs.csv"
	TimeDimCSV     = "time_dim.csv"
	ContentDimCSV  = "content_dim.csv"
	MediaDimCSV    = "media_dim.csv"
	TrafficDimCSV  = "traffic_dim.csv"
	FactCSV        = "instagram_fact.csv"
	StagedBaseName = "instagram_raw"
)

// StagedInputPath returns where the extractor places a copy of the raw input.
// The extension of the original file is kept so the parser can dispatch on it.
func (p PathsConfig) StagedInputPath(source string) string {
	ext := strings.ToLower(filepath.Ext(source))
	if ext == "" {
		ext = ".csv"
	}
	return filepath.Join(p.StagingDir, StagedBaseName+ext)
}

// OutputPath returns the path of a file in the output directory
func (p PathsConfig) OutputPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// LogFile returns the path of a file in the logs directory
func (p PathsConfig) LogFile(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// EnsureDirectories creates the staging, output and logs directories.
func (p PathsConfig) EnsureDirectories() error {
	directories := []string{
		p.StagingDir,
		p.OutputDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LogPathResolution logs the resolved paths of this run
func (p PathsConfig) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("staging", p.StagingDir),
			slog.String("output", p.OutputDir),
			slog.String("logs", p.LogsDir),
		),
		slog.String("input", p.InputPath))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
