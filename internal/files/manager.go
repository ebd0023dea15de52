package files

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"instaetl/internal/config"
	apperrors "instaetl/internal/errors"
)

// Manager stages raw input files for a pipeline run
type Manager struct {
	paths  config.PathsConfig
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(paths config.PathsConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		paths:  paths,
		logger: logger.With("component", "extractor"),
	}
}

// ResolveInput returns src when it is a file. When src is a directory the
// most recently modified raw export inside it is used.
func (m *Manager) ResolveInput(src string) (string, error) {
	if src == "" {
		return "", apperrors.NewAppValidationError("no input path given")
	}

	info, err := os.Stat(src)
	if err != nil {
		return "", apperrors.NewNotFoundError("input").WithContext("path", src)
	}
	if !info.IsDir() {
		return src, nil
	}

	candidates, err := FindInputFiles(src)
	if err != nil {
		return "", apperrors.NewStorageError("failed to scan input directory", err).WithContext("path", src)
	}
	latest, ok := GetLatestFile(candidates)
	if !ok {
		return "", apperrors.NewNotFoundError("input file").WithContext("dir", src)
	}

	m.logger.Info("Resolved input from directory",
		slog.String("dir", src),
		slog.String("file", latest.Name),
		slog.Int("candidates", len(candidates)))

	return latest.Path, nil
}

// Stage copies the raw input into the staging directory and returns the
// staged path. An existing staged file is replaced.
func (m *Manager) Stage(ctx context.Context, src string) (string, error) {
	resolved, err := m.ResolveInput(src)
	if err != nil {
		return "", err
	}
	if !IsSupportedInput(resolved) {
		return "", apperrors.NewParsingError(
			fmt.Sprintf("unsupported input format %q", filepath.Ext(resolved)), nil).
			WithContext("path", resolved)
	}

	dst := m.paths.StagedInputPath(resolved)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	size, err := copyFile(resolved, dst)
	if err != nil {
		return "", apperrors.NewStorageError("failed to stage input", err).
			WithContext("src", resolved).
			WithContext("dst", dst)
	}

	m.logger.InfoContext(ctx, "Input staged",
		slog.String("src", resolved),
		slog.String("dst", dst),
		slog.Int64("size_bytes", size))

	return dst, nil
}

// copyFile writes src to a temp file next to dst and renames it into place
func copyFile(src, dst string) (int64, error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstDir := filepath.Dir(dst)
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(dstDir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, srcFile)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to copy file content: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to move staged file into place: %w", err)
	}
	return n, nil
}
