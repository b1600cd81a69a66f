package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"loandash/internal/config"
)

// Manager writes export files. Relative names land in the exports
// directory.
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{paths: paths, logger: logger.With(slog.String("component", "file_manager"))}
}

// WriteAtomic writes a file through write and renames it into place, so a
// watcher or reader never sees a partial file. It returns the final path.
func (m *Manager) WriteAtomic(path string, write func(io.Writer) error) (string, error) {
	fullPath := m.resolvePath(path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := write(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	if info, err := os.Stat(fullPath); err == nil {
		m.logger.Info("File written",
			slog.String("path", fullPath),
			slog.Int64("size_bytes", info.Size()))
	}
	return fullPath, nil
}

// resolvePath resolves a path relative to the exports directory
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) || m.paths == nil {
		return path
	}
	return m.paths.GetExportPath(path)
}
