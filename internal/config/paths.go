package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the on-disk locations used by the application.
type Paths struct {
	BaseDir    string
	CacheDir   string
	SQLiteFile string
	ExportsDir string
	LogsDir    string
}

// GetPaths resolves application paths under baseDir. An empty baseDir
// falls back to the per-user cache directory (~/.cache/vtschooldata on Linux).
func GetPaths(baseDir string) (*Paths, error) {
	if baseDir == "" {
		userCache, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user cache dir: %w", err)
		}
		baseDir = filepath.Join(userCache, AppName)
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", baseDir, err)
	}

	return &Paths{
		BaseDir:    abs,
		CacheDir:   filepath.Join(abs, "cache"),
		SQLiteFile: filepath.Join(abs, "cache.db"),
		ExportsDir: filepath.Join(abs, "exports"),
		LogsDir:    filepath.Join(abs, "logs"),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.BaseDir,
		p.CacheDir,
		p.ExportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetExportPath returns the path for an exported CSV file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
