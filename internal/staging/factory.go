package staging

import (
	"fmt"
	"os"
	"path/filepath"

	"docshare/internal/config"
	"docshare/internal/hier"
)

// DefaultMaxSize is the default upload size limit (1GB).
const DefaultMaxSize int64 = 1024 * 1024 * 1024

// NewStagingAreaFromConfig creates the staging area described by cfg.
// An empty dir stages under the system temp directory.
func NewStagingAreaFromConfig(cfg config.StagingConfig, logger hier.Logger) (*FileSystemStagingArea, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "docshare-staging")
	}
	maxSize := cfg.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}
	if maxSize < 0 {
		return nil, fmt.Errorf("staging max_size must not be negative")
	}
	return NewFileSystemStagingArea(dir, maxSize, logger)
}
