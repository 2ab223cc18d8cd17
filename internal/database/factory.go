package database

import (
	"fmt"
	"os"
	"path/filepath"

	"docshare/internal/config"
)

// DatabaseFileName is the name of the SQLite file inside data_dir.
const DatabaseFileName = "docshare.db"

// NewDatabaseFromConfig opens the database described by cfg and brings its
// schema up to date.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, DatabaseFileName))
	case "memory":
		return NewSQLiteDatabase(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
