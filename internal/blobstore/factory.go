package blobstore

import (
	"context"
	"fmt"
	"time"

	"docshare/internal/config"
	"docshare/internal/hier"
)

// NewBlobStoreFromConfig creates a Pool over the backend selected by cfg.Type.
func NewBlobStoreFromConfig(ctx context.Context, cfg config.BlobStoreConfig, logger hier.Logger) (*Pool, error) {
	opts := PoolOptions{
		MaxConns:    cfg.MaxConns,
		DialRetries: cfg.DialRetries,
	}
	if cfg.DialTimeout != "" {
		d, err := time.ParseDuration(cfg.DialTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing dial_timeout: %w", err)
		}
		opts.DialTimeout = d
	}

	var dialer Dialer
	switch cfg.Type {
	case "memory":
		dialer = NewMemoryStore()
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem blob store requires fs_root to be set")
		}
		fs, err := NewFileSystemStore(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		dialer = fs
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 blob store requires s3_bucket to be set")
		}
		store, err := NewS3Store(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		dialer = store
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}
	return NewPool(dialer, opts, logger), nil
}
