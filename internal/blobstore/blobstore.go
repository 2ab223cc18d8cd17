// Package blobstore moves file content between local staging files and a
// remote store through a bounded pool of backend sessions.
package blobstore

import (
	"context"
	"fmt"
	"path"
	"strings"

	"docshare/internal/hier"
)

// Conn is one session with a backend. A Conn is used by one goroutine at a
// time; the Pool enforces this.
type Conn interface {
	Put(ctx context.Context, localPath, key string) error
	Get(ctx context.Context, key, localPath string) error
	Close() error
}

// Dialer opens backend sessions. Dial must not retain ctx past its return.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// validateKey rejects keys that could escape the store's namespace.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "../") || key == ".." {
		return fmt.Errorf("%w: bad blob key %q", hier.ErrInvalidArgument, key)
	}
	return nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: blob %s", hier.ErrNotFound, key)
}
