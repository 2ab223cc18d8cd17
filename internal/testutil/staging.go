package testutil

import (
	"testing"

	"docshare/internal/hier"
	"docshare/internal/staging"
)

// DefaultStagingMaxSize is the max size for test staging areas (10MB).
const DefaultStagingMaxSize = 10 * 1024 * 1024

// NewTestStagingArea creates a staging area in a per-test temp directory.
func NewTestStagingArea(t *testing.T) *staging.FileSystemStagingArea {
	t.Helper()
	return NewTestStagingAreaWithSize(t, DefaultStagingMaxSize)
}

// NewTestStagingAreaWithSize creates a staging area with a custom max size.
func NewTestStagingAreaWithSize(t *testing.T, maxSize int64) *staging.FileSystemStagingArea {
	t.Helper()
	s, err := staging.NewFileSystemStagingArea(t.TempDir(), maxSize, hier.NewNopLogger())
	if err != nil {
		t.Fatalf("failed to create staging area: %v", err)
	}
	return s
}
