package testutil

import (
	"testing"

	"docshare/internal/blobstore"
	"docshare/internal/database"
	"docshare/internal/hier"
	"docshare/internal/staging"
)

// Harness is a hier.Service wired to in-memory collaborators that tests can
// inspect and manipulate.
type Harness struct {
	Service *hier.Service
	DB      *database.SQLiteDatabase
	Members *FakeMembership
	Blobs   *FlakyBlobStore
	Memory  *blobstore.MemoryStore
	Staging *staging.FileSystemStagingArea
	Clock   *StubClock
	IDs     *StubIDGenerator
	Encrypt hier.Encryptor
}

// HarnessOption adjusts a Harness before its Service is built.
type HarnessOption func(*Harness)

// WithEncryption seals uploaded content with enc.
func WithEncryption(enc hier.Encryptor) HarnessOption {
	return func(h *Harness) { h.Encrypt = enc }
}

// NewHarness builds a Harness with no projects registered.
func NewHarness(t *testing.T, opts ...HarnessOption) *Harness {
	t.Helper()

	pool, mem := NewTestBlobStore(t)
	h := &Harness{
		DB:      NewTestDatabase(t),
		Members: NewFakeMembership(),
		Blobs:   NewFlakyBlobStore(pool),
		Memory:  mem,
		Staging: NewTestStagingArea(t),
		Clock:   FixedClock(),
		IDs:     NewStubIDGenerator(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.Service = hier.NewService(h.DB, h.Members, h.Blobs, h.Staging, h.Encrypt, hier.NewNopLogger(), h.Clock, h.IDs)
	return h
}

// StagingCount returns how many staging files are held, failing the test on error.
func (h *Harness) StagingCount(t *testing.T) int {
	t.Helper()
	n, err := h.Staging.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	return n
}
