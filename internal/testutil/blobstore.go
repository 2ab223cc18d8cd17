package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"docshare/internal/blobstore"
	"docshare/internal/hier"
)

// NewTestBlobStore returns a pooled in-memory blob store and the backing
// MemoryStore for inspecting what was written.
func NewTestBlobStore(t *testing.T) (*blobstore.Pool, *blobstore.MemoryStore) {
	t.Helper()
	mem := blobstore.NewMemoryStore()
	pool := blobstore.NewPool(mem, blobstore.PoolOptions{MaxConns: 4}, hier.NewNopLogger())
	t.Cleanup(func() {
		pool.Close()
	})
	return pool, mem
}

// FlakyBlobStore wraps a BlobStore and fails operations on demand.
type FlakyBlobStore struct {
	hier.BlobStore

	mu      sync.Mutex
	failPut bool
	failGet bool
	puts    int
}

var _ hier.BlobStore = (*FlakyBlobStore)(nil)

// NewFlakyBlobStore wraps inner. It passes every call through until told to fail.
func NewFlakyBlobStore(inner hier.BlobStore) *FlakyBlobStore {
	return &FlakyBlobStore{BlobStore: inner}
}

// FailPuts makes Put fail while on is true.
func (f *FlakyBlobStore) FailPuts(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut = on
}

// FailGets makes Get fail while on is true.
func (f *FlakyBlobStore) FailGets(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet = on
}

// Puts returns how many Put calls were attempted.
func (f *FlakyBlobStore) Puts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func (f *FlakyBlobStore) Put(ctx context.Context, localPath, key string) error {
	f.mu.Lock()
	f.puts++
	fail := f.failPut
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("injected put failure for %s", key)
	}
	return f.BlobStore.Put(ctx, localPath, key)
}

func (f *FlakyBlobStore) Get(ctx context.Context, key, localPath string) error {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("injected get failure for %s", key)
	}
	return f.BlobStore.Get(ctx, key, localPath)
}
