package blobstore

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
)

// MemoryStore keeps blobs in memory. Every session it dials shares the same
// map, so content survives reconnects. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ Dialer = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Dial returns a session over the shared map.
func (m *MemoryStore) Dial(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryConn{store: m}, nil
}

// Has reports whether key is stored.
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[key]
	return ok
}

// Keys returns the stored keys in order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type memoryConn struct {
	store *MemoryStore
}

func (c *memoryConn) Put(ctx context.Context, localPath, key string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", localPath, err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.blobs[key] = data
	return nil
}

func (c *memoryConn) Get(ctx context.Context, key, localPath string) error {
	c.store.mu.RLock()
	data, ok := c.store.blobs[key]
	c.store.mu.RUnlock()
	if !ok {
		return notFound(key)
	}
	if err := os.WriteFile(localPath, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", localPath, err)
	}
	return nil
}

func (c *memoryConn) Close() error { return nil }
