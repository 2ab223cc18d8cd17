package hier

import "context"

// BlobStore moves content between local staging files and the remote store.
// Blobs are never deleted: old versions stay dereferenceable.
// Keys are forward-slash paths. Implementations must be safe for concurrent use.
type BlobStore interface {
	// Put uploads the file at localPath to key.
	Put(ctx context.Context, localPath, key string) error

	// Get downloads key into the file at localPath, replacing its content.
	Get(ctx context.Context, key, localPath string) error
}
