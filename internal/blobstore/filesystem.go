package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSystemStore keeps blobs as files under a root directory, one file per
// key with the key's slashes mapped to subdirectories:
//
//	<root>/
//	  projects/<project>/<stored name>
type FileSystemStore struct {
	root string
}

var _ Dialer = (*FileSystemStore)(nil)

// NewFileSystemStore creates a store rooted at root, creating it if needed.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

// Dial verifies the root is still a usable directory.
func (s *FileSystemStore) Dial(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("blob root not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("blob root is not a directory: %s", s.root)
	}
	return &fsConn{root: s.root}, nil
}

type fsConn struct {
	root string
}

func (c *fsConn) path(key string) string {
	return filepath.Join(c.root, filepath.FromSlash(key))
}

func (c *fsConn) Put(ctx context.Context, localPath, key string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	dest := c.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}
	return writeFile(dest, src, info.Size())
}

func (c *fsConn) Get(ctx context.Context, key, localPath string) error {
	src, err := os.Open(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return notFound(key)
		}
		return fmt.Errorf("failed to open blob: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", localPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to read blob: %w", err)
	}
	return dst.Close()
}

func (c *fsConn) Close() error { return nil }

// writeFile writes r to destPath through a temp file in the same directory
// and renames it into place, so readers never observe a partial blob.
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}
