// Package fs reads local files and directory trees for upload.
package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"docshare/internal/hier"
)

// Source is a local file or directory offered for upload.
type Source struct {
	Path  string // absolute
	Rel   string // slash-separated, relative to the walk root; "" for the root
	IsDir bool
	Size  int64
}

// Name returns the base name of the source.
func (s *Source) Name() string {
	return filepath.Base(s.Path)
}

// Tree is the result of walking a directory: folders before their contents.
type Tree struct {
	Root    *Source
	Dirs    []*Source
	Files   []*Source
	Skipped []string // relative paths of unsupported entries
}

// Manager reads the local filesystem.
type Manager struct{}

// NewManager creates a Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Resolve validates a raw path. Symlinks, devices, pipes and sockets are
// rejected: only regular files and directories can be uploaded.
func (m *Manager) Resolve(rawPath string) (*Source, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}
	if err := checkMode(info.Mode(), absPath); err != nil {
		return nil, err
	}
	return &Source{Path: absPath, IsDir: info.IsDir(), Size: info.Size()}, nil
}

// Open opens a file source for reading.
func (m *Manager) Open(src *Source) (io.ReadCloser, error) {
	if src.IsDir {
		return nil, fmt.Errorf("%w: cannot open directory as file: %s", hier.ErrInvalidArgument, src.Path)
	}
	return os.Open(src.Path)
}

// Walk lists everything under root that ignore does not exclude. Ignored
// directories are not descended into. Unsupported entries are reported in
// Tree.Skipped rather than failing the walk.
func (m *Manager) Walk(root *Source, ignore *IgnoreMatcher) (*Tree, error) {
	if !root.IsDir {
		return nil, fmt.Errorf("%w: path is not a directory: %s", hier.ErrInvalidArgument, root.Path)
	}
	if ignore == nil {
		ignore = NewIgnoreMatcher(nil)
	}

	tree := &Tree{Root: root}
	err := filepath.WalkDir(root.Path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root.Path {
			return nil
		}

		rel, err := filepath.Rel(root.Path, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if ignore.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			tree.Dirs = append(tree.Dirs, &Source{Path: p, Rel: rel, IsDir: true})
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", p, err)
			}
			tree.Files = append(tree.Files, &Source{Path: p, Rel: rel, Size: info.Size()})
		default:
			tree.Skipped = append(tree.Skipped, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return tree, nil
}

func checkMode(mode fs.FileMode, path string) error {
	switch {
	case mode&os.ModeSymlink != 0:
		return fmt.Errorf("%w: symlinks not supported: %s", hier.ErrInvalidArgument, path)
	case mode&os.ModeDevice != 0:
		return fmt.Errorf("%w: device files not supported: %s", hier.ErrInvalidArgument, path)
	case mode&os.ModeNamedPipe != 0:
		return fmt.Errorf("%w: named pipes not supported: %s", hier.ErrInvalidArgument, path)
	case mode&os.ModeSocket != 0:
		return fmt.Errorf("%w: sockets not supported: %s", hier.ErrInvalidArgument, path)
	}
	return nil
}
