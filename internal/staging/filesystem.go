package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"docshare/internal/hier"
)

const filePrefix = "stage-"

// ErrTooLarge is returned by Stage when content exceeds the configured maximum.
var ErrTooLarge = errors.New("content exceeds staging limit")

// FileSystemStagingArea keeps staged content as files in a single directory:
//
//	<staging_dir>/
//	  stage-<random>    (one file per in-flight transfer)
//
// File names come from os.CreateTemp, so concurrent transfers never share a file.
type FileSystemStagingArea struct {
	dir     string
	maxSize int64
	logger  hier.Logger
}

var _ hier.StagingArea = (*FileSystemStagingArea)(nil)

// NewFileSystemStagingArea creates the staging directory if needed.
// maxSize limits content accepted by Stage; zero or negative means no limit.
func NewFileSystemStagingArea(dir string, maxSize int64, logger hier.Logger) (*FileSystemStagingArea, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &FileSystemStagingArea{dir: dir, maxSize: maxSize, logger: logger}, nil
}

// Stage copies r into a new staging file. On any failure the partial file is removed.
func (s *FileSystemStagingArea) Stage(r io.Reader) (*hier.StagedFile, error) {
	f, err := os.CreateTemp(s.dir, filePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("creating staging file: %w", err)
	}
	staged := &hier.StagedFile{Path: f.Name()}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = fmt.Errorf("%w: %w of %d bytes", hier.ErrInvalidArgument, ErrTooLarge, s.maxSize)
	}
	if err != nil {
		s.Release(staged)
		return nil, fmt.Errorf("writing staging file: %w", err)
	}

	staged.Size = n
	return staged, nil
}

// Reserve creates an empty staging file for content arriving from the blob store.
func (s *FileSystemStagingArea) Reserve() (*hier.StagedFile, error) {
	f, err := os.CreateTemp(s.dir, filePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("creating staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("closing staging file: %w", err)
	}
	return &hier.StagedFile{Path: f.Name()}, nil
}

// Release deletes the staging file. A failure is logged and otherwise ignored.
func (s *FileSystemStagingArea) Release(f *hier.StagedFile) {
	if f == nil || f.Path == "" {
		return
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove staging file", "path", f.Path, "error", err)
	}
}

// Count returns the number of staging files present in the directory.
func (s *FileSystemStagingArea) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("reading staging directory: %w", err)
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) {
			count++
		}
	}
	return count, nil
}

// Dir returns the staging directory.
func (s *FileSystemStagingArea) Dir() string {
	return filepath.Clean(s.dir)
}
