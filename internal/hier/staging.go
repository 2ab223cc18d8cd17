package hier

import "io"

// StagedFile is a local file holding content on its way to or from the blob store.
type StagedFile struct {
	Path string
	Size int64
}

// StagingArea hands out uniquely named local files.
// Every StagedFile obtained from it must be passed to Release exactly once.
type StagingArea interface {
	// Stage copies r into a new staging file.
	Stage(r io.Reader) (*StagedFile, error)

	// Reserve creates a new empty staging file.
	Reserve() (*StagedFile, error)

	// Release removes the staging file. Failures are logged, not returned.
	Release(f *StagedFile)

	// Count returns the number of staging files currently held.
	Count() (int, error)
}
