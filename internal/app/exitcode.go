package app

import (
	"errors"

	"docshare/internal/hier"
)

// Process exit codes for each error kind.
const (
	ExitOK               = 0
	ExitError            = 1
	ExitNotFound         = 2
	ExitForbidden        = 3
	ExitInvalidStructure = 4
	ExitCycleRejected    = 5
	ExitNameConflict     = 6
	ExitTransferFailure  = 7
)

// ExitCode maps err to the process exit code for its kind.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, hier.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, hier.ErrForbidden):
		return ExitForbidden
	case errors.Is(err, hier.ErrInvalidStructure):
		return ExitInvalidStructure
	case errors.Is(err, hier.ErrCycleRejected):
		return ExitCycleRejected
	case errors.Is(err, hier.ErrNameConflict):
		return ExitNameConflict
	case errors.Is(err, hier.ErrTransferFailure):
		return ExitTransferFailure
	default:
		return ExitError
	}
}
