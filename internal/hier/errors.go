package hier

import (
	"errors"
	"fmt"
)

// Error kinds returned by the Service. Callers match them with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidStructure = errors.New("invalid structure")
	ErrCycleRejected    = errors.New("move would create a cycle")
	ErrNameConflict     = errors.New("name conflict")
	ErrTransferFailure  = errors.New("blob transfer failed")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// transferFailed tags a blob store failure with ErrTransferFailure while
// keeping the underlying cause inspectable.
func transferFailed(op, key string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, key, ErrTransferFailure, err)
}
