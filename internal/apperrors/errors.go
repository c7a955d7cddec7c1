package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the governance core. Handlers map these to HTTP statuses
// with errors.Is / errors.As instead of matching on message text.
var (
	ErrAccessDenied          = errors.New("access denied")
	ErrNoAssignment          = fmt.Errorf("no active assignment for sheet: %w", ErrAccessDenied)
	ErrAssignmentExpired     = fmt.Errorf("assignment expired: %w", ErrAccessDenied)
	ErrInvalidTransition     = errors.New("invalid workflow transition")
	ErrSelfApproval          = fmt.Errorf("submitter cannot review own row: %w", ErrInvalidTransition)
	ErrMissingRequiredFields = errors.New("missing required fields")
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrImmutableRecord       = errors.New("audit entries are immutable")
	ErrLockHeld              = errors.New("row is locked by another user")
	ErrApprovedReadOnly      = fmt.Errorf("approved rows are read-only: %w", ErrAccessDenied)
)

// LockHeldError carries the holder metadata surfaced to the caller on a lock
// conflict. errors.Is(err, ErrLockHeld) matches it.
type LockHeldError struct {
	HolderID   string
	HolderName string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("row is locked by %s since %s", e.HolderID, e.AcquiredAt.Format(time.RFC3339))
}

func (e *LockHeldError) Is(target error) bool {
	return target == ErrLockHeld
}
