package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated means no owner id is available; every operation
	// short-circuits on it before touching the store.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound means the record does not exist for the given owner.
	ErrNotFound = errors.New("record not found")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid entry kind")
	ErrInvalidStatus    = errors.New("invalid obligation status")
	ErrInvalidPeriod    = errors.New("invalid competence period")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyOwner       = errors.New("empty owner")
)

// PartialSyncError reports that a primary write succeeded but a dependent
// propagation step did not, leaving the ledger and a derived record out of
// sync. The primary write is never rolled back; callers surface this to the
// user so the residual state is visible instead of silent.
type PartialSyncError struct {
	// Action is the primary operation that completed, e.g. "delete entry".
	Action string
	// Step is the propagation step that failed, e.g. "delete linked obligation".
	Step string
	Err  error
}

func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("%s succeeded but %s failed: %v", e.Action, e.Step, e.Err)
}

func (e *PartialSyncError) Unwrap() error {
	return e.Err
}
