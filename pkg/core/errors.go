package core

import (
	"errors"
	"fmt"
)

// Validation errors. They are raised before anything is mutated.
var (
	ErrInvalidModelName  = errors.New("invalid model name")
	ErrInvalidContent    = errors.New("invalid content")
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
	ErrTimestampOrdering = errors.New("updatedAt precedes createdAt")
	ErrMetadataInvalid   = errors.New("metadata invalid")
	ErrInvalidPrompt     = errors.New("invalid prompt")
	ErrInvalidNote       = errors.New("invalid note")
	ErrInvalidRating     = errors.New("invalid rating")
)

// Snapshot and reconciliation errors.
var (
	ErrParse           = errors.New("snapshot could not be parsed")
	ErrSnapshotInvalid = errors.New("snapshot invalid")
	// ErrExportAborted means the live library holds invalid data. The store is
	// at fault, not the request.
	ErrExportAborted = errors.New("export aborted: library contains invalid data")
	ErrMergeFailed   = errors.New("merge failed")
	ErrBusy          = errors.New("reconciliation already in progress")
)

// Storage errors.
var (
	ErrWrite    = errors.New("storage write failed")
	ErrReadOnly = errors.New("library is in read-only mode")
	ErrNotFound = errors.New("not found")
)

// Outcome tells a caller what state a failed reconciliation left behind.
type Outcome string

const (
	// OutcomeUnchanged: the failure happened before anything was mutated.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeRolledBack: changes were applied, then reverted to the checkpoint.
	OutcomeRolledBack Outcome = "rolled_back"
	// OutcomeRollbackFailed: the revert itself failed; the store may be inconsistent.
	OutcomeRollbackFailed Outcome = "rollback_failed"
)

// MergeError is returned by the reconciliation engine when applying a
// snapshot fails. It matches both ErrMergeFailed and its cause with errors.Is.
type MergeError struct {
	Op          string
	Outcome     Outcome
	Err         error
	RollbackErr error
}

func (e *MergeError) Error() string {
	msg := fmt.Sprintf("%s failed (%s): %v", e.Op, e.Outcome, e.Err)
	if e.RollbackErr != nil {
		msg += fmt.Sprintf("; rollback: %v", e.RollbackErr)
	}
	return msg
}

func (e *MergeError) Unwrap() []error {
	return []error{ErrMergeFailed, e.Err}
}
