package sync

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned by ProcessQueue when a run is in flight.
var ErrAlreadyRunning = errors.New("sync already in progress")

// ConfigurationError reports a missing remote endpoint or credentials.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "sync not configured: " + e.Reason
}

// IdentityError reports a mutation without a resolvable user id.
type IdentityError struct {
	ItemID    string
	Operation string
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("no user id for %s mutation %s", e.Operation, e.ItemID)
}

// ConflictError reports divergent remote state that could not be merged.
type ConflictError struct {
	Operation string
	RecordID  string
	Err       error
}

func (e *ConflictError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("unresolved conflict for %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("unresolved conflict for %s (record %s): %v", e.Operation, e.RecordID, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// TransientNetworkError reports a 5xx response or a transport failure.
type TransientNetworkError struct {
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient network error: %v", e.Err)
}

func (e *TransientNetworkError) Unwrap() error {
	return e.Err
}

// PermanentSyncError reports a non-success response that retrying cannot fix.
type PermanentSyncError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *PermanentSyncError) Error() string {
	return fmt.Sprintf("permanent sync error (status %d): %s", e.StatusCode, e.Message)
}

func (e *PermanentSyncError) Unwrap() error {
	return e.Err
}
