package reminders

import (
	"fmt"
)

// ValidationError rejects reminder parameters. Nothing is applied when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid reminder %s: %s", e.Field, e.Reason)
}

// StorageError reports that the reminder medium could not be read or written. It is a
// warning: the in-memory schedule has already been updated and keeps running.
type StorageError struct {
	Op        string
	SessionID string
	Err       error
}

func (e *StorageError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("reminder store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("reminder store %s %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
