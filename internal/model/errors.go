package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicatePoint is returned by the store when a point with the
	// same id is already committed.
	ErrDuplicatePoint = errors.New("duplicate mobility point")
)

// InvalidDataError rejects a malformed point before it reaches storage.
type InvalidDataError struct {
	Field  string
	Reason string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("invalid mobility point: %s: %s", e.Field, e.Reason)
}

// StorageError wraps an underlying storage failure with the operation
// and key parameters it occurred on.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage: %s (%s): %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// CorruptRecordError marks a stored row that no longer parses back
// into a valid point. It is always surfaced, never dropped, since
// omitting the row would misrepresent aggregate statistics.
type CorruptRecordError struct {
	ID  uuid.UUID
	Err error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt mobility record %s: %v", e.ID, e.Err)
}

func (e *CorruptRecordError) Unwrap() error {
	return e.Err
}
