package repo

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a record does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// AlreadyExistsError is returned when creating a record whose id is
// already taken.
type AlreadyExistsError struct {
	Kind string
	ID   string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.ID)
}

// ConcurrencyConflictError is returned when a write carries an expected
// revision that no longer matches the stored revision. The write is
// rejected without side effects; callers re-read and retry.
type ConcurrencyConflictError struct {
	Kind     string
	ID       string
	Expected int64
	Actual   int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s %q revision conflict: expected %d, stored %d",
		e.Kind, e.ID, e.Expected, e.Actual)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAlreadyExists reports whether err is an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var target *AlreadyExistsError
	return errors.As(err, &target)
}

// IsConcurrencyConflict reports whether err is a ConcurrencyConflictError.
func IsConcurrencyConflict(err error) bool {
	var target *ConcurrencyConflictError
	return errors.As(err, &target)
}
