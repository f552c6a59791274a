package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrConnectionConflict is returned when a connection already exists
	// for the same (user, provider kind) pair
	ErrConnectionConflict = errors.New("integration connection already exists for this provider")

	// ErrSinkItemAlreadySet is returned by SetTaskSinkItem when the task
	// already carries a sink item (0 rows updated by the conditional write).
	ErrSinkItemAlreadySet = errors.New("task already has a sink item")
)
