package services

import (
	"errors"
	"fmt"
)

// Error taxonomy for sync jobs. Anything not wrapped in one of these
// sentinels is treated as unexpected: the surrounding transaction rolls
// back and the job fails hard.
var (
	// ErrRecoverable marks transient broker/provider failures. The job
	// should be retried later; durable progress made before the failure is
	// kept.
	ErrRecoverable = errors.New("recoverable sync error")

	// ErrForbidden marks an ownership violation on a connection mutation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a missing entity where the caller decides whether
	// that is an error.
	ErrNotFound = errors.New("not found")
)

// UnknownBrokerConnectionMessage is the fixed, non-technical message shown
// to users whose connection handle the broker no longer recognizes.
const UnknownBrokerConnectionMessage = "The OAuth connection is failing due to a technical issue on our end. " +
	"Please try to reconnect the integration."

func recoverable(err error) error {
	return fmt.Errorf("%w: %v", ErrRecoverable, err)
}

// IsRecoverable reports whether err is classified as recoverable.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrRecoverable)
}
