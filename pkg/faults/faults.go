// Package faults defines the reconciliation failure taxonomy.
//
// Structural failures are acknowledged to the provider and never retried:
// redelivery cannot fix a missing or unparseable field. Anything that is
// neither structural nor already-applied is considered retryable and must
// bubble up so the provider redelivers.
package faults

import (
	"errors"
	"fmt"
)

var (
	// ErrStructural marks events whose required fields are missing or
	// unparseable. Ack, log, do not retry.
	ErrStructural = errors.New("structural failure")

	// ErrAlreadyApplied marks work that a previous delivery already
	// performed. Not an error from the provider's perspective.
	ErrAlreadyApplied = errors.New("already applied")
)

// Structuralf wraps a formatted message as a structural failure.
func Structuralf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStructural, fmt.Sprintf(format, args...))
}

func IsStructural(err error) bool { return errors.Is(err, ErrStructural) }

func IsAlreadyApplied(err error) bool { return errors.Is(err, ErrAlreadyApplied) }

// IsRetryable reports whether the provider should redeliver the event.
func IsRetryable(err error) bool {
	return err != nil && !IsStructural(err) && !IsAlreadyApplied(err)
}
