/*
errors.go - Centralized error types for the hours engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Transport layers map these to status codes with errors.Is/errors.As;
  the engine itself never knows about HTTP.

ERROR CATEGORIES:
  1. Validation errors - malformed input, user-correctable
  2. Authorization errors - ownership/role violations
  3. State-machine errors - transitions on non-pending entities
  4. Balance errors - conversion requests past the available balance
  5. Upstream errors - external collaborator failures

SEE ALSO:
  - ledger.go, approval.go, aggregate.go: Producers of these errors
  - api/handlers.go: Status-code mapping
*/
package hours

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed dates, times, or amounts.
	// Always user-correctable; surfaced verbatim to the caller.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record/goal/conversion does
	// not exist, or exists but is not visible to the caller. Ownership
	// failures deliberately look like missing records to non-owners.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller lacks the admin role for an
	// operation that requires it.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState is returned for transitions on a non-pending entity.
	// Terminal states are terminal; re-deciding is rejected, never silent.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrInsufficientHours is returned when a conversion request exceeds
	// the currently available balance.
	ErrInsufficientHours = errors.New("insufficient hours")

	// ErrConflict is returned when a pending goal already exists for the
	// same user and month.
	ErrConflict = errors.New("conflicting pending request")

	// ErrUpstream wraps failures of external collaborators (store,
	// identity, report generation). Not retried by the engine.
	ErrUpstream = errors.New("upstream failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError carries the offending field and a human-readable reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientHoursError reports the corrective bound alongside the failure
// so callers can render "maximum available: Xh".
type InsufficientHoursError struct {
	UserID    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientHoursError) Error() string {
	return fmt.Sprintf("requested %sh exceeds balance, maximum available: %sh",
		e.Requested.String(), e.Available.String())
}

func (e *InsufficientHoursError) Unwrap() error { return ErrInsufficientHours }

// InvalidStateError reports the terminal status that blocked a transition.
type InvalidStateError struct {
	ID     string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("request %s already %s, only pending requests can be decided", e.ID, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }
