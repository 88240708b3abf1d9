/*
errors.go - Centralized error types for the clinic domain

PURPOSE:
  All domain error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP status codes; the store wraps low-level
  database failures as StoreError.

ERROR CATEGORIES:
  1. Validation errors - Bad input rejected before any write
  2. Lifecycle errors  - Illegal state transitions (e.g. paying a Paid invoice)
  3. Authorization     - Role policy rejections
  4. Store errors      - Database-level failures

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, clinic.ErrInvoiceAlreadyPaid) {
        // 409 Conflict
    }
    var verr *clinic.ValidationError
    if errors.As(err, &verr) {
        // 400 with verr.Field
    }
*/
package clinic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record does not exist or is
	// soft-deleted. Deleted rows are indistinguishable from missing ones on
	// the default read paths.
	ErrNotFound = errors.New("record not found")

	// ErrPhoneAlreadyRegistered is returned when patient intake or edit would
	// violate phone uniqueness among non-deleted patients.
	ErrPhoneAlreadyRegistered = errors.New("phone number already registered")

	// ErrEmailAlreadyRegistered is returned when creating a user account with
	// an email that is already taken.
	ErrEmailAlreadyRegistered = errors.New("email already registered")

	// ErrInvoiceAlreadyPaid is returned when marking an invoice paid twice.
	// Without this guard the payment would be double-counted on the case ledger.
	ErrInvoiceAlreadyPaid = errors.New("invoice already paid")

	// ErrInvoiceTerminal is returned when mutating a Paid or Cancelled invoice.
	ErrInvoiceTerminal = errors.New("invoice is in a terminal status")

	// ErrForbidden is returned when the caller's role does not permit the
	// requested operation.
	ErrForbidden = errors.New("operation not permitted for role")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserInactive is returned when a deactivated account tries to log in.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrStore is the base error for underlying read/write failures.
	ErrStore = errors.New("store failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a rejected input field. The operation is aborted
// before any write reaches the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// StoreError wraps a database-level failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return ErrStore
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than a system failure.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, ErrPhoneAlreadyRegistered) ||
		errors.Is(err, ErrEmailAlreadyRegistered) ||
		errors.Is(err, ErrInvoiceAlreadyPaid) ||
		errors.Is(err, ErrInvoiceTerminal)
}

// IsNotFound returns true if the error indicates a missing (or soft-deleted)
// record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden returns true if the error is an authorization rejection.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
