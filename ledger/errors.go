/*
errors.go - Centralized error types for the ledger engine

PURPOSE:

	All error types in one place for consistency and discoverability.
	Callers match with errors.Is() / errors.As().

ERROR CATEGORIES:
 1. Contract violations - Invalid arguments, fail fast, never retried
 2. Recoverable domain failures - Reported to the user as normal outcomes
 3. Fatal conditions - Authentication anomalies and storage failures,
    logged at error severity by the service layer

USAGE:

	if errors.Is(err, ledger.ErrReceiveTooMuch) {
	    // balance untouched, report to user
	}

SEE ALSO:
  - service/service.go: Maps these onto operation results and log severity
  - api/dto.go: Maps these onto HTTP statuses
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument marks a contract violation: blank string, non-positive
	// or over-precision amount, non-positive part count. Rejected before any
	// state is touched.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAuthentication is returned when the acting user does not exist in the
	// ledger. The session layer guarantees a logged-in caller, so this is a
	// logic bug upstream, not user error.
	ErrAuthentication = errors.New("authentication failure")

	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrGroupNotFound is returned when a referenced group doesn't exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrAlreadyExists is returned for duplicate usernames, duplicate friends
	// and duplicate group names.
	ErrAlreadyExists = errors.New("already exists")

	// ErrDuplicateMember is returned when a group is created with two
	// identical member names.
	ErrDuplicateMember = errors.New("duplicate member in group")

	// ErrSplitTooSmall is returned when the per-head share would round to
	// zero: the amount cannot give every participant at least one cent.
	ErrSplitTooSmall = errors.New("amount too small to split")

	// ErrNotFriends is returned when a split or receive is attempted between
	// parties without a ledger edge (not friends, or not group members).
	ErrNotFriends = errors.New("no ledger edge between users")

	// ErrReceiveTooMuch is returned when a receive exceeds the absolute edge
	// balance. The balance is left unchanged.
	ErrReceiveTooMuch = errors.New("received more than owed")

	// ErrNothingOwed is returned when the receiver is not actually owed money
	// by the other party.
	ErrNothingOwed = errors.New("nothing owed")

	// ErrStorage wraps a durable read/write failure. The triggering mutation
	// must not be considered committed.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidArgumentError names the offending field.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// NothingOwedError identifies the friend who owes nothing.
type NothingOwedError struct {
	Friend string
}

func (e *NothingOwedError) Error() string {
	return fmt.Sprintf("your friend [%s] does not owe you money", e.Friend)
}

func (e *NothingOwedError) Unwrap() error { return ErrNothingOwed }

// ReceiveTooMuchError reports the shortfall on an over-receive.
type ReceiveTooMuchError struct {
	Owed      Money
	Requested Money
}

func (e *ReceiveTooMuchError) Error() string {
	return fmt.Sprintf("received amount %s exceeds owed %s", e.Requested, e.Owed)
}

func (e *ReceiveTooMuchError) Unwrap() error { return ErrReceiveTooMuch }

// StorageError wraps the backend failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorage }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is a recoverable outcome of a
// well-formed request, reportable to the user as a normal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrDuplicateMember) ||
		errors.Is(err, ErrSplitTooSmall) ||
		errors.Is(err, ErrNotFriends) ||
		errors.Is(err, ErrReceiveTooMuch) ||
		errors.Is(err, ErrNothingOwed)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrGroupNotFound)
}

// IsFatal returns true for conditions the service logs at error severity:
// session-layer bugs and storage failures.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthentication) ||
		errors.Is(err, ErrStorage)
}
