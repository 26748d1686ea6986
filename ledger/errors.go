/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  Repositories and the HTTP layer wrap or map these; callers match them
  with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Validation errors - input that must never reach the log
  2. Lookup errors - missing stores, items, transactions
  3. Conflict errors - duplicates, no-op changes, membership

NOT ERRORS:
  The reducer, snapshot calculator, weight parser and report generator never
  fail. Negative stock, unknown previous stock and unparseable weights are
  reporting facts, surfaced as values.
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
	// ErrInvalidTransaction is returned when a transaction violates the domain model.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrCommaInDescription is returned when a description contains a comma.
	// Descriptions are written verbatim into CSV reports.
	ErrCommaInDescription = errors.New("description must not contain a comma")

	// ErrDuplicateTransaction is returned when a transaction id already exists.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")

	// ErrTransactionNotFound is returned when rewriting a transaction that does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrDuplicateStore is returned when a store id (join code) is already taken.
	ErrDuplicateStore = errors.New("store already exists")

	// ErrStoreNotFound is returned when a referenced store doesn't exist.
	ErrStoreNotFound = errors.New("store not found")

	// ErrItemNotFound is returned when no transaction references the item.
	ErrItemNotFound = errors.New("item not found")

	// ErrAlreadyManager is returned when joining a store the user already manages.
	ErrAlreadyManager = errors.New("already a manager of this store")

	// ErrForbidden is returned when a user is not a manager of the store.
	ErrForbidden = errors.New("not a manager of this store")

	// ErrNoChange is returned when a rename leaves the item identical.
	ErrNoChange = errors.New("no change")

	// ErrDuplicateItem is returned when a rename collides with an existing item.
	ErrDuplicateItem = errors.New("item already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
	cause   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match both ErrInvalidTransaction and the specific cause.
func (e *ValidationError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrInvalidTransaction, e.cause}
	}
	return []error{ErrInvalidTransaction}
}

// DuplicateItemError carries the existing item a rename would merge into.
type DuplicateItemError struct {
	Existing Item
}

func (e *DuplicateItemError) Error() string {
	return fmt.Sprintf("item already exists: %s (%s)", e.Existing.Label(), e.Existing.ID)
}

func (e *DuplicateItemError) Unwrap() error {
	return ErrDuplicateItem
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransaction) ||
		errors.Is(err, ErrNoChange)
}

// IsConflict returns true if the request collides with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateTransaction) ||
		errors.Is(err, ErrDuplicateItem) ||
		errors.Is(err, ErrDuplicateStore) ||
		errors.Is(err, ErrAlreadyManager)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStoreNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}
