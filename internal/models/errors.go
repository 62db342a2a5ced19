package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the booking/payment workflow. Repositories return these
// directly; services wrap them with %w so handlers can map with errors.Is.
var (
	ErrVehicleNotFound      = errors.New("vehicle not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateTransaction = errors.New("transaction already exists")
	ErrForbidden            = errors.New("not authorized for this booking")
)

// ValidationError reports a request rejected before any state was touched
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError builds a ValidationError
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError reports a state transition that lost a race or targeted a
// record already in a terminal state. The caller is expected to refresh and
// restart the flow, not retry the same operation.
type ConflictError struct {
	Resource string // "vehicle", "booking", "transaction"
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Reason)
}

// NewConflictError builds a ConflictError for a resource
func NewConflictError(resource, reason string) *ConflictError {
	return &ConflictError{Resource: resource, Reason: reason}
}

// InconsistentCallbackError reports a gateway callback whose outcome
// contradicts the terminal status already recorded for the transaction.
// This is never overwritten silently; it protects the financial record.
type InconsistentCallbackError struct {
	ProductID string
	Recorded  TransactionStatus
	Reported  TransactionStatus
}

func (e *InconsistentCallbackError) Error() string {
	return fmt.Sprintf("callback for transaction %s reports %s but %s is recorded",
		e.ProductID, e.Reported, e.Recorded)
}
