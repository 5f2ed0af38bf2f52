package ledger

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmptyTitleOrAmount    = errors.New("title can't be empty and amount must be positive")
	ErrPayerSumMismatch      = errors.New("payer contributions don't add up to the total")
	ErrShareSumMismatch      = errors.New("participant shares don't add up to the total")
	ErrNoPayers              = errors.New("at least one payer is required")
	ErrNoParticipants        = errors.New("at least one participant is required")
	ErrNegativeAmount        = errors.New("amounts can't be negative")
	ErrDuplicateMember       = errors.New("member listed more than once")
	ErrUnknownMember         = errors.New("member doesn't belong to the trip")
	ErrInvalidTransferAmount = errors.New("transfer amount must be positive")
	ErrSelfTransfer          = errors.New("a member can't settle with themselves")
	ErrSettlementNotEditable = errors.New("settlements can only be undone")
	ErrReservedCategory      = errors.New("category is reserved for settlements")

	ErrExpenseNotFound    = errors.New("expense not found")
	ErrSettlementNotFound = errors.New("settlement not found")

	// ErrConflict is returned when the store rejects a write because of a
	// concurrent one, or the trip lock could not be taken. Callers should
	// re-fetch and retry.
	ErrConflict = errors.New("concurrent modification")

	// ErrNotFound is what a Store returns for a missing record. The
	// coordinator turns it into ErrExpenseNotFound or ErrSettlementNotFound.
	ErrNotFound = errors.New("record not found")
)

// ValidationError is a rejected request. Nothing was written.
type ValidationError struct {
	Reason error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

func invalid(reason error, format string, args ...any) error {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// StoreError wraps a persistence failure. The operation made no change.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrExpenseNotFound) || errors.Is(err, ErrSettlementNotFound) || errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsCanceled reports whether the caller's context ended before the request
// finished.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
