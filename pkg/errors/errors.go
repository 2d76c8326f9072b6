package errors

import (
	"errors"
	"fmt"
)

// Error codes for the loyalty engine.
const (
	// Domain errors
	ErrCodeQuestNotFound       = "QUEST_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"

	// Concurrency errors
	ErrCodeConflict = "CONFLICT"

	// Database errors
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeTransactionFailed = "TRANSACTION_FAILED"

	// Config errors
	ErrCodeConfigInvalid = "CONFIG_INVALID"

	// Best-effort side effect errors
	ErrCodeBadgeGrantFailed = "BADGE_GRANT_FAILED"
	ErrCodeNotifyFailed     = "NOTIFY_FAILED"

	// Validation errors
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeInvalidInput     = "INVALID_INPUT"

	// Ledger integrity errors
	ErrCodeLedgerCorrupt = "LEDGER_CORRUPT"
)

// LoyaltyError represents an error in the loyalty engine.
type LoyaltyError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoyaltyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoyaltyError) Unwrap() error {
	return e.Err
}

// NewLoyaltyError creates a new LoyaltyError.
func NewLoyaltyError(code, message string, err error) *LoyaltyError {
	return &LoyaltyError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the loyalty error code for err, or "" if err is not a
// LoyaltyError.
func CodeOf(err error) string {
	var le *LoyaltyError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsConflict reports whether err is an optimistic-concurrency conflict.
// Conflicts are transient: the caller retries the whole sequence with a
// freshly re-read balance.
func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

// IsNotFound reports whether err refers to a missing user or quest.
// Not-found triggers are dropped, never retried.
func IsNotFound(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeUserNotFound || code == ErrCodeQuestNotFound
}

// IsConfigInvalid reports whether err is a configuration error.
func IsConfigInvalid(err error) bool {
	return CodeOf(err) == ErrCodeConfigInvalid
}

// Domain-specific error constructors

// ErrQuestNotFound returns an error when a quest is not found.
func ErrQuestNotFound(questID string) *LoyaltyError {
	return &LoyaltyError{
		Code:    ErrCodeQuestNotFound,
		Message: fmt.Sprintf("quest not found: %s", questID),
	}
}

// ErrUserNotFound returns an error when a user has no loyalty record.
func ErrUserNotFound(userID string) *LoyaltyError {
	return &LoyaltyError{
		Code:    ErrCodeUserNotFound,
		Message: fmt.Sprintf("user not found: %s", userID),
	}
}

// ErrInsufficientBalance returns an error when a debit would drive a
// non-adjustment balance negative.
func ErrInsufficientBalance(userID string, balance, requested int64) *LoyaltyError {
	return &LoyaltyError{
		Code:    ErrCodeInsufficientBalance,
		Message: fmt.Sprintf("insufficient balance for user %s: have %d, debit %d", userID, balance, requested),
	}
}

// ErrConflict returns an error when a conditional write matched no rows
// because another crediting interleaved.
func ErrConflict(operation string) *LoyaltyError {
	return &LoyaltyError{
		Code:    ErrCodeConflict,
		Message: fmt.Sprintf("concurrent update detected during %s", operation),
	}
}

// ErrDatabaseError wraps database errors.
func ErrDatabaseError(operation string, err error) *LoyaltyError {
	return &LoyaltyError{
		Code:    ErrCodeDatabaseError,
		Message: fmt.Sprintf("database error during %s", operation),
		Err:     err,
	}
}

// ErrTransactionFailed wraps transaction begin/commit failures.
func ErrTransactionFailed(operation string, err error) *LoyaltyError {
	return &LoyaltyError{
		Code:    ErrCodeTransactionFailed,
		Message: fmt.Sprintf("transaction failed during %s", operation),
		Err:     err,
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(reason string) *LoyaltyError {
	return &LoyaltyError{
		Code:    ErrCodeConfigInvalid,
		Message: fmt.Sprintf("invalid configuration: %s", reason),
	}
}

// ErrBadgeGrantFailed wraps a failed badge grant. Best-effort: logged by the
// coordinator, never rolls back the points ledger.
func ErrBadgeGrantFailed(badgeID string, err error) *LoyaltyError {
	return &LoyaltyError{
		Code:    ErrCodeBadgeGrantFailed,
		Message: fmt.Sprintf("failed to grant badge: %s", badgeID),
		Err:     err,
	}
}

// ErrValidationFailed returns a validation error.
func ErrValidationFailed(field, reason string) *LoyaltyError {
	return &LoyaltyError{
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
	}
}

// ErrLedgerCorrupt returns an error when ledger replay does not reproduce
// the cached balance.
func ErrLedgerCorrupt(userID, reason string) *LoyaltyError {
	return &LoyaltyError{
		Code:    ErrCodeLedgerCorrupt,
		Message: fmt.Sprintf("ledger integrity violation for user %s: %s", userID, reason),
	}
}
