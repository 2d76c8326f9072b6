package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestLoyaltyError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *LoyaltyError
		wantMsg string
	}{
		{
			name: "error without wrapped error",
			err: &LoyaltyError{
				Code:    ErrCodeQuestNotFound,
				Message: "quest not found: test-quest",
			},
			wantMsg: "QUEST_NOT_FOUND: quest not found: test-quest",
		},
		{
			name: "error with wrapped error",
			err: &LoyaltyError{
				Code:    ErrCodeDatabaseError,
				Message: "database error during append",
				Err:     errors.New("connection timeout"),
			},
			wantMsg: "DATABASE_ERROR: database error during append: connection timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.wantMsg {
				t.Errorf("LoyaltyError.Error() = %v, want %v", got, tt.wantMsg)
			}
		})
	}
}

func TestLoyaltyError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	err := &LoyaltyError{
		Code:    ErrCodeDatabaseError,
		Message: "test error",
		Err:     originalErr,
	}

	if unwrapped := err.Unwrap(); unwrapped != originalErr {
		t.Errorf("Unwrap() returned %v, want %v", unwrapped, originalErr)
	}
}

func TestErrQuestNotFound(t *testing.T) {
	questID := "quest-first-booking"
	err := ErrQuestNotFound(questID)

	if err.Code != ErrCodeQuestNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeQuestNotFound)
	}
	if !strings.Contains(err.Message, questID) {
		t.Errorf("Message should contain quest ID %v, got %v", questID, err.Message)
	}
}

func TestErrUserNotFound(t *testing.T) {
	userID := "user-9042"
	err := ErrUserNotFound(userID)

	if err.Code != ErrCodeUserNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeUserNotFound)
	}
	if !strings.Contains(err.Message, userID) {
		t.Errorf("Message should contain user ID %v, got %v", userID, err.Message)
	}
}

func TestErrInsufficientBalance(t *testing.T) {
	err := ErrInsufficientBalance("user-1", 30, 100)

	if err.Code != ErrCodeInsufficientBalance {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInsufficientBalance)
	}
	if !strings.Contains(err.Message, "have 30") || !strings.Contains(err.Message, "debit 100") {
		t.Errorf("Message should contain balances, got %v", err.Message)
	}
}

func TestErrConflict(t *testing.T) {
	err := ErrConflict("credit points")

	if err.Code != ErrCodeConflict {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeConflict)
	}
	if !IsConflict(err) {
		t.Error("IsConflict() = false, want true")
	}
	if !IsConflict(fmt.Errorf("retrying: %w", err)) {
		t.Error("IsConflict() should see through wrapping")
	}
}

func TestErrDatabaseError(t *testing.T) {
	operation := "append transaction"
	originalErr := errors.New("connection lost")
	err := ErrDatabaseError(operation, originalErr)

	if err.Code != ErrCodeDatabaseError {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeDatabaseError)
	}
	if !strings.Contains(err.Message, operation) {
		t.Errorf("Message should contain operation %v, got %v", operation, err.Message)
	}
	if err.Err != originalErr {
		t.Errorf("Wrapped error = %v, want %v", err.Err, originalErr)
	}
}

func TestErrConfigInvalid(t *testing.T) {
	reason := "duplicate quest IDs"
	err := ErrConfigInvalid(reason)

	if err.Code != ErrCodeConfigInvalid {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeConfigInvalid)
	}
	if !strings.Contains(err.Message, reason) {
		t.Errorf("Message should contain reason %v, got %v", reason, err.Message)
	}
	if !IsConfigInvalid(err) {
		t.Error("IsConfigInvalid() = false, want true")
	}
}

func TestErrBadgeGrantFailed(t *testing.T) {
	badgeID := "badge-globetrotter"
	originalErr := errors.New("store unavailable")
	err := ErrBadgeGrantFailed(badgeID, originalErr)

	if err.Code != ErrCodeBadgeGrantFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeBadgeGrantFailed)
	}
	if !strings.Contains(err.Message, badgeID) {
		t.Errorf("Message should contain badge ID %v, got %v", badgeID, err.Message)
	}
	if err.Err != originalErr {
		t.Errorf("Wrapped error = %v, want %v", err.Err, originalErr)
	}
}

func TestErrValidationFailed(t *testing.T) {
	field := "target_count"
	reason := "must be positive"
	err := ErrValidationFailed(field, reason)

	if err.Code != ErrCodeValidationFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeValidationFailed)
	}
	if !strings.Contains(err.Message, field) {
		t.Errorf("Message should contain field %v, got %v", field, err.Message)
	}
	if !strings.Contains(err.Message, reason) {
		t.Errorf("Message should contain reason %v, got %v", reason, err.Message)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "user not found", err: ErrUserNotFound("u1"), want: true},
		{name: "quest not found", err: ErrQuestNotFound("q1"), want: true},
		{name: "wrapped not found", err: fmt.Errorf("drop: %w", ErrUserNotFound("u1")), want: true},
		{name: "conflict is not not-found", err: ErrConflict("credit"), want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLoyaltyError(t *testing.T) {
	code := "TEST_CODE"
	message := "test message"
	originalErr := errors.New("wrapped error")

	err := NewLoyaltyError(code, message, originalErr)

	if err.Code != code {
		t.Errorf("Code = %v, want %v", err.Code, code)
	}
	if err.Message != message {
		t.Errorf("Message = %v, want %v", err.Message, message)
	}
	if err.Err != originalErr {
		t.Errorf("Wrapped error = %v, want %v", err.Err, originalErr)
	}
}
