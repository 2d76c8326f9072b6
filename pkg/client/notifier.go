package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types published after a ledger commit.
const (
	EventQuestCompleted = "quest_completed"
	EventTierChanged    = "tier_changed"
	EventBadgeGranted   = "badge_granted"
)

// Event is a reward notification published to downstream consumers
// (push gateway, CRM, analytics). Events are emitted after the owning
// transaction commits and are best-effort: a failed publish never rolls
// back the ledger.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	UserID     string         `json:"user_id"`
	QuestID    string         `json:"quest_id,omitempty"`
	BadgeID    string         `json:"badge_id,omitempty"`
	Points     int64          `json:"points,omitempty"`
	Tier       string         `json:"tier,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewEvent creates an event with a fresh unique ID.
func NewEvent(eventType, userID string) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

// Notifier publishes reward events to an external delivery channel.
//
// Implementations must be safe for concurrent use. Publish failures are
// logged and dropped by callers; implementations should apply their own
// retry policy for transient transport errors.
type Notifier interface {
	// Publish delivers a single event.
	// Returns error if delivery fails after the implementation's retries.
	Publish(ctx context.Context, event *Event) error
}

// TransportError represents a delivery failure from the notification
// transport, carrying the status code for retry classification.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	return e.Message
}

// HTTPStatusCode returns the status code from the transport response.
func (e *TransportError) HTTPStatusCode() int {
	return e.StatusCode
}

// HTTPStatusCodeError is an interface for errors that include HTTP status codes.
type HTTPStatusCodeError interface {
	error
	HTTPStatusCode() int
}

// IsRetryableHTTPStatus determines if an HTTP status code should be retried.
//
// Non-retryable status codes (4xx client errors):
//   - 400 Bad Request - malformed event
//   - 401 Unauthorized - authentication failed
//   - 403 Forbidden - insufficient permissions
//   - 404 Not Found - channel doesn't exist
//   - 409 Conflict - duplicate event ID
//   - 422 Unprocessable Entity - validation failed
//
// Retryable status codes:
//   - 408 Request Timeout
//   - 429 Too Many Requests
//   - 500 Internal Server Error
//   - 502 Bad Gateway
//   - 503 Service Unavailable
//   - 504 Gateway Timeout
func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 400, 401, 403, 404, 409, 422:
		return false
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		if statusCode >= 400 && statusCode < 500 {
			return false
		}
		return true
	}
}

// IsRetryableError determines if a publish error should be retried.
//
// Classification strategy:
// 1. If error implements HTTPStatusCodeError, check status code (most reliable)
// 2. Fallback to error message pattern matching (for generic errors)
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var httpErr HTTPStatusCodeError
	if errors.As(err, &httpErr) {
		return IsRetryableHTTPStatus(httpErr.HTTPStatusCode())
	}

	errMsg := strings.ToLower(err.Error())

	nonRetryablePatterns := []string{
		"bad request",
		"invalid argument",
		"not found",
		"forbidden",
		"unauthorized",
		"authentication failed",
		"permission denied",
		"duplicate event",
	}

	for _, pattern := range nonRetryablePatterns {
		if strings.Contains(errMsg, pattern) {
			return false
		}
	}

	// All other errors are considered retryable
	// (network timeouts, 502/503, connection refused, etc.)
	return true
}
