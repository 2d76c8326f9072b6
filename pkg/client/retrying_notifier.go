package client

import (
	"context"
	"log/slog"
	"time"
)

// RetryingNotifier wraps a Notifier with bounded retries for transient
// transport failures. Non-retryable errors (4xx classification, duplicate
// events) are returned immediately; retryable ones are re-attempted with
// exponential backoff until the attempt budget runs out.
type RetryingNotifier struct {
	next     Notifier
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// NewRetryingNotifier creates a retrying decorator over next. Non-positive
// attempts defaults to 3; non-positive backoff defaults to 100ms.
func NewRetryingNotifier(next Notifier, attempts int, backoff time.Duration, logger *slog.Logger) *RetryingNotifier {
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return &RetryingNotifier{
		next:     next,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger,
	}
}

// Publish delivers the event, retrying transient failures. The backoff
// doubles after each failed attempt; the context cancels waits.
func (n *RetryingNotifier) Publish(ctx context.Context, event *Event) error {
	var lastErr error

	for attempt := 0; attempt < n.attempts; attempt++ {
		if attempt > 0 {
			wait := n.backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		err := n.next.Publish(ctx, event)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			return err
		}

		n.logger.Warn("Retrying event publish",
			"event_id", event.ID,
			"event_type", event.Type,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return lastErr
}
