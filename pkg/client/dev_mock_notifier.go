package client

import (
	"context"
	"log"
)

// DevMockNotifier is a simple mock implementation for local development.
// Unlike MockNotifier (testify/mock), this doesn't require explicit setup
// and always succeeds with logged output.
//
// Use this for local development when NOTIFIER_MODE=mock.
// For tests, use MockNotifier instead.
type DevMockNotifier struct{}

// Publish logs the event and returns success.
func (d *DevMockNotifier) Publish(ctx context.Context, event *Event) error {
	log.Printf("[DevMock] Publish: id=%s, type=%s, userID=%s, questID=%s, points=%d, tier=%s",
		event.ID, event.Type, event.UserID, event.QuestID, event.Points, event.Tier)
	return nil
}

// NewDevMockNotifier creates a new development mock notifier.
func NewDevMockNotifier() *DevMockNotifier {
	return &DevMockNotifier{}
}
