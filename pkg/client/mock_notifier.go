package client

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of Notifier for testing.
// It uses testify/mock to allow test assertions on method calls.
type MockNotifier struct {
	mock.Mock
}

// Publish mocks event delivery.
func (m *MockNotifier) Publish(ctx context.Context, event *Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}
