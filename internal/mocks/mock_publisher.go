package mocks

import (
	"context"
	"sync"

	"github.com/cinetick/cinetick/internal/queue"
)

// MockPublisher records the events that would have been published.
type MockPublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
}

func (m *MockPublisher) PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)

	return nil
}

func (m *MockPublisher) Events() []queue.BookingConfirmedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]queue.BookingConfirmedEvent, len(m.events))
	copy(events, m.events)
	return events
}
