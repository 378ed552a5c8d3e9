package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

// Sink is a mock implementation of ports.NotificationSink that records
// every notification.
type Sink struct {
	mu            sync.Mutex
	notifications []entities.Notification
}

// Notify records n.
func (m *Sink) Notify(ctx context.Context, n entities.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
}

// Notifications returns the recorded notifications.
func (m *Sink) Notifications() []entities.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.Notification(nil), m.notifications...)
}

// Kinds returns the kinds of the recorded notifications in order.
func (m *Sink) Kinds() []entities.NotificationKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]entities.NotificationKind, len(m.notifications))
	for i, n := range m.notifications {
		kinds[i] = n.Kind
	}
	return kinds
}

// Invalidator is a mock implementation of ports.CacheInvalidator.
type Invalidator struct {
	Err error

	mu     sync.Mutex
	events []entities.CommitEvent
}

// Invalidate records the event and returns Err.
func (m *Invalidator) Invalidate(ctx context.Context, event entities.CommitEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.Err
}

// Events returns the recorded events.
func (m *Invalidator) Events() []entities.CommitEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.CommitEvent(nil), m.events...)
}

// Identity is a mock implementation of ports.ActorIdentity returning a
// fixed actor.
type Identity struct {
	Actor string
	Err   error
}

// ActorID returns the configured actor.
func (m Identity) ActorID(ctx context.Context) (string, error) {
	return m.Actor, m.Err
}
