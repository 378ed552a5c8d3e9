package ports

import (
	"context"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

// NotificationSink is informed of lifecycle events. Notify must not block
// the caller and has no way to fail it.
type NotificationSink interface {
	Notify(ctx context.Context, n entities.Notification)
}

// CacheInvalidator keeps a read-optimized cache in step with live state. It
// is called synchronously after every committed version.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, event entities.CommitEvent) error
}

// ActorIdentity resolves the id of the authenticated caller.
type ActorIdentity interface {
	ActorID(ctx context.Context) (string, error)
}
