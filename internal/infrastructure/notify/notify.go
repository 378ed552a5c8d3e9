// Package notify provides ports.NotificationSink implementations.
package notify

import (
	"context"
	"log/slog"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/ports"
)

// Log writes notifications to a structured logger.
type Log struct {
	logger *slog.Logger
}

var _ ports.NotificationSink = (*Log)(nil)

// NewLog creates a sink that logs at info level.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Notify logs the notification.
func (l *Log) Notify(ctx context.Context, n entities.Notification) {
	l.logger.InfoContext(ctx, "notification",
		"kind", n.Kind,
		"knowledge_base", n.KnowledgeBaseID,
		"merge_request", n.MergeRequestID,
		"version", n.Version,
		"actor", n.ActorID,
	)
}

// Multi fans a notification out to several sinks.
type Multi []ports.NotificationSink

// Notify forwards n to every sink.
func (m Multi) Notify(ctx context.Context, n entities.Notification) {
	for _, s := range m {
		s.Notify(ctx, n)
	}
}

// Discard drops every notification.
type Discard struct{}

// Notify does nothing.
func (Discard) Notify(context.Context, entities.Notification) {}
