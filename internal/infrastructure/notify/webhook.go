package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/ports"
)

// Webhook posts notifications as JSON to a URL. Delivery happens in the
// background; failures are logged and dropped.
type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger
	wg     sync.WaitGroup
}

var _ ports.NotificationSink = (*Webhook)(nil)

// NewWebhook creates a webhook sink with the given request timeout.
func NewWebhook(url string, timeout time.Duration, logger *slog.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify schedules delivery and returns immediately.
func (w *Webhook) Notify(ctx context.Context, n entities.Notification) {
	ctx = context.WithoutCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.send(ctx, n); err != nil {
			w.logger.WarnContext(ctx, "delivering webhook notification",
				"kind", n.Kind,
				"knowledge_base", n.KnowledgeBaseID,
				"error", err,
			)
		}
	}()
}

// Wait blocks until every scheduled delivery has finished.
func (w *Webhook) Wait() {
	w.wg.Wait()
}

func (w *Webhook) send(ctx context.Context, n entities.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
