package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/models"
)

// NotificationStore persists inbox entries. Create must be idempotent on the notification id.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// RealtimePublisher pushes a payload to a user's live connections.
type RealtimePublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, payload []byte) error
}

// Deliverer persists an event to the inbox and then pushes it to the realtime channel.
// It is a Sink in its own right for synchronous delivery.
type Deliverer struct {
	Store    NotificationStore
	Realtime RealtimePublisher
}

func (d *Deliverer) Publish(ctx context.Context, ev Event) error {
	n, err := ev.Notification()
	if err != nil {
		return err
	}
	if err := d.Store.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	if d.Realtime == nil {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := d.Realtime.Publish(ctx, ev.UserID, payload); err != nil {
		return fmt.Errorf("realtime publish: %w", err)
	}
	return nil
}
