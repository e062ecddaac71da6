package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/telemetry"
)

// Sink delivers a single event. Implementations may be synchronous or enqueue work.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Emitter hands events to a Sink after the workflow transaction has committed.
// Delivery failures are logged and counted, never returned.
type Emitter struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

func NewEmitter(sink Sink, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{sink: sink, logger: logger, now: time.Now}
}

// Emit publishes each event in order. A nil Emitter or nil sink drops events silently.
func (e *Emitter) Emit(ctx context.Context, events ...Event) {
	if e == nil || e.sink == nil {
		return
	}
	for _, ev := range events {
		if ev.UserID == uuid.Nil {
			continue
		}
		if !ev.Type.Valid() {
			e.logger.Warn("dropping notification with unknown type", "type", ev.Type, "user_id", ev.UserID)
			telemetry.NotificationsDropped.Inc()
			continue
		}
		if ev.ID == uuid.Nil {
			ev.ID = uuid.New()
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = e.now().UTC()
		}
		if err := e.sink.Publish(ctx, ev); err != nil {
			e.logger.Warn("notification delivery failed", "type", ev.Type, "user_id", ev.UserID, "error", err)
			telemetry.NotificationsDropped.Inc()
			continue
		}
		telemetry.NotificationsEmitted.WithLabelValues(string(ev.Type)).Inc()
	}
}
