package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/models"
)

type NotificationStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// NotificationHandler serves the caller's inbox under /api/v1/notifications.
type NotificationHandler struct {
	Store  NotificationStore
	Logger *slog.Logger
}

// List handles GET /notifications?limit=.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	list, err := h.Store.ListByUser(r.Context(), u.ID, queryLimit(r, 50, 200))
	if err != nil {
		writeDomainError(w, h.Logger, "list notifications", err)
		return
	}
	if list == nil {
		list = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkRead handles POST /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Store.MarkRead(r.Context(), u.ID, id); err != nil {
		writeDomainError(w, h.Logger, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.Store.MarkAllRead(r.Context(), u.ID); err != nil {
		writeDomainError(w, h.Logger, "mark all read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnreadCount handles GET /notifications/unread-count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	n, err := h.Store.CountUnread(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, h.Logger, "unread count", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}
