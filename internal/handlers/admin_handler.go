package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/moderation"
)

type ModerationService interface {
	Ban(ctx context.Context, adminID, userID uuid.UUID, reason string) (*models.User, error)
	Unban(ctx context.Context, adminID, userID uuid.UUID) (*models.User, error)
	Verify(ctx context.Context, adminID, userID uuid.UUID) (*models.User, error)
	Unverify(ctx context.Context, adminID, userID uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, adminID uuid.UUID, f moderation.UserFilter) ([]*models.User, error)
	Stats(ctx context.Context, adminID uuid.UUID) (*moderation.Stats, error)
}

type TaskRemover interface {
	RemoveTask(ctx context.Context, adminID, taskID uuid.UUID) error
}

type RevenueWithdrawer interface {
	WithdrawRevenue(ctx context.Context, adminID uuid.UUID) (int64, error)
}

// AdminHandler serves /api/v1/admin. Routes are mounted behind middleware.RequireAdmin;
// the services check the role again.
type AdminHandler struct {
	Moderation ModerationService
	Tasks      TaskRemover
	Revenue    RevenueWithdrawer
	Logger     *slog.Logger
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	st, err := h.Moderation.Stats(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, h.Logger, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListUsers handles GET /admin/users?role=&status=&search=.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	users, err := h.Moderation.ListUsers(r.Context(), u.ID, moderation.UserFilter{
		Role:   q.Get("role"),
		Status: q.Get("status"),
		Search: q.Get("search"),
	})
	if err != nil {
		writeDomainError(w, h.Logger, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type banRequest struct {
	Reason string `json:"reason"`
}

// Ban handles POST /admin/users/{id}/ban.
func (h *AdminHandler) Ban(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if !decode(w, r, &req) {
		return
	}
	h.moderate(w, r, "ban user", func(ctx context.Context, adminID, userID uuid.UUID) (*models.User, error) {
		return h.Moderation.Ban(ctx, adminID, userID, req.Reason)
	})
}

func (h *AdminHandler) Unban(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "unban user", h.Moderation.Unban)
}

func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "verify user", h.Moderation.Verify)
}

func (h *AdminHandler) Unverify(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "unverify user", h.Moderation.Unverify)
}

// RemoveTask handles DELETE /admin/tasks/{id}.
func (h *AdminHandler) RemoveTask(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Tasks.RemoveTask(r.Context(), u.ID, taskID); err != nil {
		writeDomainError(w, h.Logger, "remove task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WithdrawRevenue handles POST /admin/revenue/withdraw.
func (h *AdminHandler) WithdrawRevenue(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	amount, err := h.Revenue.WithdrawRevenue(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, h.Logger, "withdraw revenue", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"withdrawn": amount})
}

func (h *AdminHandler) moderate(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, adminID, userID uuid.UUID) (*models.User, error)) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	updated, err := fn(r.Context(), u.ID, userID)
	if err != nil {
		writeDomainError(w, h.Logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
