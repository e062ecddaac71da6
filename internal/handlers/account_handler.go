package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/models"
)

// AccountService is the wallet and saved-task surface of account.Service.
type AccountService interface {
	TopUp(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	BuyPro(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Transactions(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
	ToggleSaved(ctx context.Context, userID, taskID uuid.UUID) (bool, error)
	SavedTasks(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AccountHandler serves /api/v1/users, /api/v1/wallet and saved tasks.
type AccountHandler struct {
	Accounts AccountService
	Users    UserReader
	Logger   *slog.Logger
}

// PublicProfile is what other users may see about an account.
type PublicProfile struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	Rating        float64   `json:"rating"`
	RatingCount   int       `json:"rating_count"`
	CompletedJobs int       `json:"completed_jobs"`
	XP            int       `json:"xp"`
	Level         int       `json:"level"`
	IsPro         bool      `json:"is_pro"`
	IsVerified    bool      `json:"is_verified"`
}

func profileOf(u *models.User) PublicProfile {
	return PublicProfile{
		ID:            u.ID,
		Name:          u.Name,
		Role:          u.Role,
		Rating:        u.Rating(),
		RatingCount:   u.RatingCount,
		CompletedJobs: u.CompletedJobs,
		XP:            u.XP,
		Level:         u.Level,
		IsPro:         u.IsPro,
		IsVerified:    u.IsVerified,
	}
}

// Me handles GET /users/me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Profile handles GET /users/{id}.
func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.Logger, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profileOf(u))
}

// BuyPro handles POST /users/me/pro.
func (h *AccountHandler) BuyPro(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	updated, err := h.Accounts.BuyPro(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, h.Logger, "buy pro", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

// TopUp handles POST /wallet/topup.
func (h *AccountHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "top up", h.Accounts.TopUp)
}

// Withdraw handles POST /wallet/withdraw.
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "withdraw", h.Accounts.Withdraw)
}

func (h *AccountHandler) move(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	balance, err := fn(r.Context(), u.ID, req.Amount)
	if err != nil {
		writeDomainError(w, h.Logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

// Transactions handles GET /wallet/transactions.
func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	list, err := h.Accounts.Transactions(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, h.Logger, "list transactions", err)
		return
	}
	if list == nil {
		list = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ToggleSaved handles POST /tasks/{id}/save.
func (h *AccountHandler) ToggleSaved(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	saved, err := h.Accounts.ToggleSaved(r.Context(), u.ID, taskID)
	if err != nil {
		writeDomainError(w, h.Logger, "toggle saved", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": saved})
}

// SavedTasks handles GET /tasks/saved.
func (h *AccountHandler) SavedTasks(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	tasks, err := h.Accounts.SavedTasks(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, h.Logger, "saved tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}
