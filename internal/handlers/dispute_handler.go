package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/workflow"
)

// DisputeEngine is the arbitration surface of the workflow engine.
type DisputeEngine interface {
	ReviewDispute(ctx context.Context, adminID, disputeID uuid.UUID) (*models.Dispute, error)
	ResolveDispute(ctx context.Context, adminID, disputeID uuid.UUID, in workflow.ResolveDisputeInput) (*models.Dispute, error)
	RejectDispute(ctx context.Context, adminID, disputeID uuid.UUID, resolution string) (*models.Dispute, error)
	GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
}

type DisputeLister interface {
	List(ctx context.Context, status string) ([]*models.Dispute, error)
}

// DisputeHandler serves /api/v1/disputes and /api/v1/admin/disputes.
type DisputeHandler struct {
	Engine   DisputeEngine
	Disputes DisputeLister
	Logger   *slog.Logger
}

// ListMine handles GET /disputes: disputes the caller opened or is named in.
func (h *DisputeHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	all, err := h.Disputes.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, h.Logger, "list disputes", err)
		return
	}
	mine := make([]*models.Dispute, 0)
	for _, d := range all {
		if d.OpenedBy == u.ID || d.Against == u.ID {
			mine = append(mine, d)
		}
	}
	writeJSON(w, http.StatusOK, mine)
}

// ListAll handles GET /admin/disputes?status=.
func (h *DisputeHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.Disputes.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, h.Logger, "list disputes", err)
		return
	}
	if all == nil {
		all = []*models.Dispute{}
	}
	writeJSON(w, http.StatusOK, all)
}

// Get handles GET /disputes/{id}. Only the parties and admins may read a dispute.
func (h *DisputeHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.Engine.GetDispute(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.Logger, "get dispute", err)
		return
	}
	if !u.IsAdmin() && d.OpenedBy != u.ID && d.Against != u.ID {
		writeError(w, http.StatusForbidden, "not a party to this dispute")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Review handles POST /admin/disputes/{id}/review.
func (h *DisputeHandler) Review(w http.ResponseWriter, r *http.Request) {
	h.arbitrate(w, r, "review dispute", func(ctx context.Context, adminID, id uuid.UUID) (*models.Dispute, error) {
		return h.Engine.ReviewDispute(ctx, adminID, id)
	})
}

type resolveDisputeRequest struct {
	Resolution       string `json:"resolution"`
	RefundToClient   bool   `json:"refund_to_client"`
	RefundPercentage *int   `json:"refund_percentage"`
}

// Resolve handles POST /admin/disputes/{id}/resolve.
func (h *DisputeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveDisputeRequest
	if !decode(w, r, &req) {
		return
	}
	h.arbitrate(w, r, "resolve dispute", func(ctx context.Context, adminID, id uuid.UUID) (*models.Dispute, error) {
		return h.Engine.ResolveDispute(ctx, adminID, id, workflow.ResolveDisputeInput(req))
	})
}

type rejectDisputeRequest struct {
	Resolution string `json:"resolution"`
}

// Reject handles POST /admin/disputes/{id}/reject.
func (h *DisputeHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectDisputeRequest
	if !decode(w, r, &req) {
		return
	}
	h.arbitrate(w, r, "reject dispute", func(ctx context.Context, adminID, id uuid.UUID) (*models.Dispute, error) {
		return h.Engine.RejectDispute(ctx, adminID, id, req.Resolution)
	})
}

func (h *DisputeHandler) arbitrate(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, adminID, id uuid.UUID) (*models.Dispute, error)) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := fn(r.Context(), u.ID, id)
	if err != nil {
		writeDomainError(w, h.Logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
