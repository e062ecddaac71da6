package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/repository"
	"github.com/gigmarket/backend/internal/workflow"
)

// TaskEngine is the workflow surface the task endpoints drive.
type TaskEngine interface {
	CreateTask(ctx context.Context, authorID uuid.UUID, in workflow.CreateTaskInput) (*models.Task, error)
	ClaimTask(ctx context.Context, actorID, taskID uuid.UUID) (*models.Task, error)
	SubmitTask(ctx context.Context, actorID, taskID uuid.UUID, in workflow.SubmitInput) (*models.Task, error)
	ApproveTask(ctx context.Context, actorID, taskID uuid.UUID, rating int, review string) (*workflow.ApproveResult, error)
	CancelTask(ctx context.Context, actorID, taskID uuid.UUID) (*models.Task, error)
	RequestCancellation(ctx context.Context, actorID, taskID uuid.UUID, reason string) (*workflow.CancellationResult, error)
	ApproveCancellation(ctx context.Context, actorID, taskID uuid.UUID, refundPct int) (*models.Task, error)
	RejectCancellation(ctx context.Context, actorID, taskID uuid.UUID) (*models.Task, error)
	OpenDispute(ctx context.Context, actorID, taskID uuid.UUID, in workflow.OpenDisputeInput) (*models.Dispute, error)
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

type TaskLister interface {
	List(ctx context.Context, f repository.TaskFilter) ([]*models.Task, error)
}

// TaskHandler serves /api/v1/tasks endpoints.
type TaskHandler struct {
	Engine TaskEngine
	Tasks  TaskLister
	Logger *slog.Logger
}

// --- POST /tasks ---

type createTaskRequest struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

// CreateTask handles POST /tasks. Posting a job escrows its price from the author.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	var req createTaskRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.Engine.CreateTask(r.Context(), u.ID, workflow.CreateTaskInput(req))
	if err != nil {
		writeDomainError(w, h.Logger, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// --- GET /tasks ---

// ListTasks handles GET /tasks?type=&status=&category=&mine=author|assignee&limit=.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := repository.TaskFilter{
		Type:     q.Get("type"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Limit:    queryLimit(r, 50, 200),
	}
	switch q.Get("mine") {
	case "author":
		f.AuthorID = &u.ID
	case "assignee":
		f.AssigneeID = &u.ID
	}
	tasks, err := h.Tasks.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, h.Logger, "list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// --- GET /tasks/{id} ---

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.Engine.GetTask(r.Context(), taskID)
	if err != nil {
		writeDomainError(w, h.Logger, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /tasks/{id}/claim ---

// ClaimTask handles POST /tasks/{id}/claim. For a gig the response is the new order task.
func (h *TaskHandler) ClaimTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "claim task", func(ctx context.Context, actorID, taskID uuid.UUID) (interface{}, error) {
		return h.Engine.ClaimTask(ctx, actorID, taskID)
	})
}

// --- POST /tasks/{id}/submit ---

type submitRequest struct {
	SubmissionRef  string `json:"submission_ref"`
	SubmissionName string `json:"submission_name"`
}

func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}
	h.transition(w, r, "submit task", func(ctx context.Context, actorID, taskID uuid.UUID) (interface{}, error) {
		return h.Engine.SubmitTask(ctx, actorID, taskID, workflow.SubmitInput{Ref: req.SubmissionRef, Name: req.SubmissionName})
	})
}

// --- POST /tasks/{id}/approve ---

type approveRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (h *TaskHandler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !decode(w, r, &req) {
		return
	}
	h.transition(w, r, "approve task", func(ctx context.Context, actorID, taskID uuid.UUID) (interface{}, error) {
		return h.Engine.ApproveTask(ctx, actorID, taskID, req.Rating, req.Review)
	})
}

// --- POST /tasks/{id}/cancel ---

// CancelTask handles POST /tasks/{id}/cancel: the author withdraws a task nobody has taken.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel task", func(ctx context.Context, actorID, taskID uuid.UUID) (interface{}, error) {
		return h.Engine.CancelTask(ctx, actorID, taskID)
	})
}

// --- POST /tasks/{id}/cancellation ---

type cancellationRequest struct {
	Reason string `json:"reason"`
}

func (h *TaskHandler) RequestCancellation(w http.ResponseWriter, r *http.Request) {
	var req cancellationRequest
	if !decode(w, r, &req) {
		return
	}
	h.transition(w, r, "request cancellation", func(ctx context.Context, actorID, taskID uuid.UUID) (interface{}, error) {
		return h.Engine.RequestCancellation(ctx, actorID, taskID, req.Reason)
	})
}

type approveCancellationRequest struct {
	RefundPercentage *int `json:"refund_percentage"`
}

// ApproveCancellation handles POST /tasks/{id}/cancellation/approve. The refund
// percentage defaults to 100.
func (h *TaskHandler) ApproveCancellation(w http.ResponseWriter, r *http.Request) {
	var req approveCancellationRequest
	if !decode(w, r, &req) {
		return
	}
	pct := 100
	if req.RefundPercentage != nil {
		pct = *req.RefundPercentage
	}
	h.transition(w, r, "approve cancellation", func(ctx context.Context, actorID, taskID uuid.UUID) (interface{}, error) {
		return h.Engine.ApproveCancellation(ctx, actorID, taskID, pct)
	})
}

func (h *TaskHandler) RejectCancellation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reject cancellation", func(ctx context.Context, actorID, taskID uuid.UUID) (interface{}, error) {
		return h.Engine.RejectCancellation(ctx, actorID, taskID)
	})
}

// --- POST /tasks/{id}/dispute ---

type openDisputeRequest struct {
	Reason      string   `json:"reason"`
	Description string   `json:"description"`
	Attachments []string `json:"attachments"`
}

func (h *TaskHandler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	var req openDisputeRequest
	if !decode(w, r, &req) {
		return
	}
	u, ok := actor(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.Engine.OpenDispute(r.Context(), u.ID, taskID, workflow.OpenDisputeInput(req))
	if err != nil {
		writeDomainError(w, h.Logger, "open dispute", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// transition resolves the actor and task id, runs fn and writes its result.
func (h *TaskHandler) transition(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, actorID, taskID uuid.UUID) (interface{}, error)) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := fn(r.Context(), u.ID, taskID)
	if err != nil {
		writeDomainError(w, h.Logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
