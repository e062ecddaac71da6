package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/ledger"
	"github.com/gigmarket/backend/internal/models"
)

type CreateTaskInput struct {
	Type        string
	Title       string
	Category    string
	Description string
	Price       int64
}

type SubmitInput struct {
	Ref  string
	Name string
}

type ApproveResult struct {
	Task   *models.Task `json:"task"`
	Worker *models.User `json:"worker"`
}

// CreateTask publishes a job or gig. Posting a job escrows its price from the author.
func (e *Engine) CreateTask(ctx context.Context, authorID uuid.UUID, in CreateTaskInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be > 0", ErrInvalidInput)
	}

	var task *models.Task
	err := e.run(ctx, "create_task", func(u *unit) error {
		users, err := e.lockUsers(ctx, u, authorID)
		if err != nil {
			return err
		}
		if err := canCreate(users[authorID], in.Type); err != nil {
			return err
		}
		task = &models.Task{
			ID:                 uuid.New(),
			Type:               in.Type,
			Title:              in.Title,
			Category:           in.Category,
			Description:        in.Description,
			Price:              in.Price,
			AuthorID:           authorID,
			Status:             models.TaskStatusOpen,
			CancellationStatus: models.CancellationNone,
			DisputeStatus:      models.DisputeNone,
		}
		if task.Type == models.TaskTypeJob {
			if _, err := e.debit(ctx, u, ledger.Entry{
				UserID: authorID, TaskID: uuidPtr(task.ID), Type: models.TxPayJob, Amount: task.Price,
				Description: "Escrow for job: " + task.Title,
			}); err != nil {
				return err
			}
		}
		return e.Tasks.Create(ctx, u.tx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ClaimTask moves an open task into progress. Taking a job assigns the freelancer; ordering
// a gig creates a derived order task funded by the client while the listing stays open.
// The returned task is the one now in progress.
func (e *Engine) ClaimTask(ctx context.Context, actorID, taskID uuid.UUID) (*models.Task, error) {
	var result *models.Task
	err := e.run(ctx, "claim_task", func(u *unit) error {
		t, users, err := e.lockTask(ctx, u, taskID, actorID)
		if err != nil {
			return err
		}
		if err := canClaim(t, users[actorID]); err != nil {
			return err
		}

		if t.Type == models.TaskTypeJob {
			t.AssigneeID = uuidPtr(actorID)
			t.Status = models.TaskStatusInProgress
			if err := e.Tasks.Update(ctx, u.tx, t); err != nil {
				return err
			}
			result = t
			u.emit(assignedEvents(t)...)
			return nil
		}

		order := &models.Task{
			ID:                 uuid.New(),
			Type:               models.TaskTypeGig,
			Title:              t.Title,
			Category:           t.Category,
			Description:        t.Description,
			Price:              t.Price,
			AuthorID:           t.AuthorID,
			AssigneeID:         uuidPtr(actorID),
			ParentTaskID:       uuidPtr(t.ID),
			Status:             models.TaskStatusInProgress,
			CancellationStatus: models.CancellationNone,
			DisputeStatus:      models.DisputeNone,
		}
		if _, err := e.debit(ctx, u, ledger.Entry{
			UserID: actorID, TaskID: uuidPtr(order.ID), Type: models.TxPayGig, Amount: order.Price,
			Description: "Order for gig: " + order.Title,
		}); err != nil {
			return err
		}
		if err := e.Tasks.Create(ctx, u.tx, order); err != nil {
			return err
		}
		result = order
		u.emit(assignedEvents(order)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitTask hands the work to the payer for review.
func (e *Engine) SubmitTask(ctx context.Context, actorID, taskID uuid.UUID, in SubmitInput) (*models.Task, error) {
	if strings.TrimSpace(in.Ref) == "" {
		return nil, fmt.Errorf("%w: submission reference is required", ErrInvalidInput)
	}
	var task *models.Task
	err := e.run(ctx, "submit_task", func(u *unit) error {
		t, _, err := e.lockTask(ctx, u, taskID, actorID)
		if err != nil {
			return err
		}
		if err := canSubmit(t, actorID); err != nil {
			return err
		}
		now := e.now()
		t.SubmissionRef = in.Ref
		t.SubmissionName = in.Name
		t.SubmissionAt = &now
		t.Status = models.TaskStatusReview
		if err := e.Tasks.Update(ctx, u.tx, t); err != nil {
			return err
		}
		task = t
		u.emit(submittedEvent(t))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ApproveTask completes a reviewed task: the worker is paid price minus commission, the
// platform collects the commission and the worker's reputation is updated.
func (e *Engine) ApproveTask(ctx context.Context, actorID, taskID uuid.UUID, rating int, review string) (*ApproveResult, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	var res *ApproveResult
	err := e.run(ctx, "approve_task", func(u *unit) error {
		t, users, err := e.lockTask(ctx, u, taskID, actorID, models.PlatformAccountID)
		if err != nil {
			return err
		}
		if err := canApprove(t, actorID); err != nil {
			return err
		}
		worker, ok := users[t.WorkerID()]
		if !ok {
			return fmt.Errorf("worker %s: %w", t.WorkerID(), ErrNotFound)
		}

		payout, fee := e.Commission.Split(t.Price, worker.IsPro)
		if payout > 0 {
			rec, err := e.credit(ctx, u, ledger.Entry{
				UserID: worker.ID, TaskID: uuidPtr(t.ID), Type: models.TxEarn, Amount: payout, Commission: fee,
				Description: "Payment for: " + t.Title,
			})
			if err != nil {
				return err
			}
			worker.Balance = rec.BalanceAfter
		}
		if fee > 0 {
			if _, err := e.credit(ctx, u, ledger.Entry{
				UserID: models.PlatformAccountID, TaskID: uuidPtr(t.ID), Type: models.TxCommissionEarn, Amount: fee, Commission: fee,
				Description: "Commission for: " + t.Title,
			}); err != nil {
				return err
			}
		}

		worker.AddRating(rating)
		if err := e.Users.Update(ctx, u.tx, worker); err != nil {
			return err
		}

		t.Status = models.TaskStatusCompleted
		t.Rating = &rating
		t.Review = review
		if t.CancellationStatus == models.CancellationPending {
			t.CancellationStatus = models.CancellationNone
		}
		t.CancellationRequested = false
		if err := e.Tasks.Update(ctx, u.tx, t); err != nil {
			return err
		}
		res = &ApproveResult{Task: t, Worker: worker}
		u.emit(approvedEvents(t, payout, fee, rating, review)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CancelTask withdraws an open task. An open job's escrow goes back to its author in full.
func (e *Engine) CancelTask(ctx context.Context, actorID, taskID uuid.UUID) (*models.Task, error) {
	var task *models.Task
	err := e.run(ctx, "cancel_task", func(u *unit) error {
		t, _, err := e.lockTask(ctx, u, taskID, actorID)
		if err != nil {
			return err
		}
		if err := canWithdraw(t, actorID); err != nil {
			return err
		}
		if t.Type == models.TaskTypeJob {
			if _, err := e.credit(ctx, u, ledger.Entry{
				UserID: t.AuthorID, TaskID: uuidPtr(t.ID), Type: models.TxRefund, Amount: t.Price,
				Description: "Refund for cancelled job: " + t.Title,
			}); err != nil {
				return err
			}
			t.RefundedAmount = t.Price
		}
		now := e.now()
		t.Status = models.TaskStatusCancelled
		t.CancelledAt = &now
		t.CancelledBy = uuidPtr(actorID)
		if err := e.Tasks.Update(ctx, u.tx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// RemoveTask is the moderator takedown: any escrow still held for the task is refunded
// to the payer in full and the task is deleted.
func (e *Engine) RemoveTask(ctx context.Context, adminID, taskID uuid.UUID) error {
	return e.run(ctx, "remove_task", func(u *unit) error {
		t, users, err := e.lockTask(ctx, u, taskID, adminID)
		if err != nil {
			return err
		}
		if !users[adminID].IsAdmin() {
			return fmt.Errorf("%w: admin only", ErrForbidden)
		}
		var refund int64
		if held := heldEscrow(t); held > 0 {
			if _, err := e.credit(ctx, u, ledger.Entry{
				UserID: t.PayerID(), TaskID: uuidPtr(t.ID), Type: models.TxRefund, Amount: held,
				Description: "Refund for removed task: " + t.Title,
			}); err != nil {
				return err
			}
			refund = held
		}
		if err := e.Tasks.Delete(ctx, u.tx, t.ID); err != nil {
			return err
		}
		e.logger().Info("task removed by moderator", "task_id", t.ID, "admin_id", adminID, "refund", refund)
		u.emit(removedEvents(t, refund)...)
		return nil
	})
}

// heldEscrow is the amount currently escrowed for t.
func heldEscrow(t *models.Task) int64 {
	switch {
	case t.IsActive():
		return t.Price
	case t.Status == models.TaskStatusOpen && t.Type == models.TaskTypeJob:
		return t.Price
	}
	return 0
}
