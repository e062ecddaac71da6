package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/commission"
	"github.com/gigmarket/backend/internal/ledger"
	"github.com/gigmarket/backend/internal/models"
)

type CancellationResult struct {
	Task         *models.Task `json:"task"`
	AutoApproved bool         `json:"auto_approved"`
}

// RequestCancellation asks the counterpart to cancel an in-progress or in-review task.
// A worker backing out before submitting anything is approved immediately with a full refund.
func (e *Engine) RequestCancellation(ctx context.Context, actorID, taskID uuid.UUID, reason string) (*CancellationResult, error) {
	var res *CancellationResult
	err := e.run(ctx, "request_cancellation", func(u *unit) error {
		t, _, err := e.lockTask(ctx, u, taskID, actorID)
		if err != nil {
			return err
		}
		if err := canRequestCancel(t, actorID); err != nil {
			return err
		}

		t.CancellationReason = reason
		t.CancellationRequestedBy = uuidPtr(actorID)

		if actorID == t.WorkerID() && t.Status == models.TaskStatusInProgress && t.SubmissionRef == "" {
			if _, err := e.refund(ctx, u, t, 100, actorID); err != nil {
				return err
			}
			res = &CancellationResult{Task: t, AutoApproved: true}
			return nil
		}

		t.CancellationRequested = true
		t.CancellationStatus = models.CancellationPending
		if err := e.Tasks.Update(ctx, u.tx, t); err != nil {
			return err
		}
		res = &CancellationResult{Task: t}
		u.emit(cancellationRequestedEvent(t, actorID, reason))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApproveCancellation accepts the counterpart's pending request. refundPct of the price goes
// back to the payer; the remainder stays with the platform.
func (e *Engine) ApproveCancellation(ctx context.Context, actorID, taskID uuid.UUID, refundPct int) (*models.Task, error) {
	if err := validRefundPct(refundPct); err != nil {
		return nil, err
	}
	var task *models.Task
	err := e.run(ctx, "approve_cancellation", func(u *unit) error {
		t, _, err := e.lockTask(ctx, u, taskID, actorID)
		if err != nil {
			return err
		}
		if err := canAnswerCancel(t, actorID); err != nil {
			return err
		}
		if _, err := e.refund(ctx, u, t, refundPct, actorID); err != nil {
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

// RejectCancellation declines the counterpart's pending request; work continues.
func (e *Engine) RejectCancellation(ctx context.Context, actorID, taskID uuid.UUID) (*models.Task, error) {
	var task *models.Task
	err := e.run(ctx, "reject_cancellation", func(u *unit) error {
		t, _, err := e.lockTask(ctx, u, taskID, actorID)
		if err != nil {
			return err
		}
		if err := canAnswerCancel(t, actorID); err != nil {
			return err
		}
		requester := *t.CancellationRequestedBy
		t.CancellationStatus = models.CancellationRejected
		t.CancellationRequested = false
		if err := e.Tasks.Update(ctx, u.tx, t); err != nil {
			return err
		}
		task = t
		u.emit(cancellationRejectedEvent(t, requester))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// refund cancels an active task and releases its escrow: round(price*pct/100) to the
// payer, the rest retained. No earn or commission entries are written. Callers must
// have checked that t is active so the escrow is released only once.
func (e *Engine) refund(ctx context.Context, u *unit, t *models.Task, pct int, by uuid.UUID) (int64, error) {
	if !t.IsActive() {
		return 0, fmt.Errorf("%w: task is %s", ErrInvalidTransition, t.Status)
	}
	amount := commission.Refund(t.Price, pct)
	if amount > 0 {
		if _, err := e.credit(ctx, u, ledger.Entry{
			UserID: t.PayerID(), TaskID: uuidPtr(t.ID), Type: models.TxRefund, Amount: amount,
			Description: fmt.Sprintf("Refund %d%% for: %s", pct, t.Title),
		}); err != nil {
			return 0, err
		}
	}
	now := e.now()
	t.RefundedAmount = amount
	t.RetainedAmount = t.Price - amount
	t.Status = models.TaskStatusCancelled
	t.CancellationStatus = models.CancellationApproved
	t.CancellationRequested = false
	t.CancelledAt = &now
	t.CancelledBy = uuidPtr(by)
	if err := e.Tasks.Update(ctx, u.tx, t); err != nil {
		return 0, err
	}
	u.emit(cancelledEvents(t, amount, pct)...)
	return amount, nil
}
