package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/models"
)

type OpenDisputeInput struct {
	Reason      string
	Description string
	Attachments []string
}

// ResolveDisputeInput is the admin verdict. RefundPercentage defaults to 100 when a
// refund is ordered without one.
type ResolveDisputeInput struct {
	Resolution       string
	RefundToClient   bool
	RefundPercentage *int
}

// OpenDispute escalates an active task to admin arbitration and freezes the
// cancellation protocol until the dispute is closed. A task can be disputed once.
func (e *Engine) OpenDispute(ctx context.Context, actorID, taskID uuid.UUID, in OpenDisputeInput) (*models.Dispute, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	var dispute *models.Dispute
	err := e.run(ctx, "open_dispute", func(u *unit) error {
		t, _, err := e.lockTask(ctx, u, taskID, actorID)
		if err != nil {
			return err
		}
		if err := canOpenDispute(t, actorID); err != nil {
			return err
		}
		d := &models.Dispute{
			ID:          uuid.New(),
			TaskID:      t.ID,
			OpenedBy:    actorID,
			Against:     t.Counterpart(actorID),
			Reason:      in.Reason,
			Description: in.Description,
			Attachments: in.Attachments,
			Status:      models.DisputeOpen,
		}
		if err := e.Disputes.Create(ctx, u.tx, d); err != nil {
			return err
		}
		t.DisputeOpened = true
		t.DisputeStatus = models.DisputeOpen
		t.DisputeID = uuidPtr(d.ID)
		t.CancellationStatus = models.CancellationDisputed
		if err := e.Tasks.Update(ctx, u.tx, t); err != nil {
			return err
		}
		dispute = d
		u.emit(disputeOpenedEvent(t, d))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

// ReviewDispute marks an open dispute as taken up by an admin.
func (e *Engine) ReviewDispute(ctx context.Context, adminID, disputeID uuid.UUID) (*models.Dispute, error) {
	var dispute *models.Dispute
	err := e.arbitrate(ctx, "review_dispute", adminID, disputeID, []string{models.DisputeOpen},
		func(u *unit, t *models.Task, d *models.Dispute) error {
			d.Status = models.DisputeUnderReview
			t.DisputeStatus = models.DisputeUnderReview
			dispute = d
			return nil
		})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

// ResolveDispute closes a dispute. With RefundToClient the task is cancelled through the
// refund path; otherwise the freeze is lifted and the task continues normally.
func (e *Engine) ResolveDispute(ctx context.Context, adminID, disputeID uuid.UUID, in ResolveDisputeInput) (*models.Dispute, error) {
	pct := 100
	if in.RefundPercentage != nil {
		pct = *in.RefundPercentage
	}
	if in.RefundToClient {
		if err := validRefundPct(pct); err != nil {
			return nil, err
		}
	}
	var dispute *models.Dispute
	err := e.arbitrate(ctx, "resolve_dispute", adminID, disputeID, []string{models.DisputeOpen, models.DisputeUnderReview},
		func(u *unit, t *models.Task, d *models.Dispute) error {
			now := e.now()
			d.Status = models.DisputeResolved
			d.Resolution = in.Resolution
			d.ResolvedBy = uuidPtr(adminID)
			d.ResolvedAt = &now
			t.DisputeStatus = models.DisputeResolved

			if in.RefundToClient {
				amount, err := e.refund(ctx, u, t, pct, adminID)
				if err != nil {
					return err
				}
				d.RefundPercentage = &pct
				d.RefundAmount = amount
			} else {
				liftFreeze(t)
			}
			dispute = d
			u.emit(disputeResolvedEvents(t, d)...)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

// RejectDispute dismisses a dispute without any funds movement and lifts the freeze.
func (e *Engine) RejectDispute(ctx context.Context, adminID, disputeID uuid.UUID, resolution string) (*models.Dispute, error) {
	var dispute *models.Dispute
	err := e.arbitrate(ctx, "reject_dispute", adminID, disputeID, []string{models.DisputeOpen, models.DisputeUnderReview},
		func(u *unit, t *models.Task, d *models.Dispute) error {
			now := e.now()
			d.Status = models.DisputeRejected
			d.Resolution = resolution
			d.ResolvedBy = uuidPtr(adminID)
			d.ResolvedAt = &now
			t.DisputeStatus = models.DisputeRejected
			liftFreeze(t)
			dispute = d
			u.emit(disputeResolvedEvents(t, d)...)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

// arbitrate loads the dispute, locks its task and the dispute row, checks the admin and the
// allowed dispute states, runs fn and persists both records.
func (e *Engine) arbitrate(ctx context.Context, op string, adminID, disputeID uuid.UUID, allowed []string,
	fn func(u *unit, t *models.Task, d *models.Dispute) error) error {
	ref, err := e.Disputes.GetByID(ctx, disputeID)
	if err != nil {
		return fmt.Errorf("dispute %s: %w", disputeID, err)
	}
	return e.run(ctx, op, func(u *unit) error {
		t, users, err := e.lockTask(ctx, u, ref.TaskID, adminID)
		if err != nil {
			return err
		}
		d, err := e.Disputes.GetByIDForUpdate(ctx, u.tx, disputeID)
		if err != nil {
			return fmt.Errorf("dispute %s: %w", disputeID, err)
		}
		if err := canArbitrate(d, users[adminID], allowed...); err != nil {
			return err
		}
		if err := fn(u, t, d); err != nil {
			return err
		}
		if err := e.Disputes.Update(ctx, u.tx, d); err != nil {
			return err
		}
		return e.Tasks.Update(ctx, u.tx, t)
	})
}

// liftFreeze reopens the cancellation protocol on a task that stays active.
func liftFreeze(t *models.Task) {
	if t.CancellationStatus == models.CancellationDisputed {
		t.CancellationStatus = models.CancellationNone
	}
	t.CancellationRequested = false
}
