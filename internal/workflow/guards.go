package workflow

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/models"
)

// Each guard checks permission first, then state, so a caller who may never perform
// the action always sees ErrForbidden.

func canCreate(actor *models.User, taskType string) error {
	switch taskType {
	case models.TaskTypeJob:
		if actor.Role != models.RoleClient {
			return fmt.Errorf("%w: only clients can post jobs", ErrForbidden)
		}
	case models.TaskTypeGig:
		if actor.Role != models.RoleFreelancer {
			return fmt.Errorf("%w: only freelancers can post gigs", ErrForbidden)
		}
	default:
		return fmt.Errorf("%w: unknown task type %q", ErrInvalidInput, taskType)
	}
	return nil
}

func canClaim(t *models.Task, actor *models.User) error {
	if actor.ID == t.AuthorID {
		return fmt.Errorf("%w: cannot take your own task", ErrForbidden)
	}
	switch t.Type {
	case models.TaskTypeJob:
		if actor.Role != models.RoleFreelancer {
			return fmt.Errorf("%w: only freelancers can take jobs", ErrForbidden)
		}
	case models.TaskTypeGig:
		if actor.Role != models.RoleClient {
			return fmt.Errorf("%w: only clients can order gigs", ErrForbidden)
		}
	}
	if t.Status != models.TaskStatusOpen || t.ParentTaskID != nil {
		return fmt.Errorf("%w: task is %s", ErrInvalidTransition, t.Status)
	}
	return nil
}

func canSubmit(t *models.Task, actorID uuid.UUID) error {
	if actorID != t.WorkerID() {
		return fmt.Errorf("%w: only the worker can submit", ErrForbidden)
	}
	if t.Status != models.TaskStatusInProgress {
		return fmt.Errorf("%w: task is %s", ErrInvalidTransition, t.Status)
	}
	return nil
}

func canApprove(t *models.Task, actorID uuid.UUID) error {
	if actorID != t.PayerID() {
		return fmt.Errorf("%w: only the paying party can approve", ErrForbidden)
	}
	if t.Status != models.TaskStatusReview {
		return fmt.Errorf("%w: task is %s", ErrInvalidTransition, t.Status)
	}
	return nil
}

func canWithdraw(t *models.Task, actorID uuid.UUID) error {
	if actorID != t.AuthorID {
		return fmt.Errorf("%w: only the author can cancel an open task", ErrForbidden)
	}
	if t.Status != models.TaskStatusOpen {
		return fmt.Errorf("%w: task is %s", ErrInvalidTransition, t.Status)
	}
	return nil
}

func canRequestCancel(t *models.Task, actorID uuid.UUID) error {
	if !t.IsParty(actorID) {
		return fmt.Errorf("%w: not a party to this task", ErrForbidden)
	}
	if !t.IsActive() {
		return fmt.Errorf("%w: task is %s", ErrInvalidTransition, t.Status)
	}
	switch t.CancellationStatus {
	case models.CancellationDisputed:
		return fmt.Errorf("%w: task is frozen by a dispute", ErrInvalidTransition)
	case models.CancellationPending:
		return ErrAlreadyPending
	}
	return nil
}

// canAnswerCancel guards approve-cancel and reject-cancel.
func canAnswerCancel(t *models.Task, actorID uuid.UUID) error {
	if !t.IsParty(actorID) {
		return fmt.Errorf("%w: not a party to this task", ErrForbidden)
	}
	if t.CancellationStatus != models.CancellationPending {
		return ErrNoPendingRequest
	}
	if t.CancellationRequestedBy != nil && *t.CancellationRequestedBy == actorID {
		return fmt.Errorf("%w: cannot answer your own cancellation request", ErrForbidden)
	}
	if !t.IsActive() {
		return fmt.Errorf("%w: task is %s", ErrInvalidTransition, t.Status)
	}
	return nil
}

func canOpenDispute(t *models.Task, actorID uuid.UUID) error {
	if !t.IsParty(actorID) {
		return fmt.Errorf("%w: not a party to this task", ErrForbidden)
	}
	if !t.IsActive() {
		return fmt.Errorf("%w: task is %s", ErrInvalidTransition, t.Status)
	}
	if t.DisputeOpened {
		return ErrAlreadyOpen
	}
	return nil
}

func canArbitrate(d *models.Dispute, actor *models.User, allowed ...string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin only", ErrForbidden)
	}
	for _, s := range allowed {
		if d.Status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: dispute is %s", ErrInvalidTransition, d.Status)
}

func validRefundPct(pct int) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: refund percentage must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}
