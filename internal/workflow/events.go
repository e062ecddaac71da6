package workflow

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/notify"
)

func taskEvent(userID uuid.UUID, t *models.Task, typ notify.Type, title, message string, meta notify.Metadata) notify.Event {
	return notify.Event{
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Message:     message,
		RelatedID:   uuidPtr(t.ID),
		RelatedType: notify.RelatedTask,
		Metadata:    meta,
	}
}

func assignedEvents(t *models.Task) []notify.Event {
	return []notify.Event{
		taskEvent(t.AuthorID, t, notify.TaskAssigned, "Task taken",
			fmt.Sprintf("Work on %q has started", t.Title), notify.Metadata{}),
		taskEvent(*t.AssigneeID, t, notify.TaskAssigned, "You are on the task",
			fmt.Sprintf("You have been assigned to %q", t.Title), notify.Metadata{}),
	}
}

func submittedEvent(t *models.Task) notify.Event {
	return taskEvent(t.PayerID(), t, notify.TaskSubmitted, "Work submitted",
		fmt.Sprintf("Work on %q is ready for review", t.Title), notify.Metadata{})
}

func approvedEvents(t *models.Task, payout, commission int64, rating int, review string) []notify.Event {
	worker := t.WorkerID()
	return []notify.Event{
		taskEvent(worker, t, notify.PaymentReceived, "Payment received",
			fmt.Sprintf("You earned %d for %q", payout, t.Title),
			notify.Metadata{Amount: notify.Int64(payout), Commission: notify.Int64(commission)}),
		taskEvent(worker, t, notify.ReviewReceived, "New review",
			fmt.Sprintf("You received %d/5 for %q", rating, t.Title),
			notify.Metadata{Rating: notify.Int(rating), Review: review}),
	}
}

func cancelledEvents(t *models.Task, refund int64, pct int) []notify.Event {
	meta := notify.Metadata{RefundAmount: notify.Int64(refund), RefundPercentage: notify.Int(pct)}
	msg := fmt.Sprintf("%q was cancelled, %d refunded (%d%%)", t.Title, refund, pct)
	events := []notify.Event{taskEvent(t.AuthorID, t, notify.TaskCancelled, "Task cancelled", msg, meta)}
	if t.AssigneeID != nil {
		events = append(events, taskEvent(*t.AssigneeID, t, notify.TaskCancelled, "Task cancelled", msg, meta))
	}
	return events
}

func cancellationRequestedEvent(t *models.Task, requester uuid.UUID, reason string) notify.Event {
	return taskEvent(t.Counterpart(requester), t, notify.CancellationRequested, "Cancellation requested",
		fmt.Sprintf("The other party asked to cancel %q", t.Title),
		notify.Metadata{Reason: reason, RequestedBy: uuidPtr(requester)})
}

func cancellationRejectedEvent(t *models.Task, requester uuid.UUID) notify.Event {
	return taskEvent(requester, t, notify.CancellationRejected, "Cancellation rejected",
		fmt.Sprintf("Your request to cancel %q was rejected", t.Title), notify.Metadata{})
}

func disputeOpenedEvent(t *models.Task, d *models.Dispute) notify.Event {
	ev := taskEvent(d.Against, t, notify.DisputeOpened, "Dispute opened",
		fmt.Sprintf("A dispute was opened on %q", t.Title),
		notify.Metadata{Reason: d.Reason, DisputeID: uuidPtr(d.ID)})
	return ev
}

func disputeResolvedEvents(t *models.Task, d *models.Dispute) []notify.Event {
	meta := notify.Metadata{DisputeID: uuidPtr(d.ID), Reason: d.Resolution}
	if d.RefundPercentage != nil {
		meta.RefundAmount = notify.Int64(d.RefundAmount)
		meta.RefundPercentage = notify.Int(*d.RefundPercentage)
	}
	msg := fmt.Sprintf("The dispute on %q was %s", t.Title, d.Status)
	var events []notify.Event
	for _, id := range []uuid.UUID{d.OpenedBy, d.Against} {
		events = append(events, notify.Event{
			UserID:      id,
			Type:        notify.DisputeResolved,
			Title:       "Dispute closed",
			Message:     msg,
			RelatedID:   uuidPtr(d.ID),
			RelatedType: notify.RelatedDispute,
			Metadata:    meta,
		})
	}
	return events
}

func removedEvents(t *models.Task, refund int64) []notify.Event {
	meta := notify.Metadata{}
	if refund > 0 {
		meta.RefundAmount = notify.Int64(refund)
	}
	msg := fmt.Sprintf("%q was removed by a moderator", t.Title)
	events := []notify.Event{taskEvent(t.AuthorID, t, notify.System, "Task removed", msg, meta)}
	if t.AssigneeID != nil {
		events = append(events, taskEvent(*t.AssigneeID, t, notify.System, "Task removed", msg, meta))
	}
	return events
}
