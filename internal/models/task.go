package models

import (
	"time"

	"github.com/google/uuid"
)

// Task types.
const (
	TaskTypeJob = "job"
	TaskTypeGig = "gig"
)

// Task status enums.
const (
	TaskStatusOpen       = "open"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// Cancellation status enums.
const (
	CancellationNone     = "none"
	CancellationPending  = "pending"
	CancellationApproved = "approved"
	CancellationRejected = "rejected"
	CancellationDisputed = "disputed"
)

type Task struct {
	ID           uuid.UUID  `json:"id"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	Description  string     `json:"description"`
	Price        int64      `json:"price"`
	AuthorID     uuid.UUID  `json:"author_id"`
	AssigneeID   *uuid.UUID `json:"assignee_id,omitempty"`
	ParentTaskID *uuid.UUID `json:"parent_task_id,omitempty"`
	Status       string     `json:"status"`

	SubmissionRef  string     `json:"submission_ref,omitempty"`
	SubmissionName string     `json:"submission_name,omitempty"`
	SubmissionAt   *time.Time `json:"submission_at,omitempty"`

	Rating *int   `json:"rating,omitempty"`
	Review string `json:"review,omitempty"`

	CancellationRequested   bool       `json:"cancellation_requested"`
	CancellationStatus      string     `json:"cancellation_status"`
	CancellationRequestedBy *uuid.UUID `json:"cancellation_requested_by,omitempty"`
	CancellationReason      string     `json:"cancellation_reason,omitempty"`
	CancelledAt             *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy             *uuid.UUID `json:"cancelled_by,omitempty"`
	RefundedAmount          int64      `json:"refunded_amount"`
	RetainedAmount          int64      `json:"retained_amount"`

	DisputeOpened bool       `json:"dispute_opened"`
	DisputeStatus string     `json:"dispute_status"`
	DisputeID     *uuid.UUID `json:"dispute_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PayerID is the party whose balance funds the escrow: the author of a job,
// the assignee (ordering client) of a gig.
func (t *Task) PayerID() uuid.UUID {
	if t.Type == TaskTypeGig {
		if t.AssigneeID != nil {
			return *t.AssigneeID
		}
		return uuid.Nil
	}
	return t.AuthorID
}

// WorkerID is the party paid on completion.
func (t *Task) WorkerID() uuid.UUID {
	if t.Type == TaskTypeGig {
		return t.AuthorID
	}
	if t.AssigneeID != nil {
		return *t.AssigneeID
	}
	return uuid.Nil
}

// IsParty reports whether userID is the author or the assignee.
func (t *Task) IsParty(userID uuid.UUID) bool {
	return userID == t.AuthorID || (t.AssigneeID != nil && *t.AssigneeID == userID)
}

// Counterpart returns the other party of the task, or uuid.Nil when the task
// has no assignee or userID is not a party.
func (t *Task) Counterpart(userID uuid.UUID) uuid.UUID {
	if t.AssigneeID == nil {
		return uuid.Nil
	}
	switch userID {
	case t.AuthorID:
		return *t.AssigneeID
	case *t.AssigneeID:
		return t.AuthorID
	}
	return uuid.Nil
}

// IsTerminal reports whether the task can no longer change status.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled
}

// IsActive reports whether the task is in_progress or review, the only
// states the cancellation and dispute protocol applies to.
func (t *Task) IsActive() bool {
	return t.Status == TaskStatusInProgress || t.Status == TaskStatusReview
}
