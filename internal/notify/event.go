// Package notify defines the typed notification events emitted after workflow commits
// and the sinks that deliver them.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/models"
)

type Type string

const (
	TaskAssigned          Type = "task_assigned"
	TaskSubmitted         Type = "task_submitted"
	TaskApproved          Type = "task_approved"
	TaskCancelled         Type = "task_cancelled"
	PaymentReceived       Type = "payment_received"
	ReviewReceived        Type = "review_received"
	CancellationRequested Type = "cancellation_requested"
	CancellationRejected  Type = "cancellation_rejected"
	DisputeOpened         Type = "dispute_opened"
	DisputeResolved       Type = "dispute_resolved"
	System                Type = "system"
)

// Valid reports whether t belongs to the closed set of event types.
func (t Type) Valid() bool {
	switch t {
	case TaskAssigned, TaskSubmitted, TaskApproved, TaskCancelled, PaymentReceived, ReviewReceived,
		CancellationRequested, CancellationRejected, DisputeOpened, DisputeResolved, System:
		return true
	}
	return false
}

// Related entity kinds.
const (
	RelatedTask    = "task"
	RelatedDispute = "dispute"
)

// Metadata carries the optional typed fields of an event.
type Metadata struct {
	Amount           *int64     `json:"amount,omitempty"`
	Commission       *int64     `json:"commission,omitempty"`
	Rating           *int       `json:"rating,omitempty"`
	Review           string     `json:"review,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	RequestedBy      *uuid.UUID `json:"requested_by,omitempty"`
	DisputeID        *uuid.UUID `json:"dispute_id,omitempty"`
	RefundAmount     *int64     `json:"refund_amount,omitempty"`
	RefundPercentage *int       `json:"refund_percentage,omitempty"`
}

type Event struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Type        Type       `json:"type"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	RelatedID   *uuid.UUID `json:"related_id,omitempty"`
	RelatedType string     `json:"related_type,omitempty"`
	Metadata    Metadata   `json:"metadata"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Notification converts the event into its persisted inbox form.
func (e Event) Notification() (*models.Notification, error) {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return &models.Notification{
		ID:          e.ID,
		UserID:      e.UserID,
		Type:        string(e.Type),
		Title:       e.Title,
		Message:     e.Message,
		RelatedID:   e.RelatedID,
		RelatedType: e.RelatedType,
		Metadata:    meta,
		CreatedAt:   e.CreatedAt,
	}, nil
}

func Int64(v int64) *int64 { return &v }
func Int(v int) *int       { return &v }
