package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispute status enums. A task's DisputeStatus mirrors these, plus "none".
const (
	DisputeNone        = "none"
	DisputeOpen        = "open"
	DisputeUnderReview = "under_review"
	DisputeResolved    = "resolved"
	DisputeRejected    = "rejected"
)

type Dispute struct {
	ID               uuid.UUID  `json:"id"`
	TaskID           uuid.UUID  `json:"task_id"`
	OpenedBy         uuid.UUID  `json:"opened_by"`
	Against          uuid.UUID  `json:"against"`
	Reason           string     `json:"reason"`
	Description      string     `json:"description"`
	Attachments      []string   `json:"attachments"`
	Status           string     `json:"status"`
	Resolution       string     `json:"resolution,omitempty"`
	RefundPercentage *int       `json:"refund_percentage,omitempty"`
	RefundAmount     int64      `json:"refund_amount"`
	ResolvedBy       *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsPending reports whether an admin can still act on the dispute.
func (d *Dispute) IsPending() bool {
	return d.Status == DisputeOpen || d.Status == DisputeUnderReview
}
