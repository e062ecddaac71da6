package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification is the persisted inbox entry for a delivered event.
type Notification struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	RelatedID   *uuid.UUID      `json:"related_id,omitempty"`
	RelatedType string          `json:"related_type,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Read        bool            `json:"read"`
	CreatedAt   time.Time       `json:"created_at"`
}
