package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent records every provider callback and what we did with it.
type WebhookEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Kind       string    `gorm:"size:50;not null;index" json:"kind"`
	ObjectID   string    `gorm:"size:64;index" json:"object_id"`
	CustomerID string    `gorm:"size:64;index" json:"customer_id"`
	Outcome    string    `gorm:"size:50;not null" json:"outcome"`
	Error      string    `gorm:"type:text" json:"error"`
	ReceivedAt time.Time `gorm:"not null;index" json:"received_at"`
	CreatedAt  time.Time `json:"created_at"`
}
