package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncRun is the summary of one reconciliation pass over the records store.
type SyncRun struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Trigger     string     `gorm:"size:50;not null" json:"trigger"`
	StartedAt   time.Time  `gorm:"not null;index" json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	Processed   int        `json:"processed"`
	Updated     int        `json:"updated"`
	Deactivated int        `json:"deactivated"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	Error       string     `gorm:"type:text" json:"error"`
	CreatedAt   time.Time  `json:"created_at"`
}
