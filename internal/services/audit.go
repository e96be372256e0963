package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog persists what webhooks and sync runs did. Writes are best effort:
// a failing audit store never fails the request that triggered it.
type AuditLog interface {
	RecordWebhook(ctx context.Context, event models.WebhookEvent)
	RecordSyncRun(ctx context.Context, run models.SyncRun) string
	RecentSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error)
}

type GormAuditLog struct {
	db *gorm.DB
}

func NewGormAuditLog(db *gorm.DB) *GormAuditLog {
	return &GormAuditLog{db: db}
}

func (a *GormAuditLog) RecordWebhook(ctx context.Context, event models.WebhookEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}
	if err := a.db.WithContext(ctx).Create(&event).Error; err != nil {
		slog.Warn("failed to store webhook event", "kind", event.Kind, "object_id", event.ObjectID, "error", err)
	}
}

func (a *GormAuditLog) RecordSyncRun(ctx context.Context, run models.SyncRun) string {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if err := a.db.WithContext(ctx).Create(&run).Error; err != nil {
		slog.Warn("failed to store sync run", "trigger", run.Trigger, "error", err)
		return ""
	}
	return run.ID.String()
}

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// runsLimit defaults an unset limit and caps a large one.
func runsLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultRunsLimit
	case limit > maxRunsLimit:
		return maxRunsLimit
	}
	return limit
}

func (a *GormAuditLog) RecentSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	var runs []models.SyncRun
	err := a.db.WithContext(ctx).Order("started_at DESC").Limit(runsLimit(limit)).Find(&runs).Error
	return runs, err
}

// NopAuditLog is used when no database is configured.
type NopAuditLog struct{}

func (NopAuditLog) RecordWebhook(context.Context, models.WebhookEvent)   {}
func (NopAuditLog) RecordSyncRun(context.Context, models.SyncRun) string { return "" }
func (NopAuditLog) RecentSyncRuns(context.Context, int) ([]models.SyncRun, error) {
	return nil, nil
}
