package logging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/models"
	"gorm.io/gorm"
)

// Cleanup deletes system logs and webhook events older than retentionDays.
func Cleanup(ctx context.Context, db *gorm.DB, retentionDays int) error {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	logs := db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if logs.Error != nil {
		return fmt.Errorf("log cleanup failed: %w", logs.Error)
	}
	events := db.WithContext(ctx).Where("received_at < ?", cutoff).Delete(&models.WebhookEvent{})
	if events.Error != nil {
		return fmt.Errorf("webhook event cleanup failed: %w", events.Error)
	}

	if logs.RowsAffected > 0 || events.RowsAffected > 0 {
		slog.Info("log cleanup completed", "logs_deleted", logs.RowsAffected, "events_deleted", events.RowsAffected)
	}
	return nil
}
