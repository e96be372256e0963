package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dataverse"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dto"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/models"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/mollie"
)

const (
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
	TriggerHTTP     = "http"
	TriggerAdmin    = "admin"
)

// SyncService reconciles the records store with Mollie.
type SyncService struct {
	payments PaymentProvider
	records  RecordStore
	audit    AuditLog
	now      func() time.Time
}

func NewSyncService(payments PaymentProvider, records RecordStore, audit AuditLog) *SyncService {
	if audit == nil {
		audit = NopAuditLog{}
	}
	return &SyncService{
		payments: payments,
		records:  records,
		audit:    audit,
		now:      time.Now,
	}
}

// Run walks every record that carries a subscription id and writes the
// current Mollie status into that same row, addressed by its primary key. Records are processed one at a time; a
// failing record is counted and logged and the run continues. Only a
// failure to list the records aborts the run.
func (s *SyncService) Run(ctx context.Context, trigger string) (*dto.SyncSummary, error) {
	started := s.now().UTC()
	summary := &dto.SyncSummary{Trigger: trigger}
	slog.Info("subscription sync started", "trigger", trigger)

	records, err := s.records.ListWithSubscription(ctx)
	if err != nil {
		s.finish(ctx, started, summary, err)
		return nil, fmt.Errorf("list records: %w", err)
	}
	slog.Info("retrieved records with a subscription id", "count", len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			s.finish(ctx, started, summary, err)
			return summary, err
		}
		summary.Processed++
		result := s.syncRecord(ctx, rec)
		metrics.Get().RecordSyncRecord(result)
		switch result {
		case "updated":
			summary.Updated++
		case "deactivated":
			summary.Deactivated++
		case "skipped":
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	s.finish(ctx, started, summary, nil)
	slog.Info("subscription sync finished",
		"trigger", trigger,
		"processed", summary.Processed,
		"updated", summary.Updated,
		"deactivated", summary.Deactivated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (s *SyncService) syncRecord(ctx context.Context, rec dataverse.Record) string {
	log := slog.With("record_id", rec.ID, "customer_id", rec.CustomerID, "subscription_id", rec.SubscriptionID)
	if rec.ID == "" || rec.CustomerID == "" || rec.SubscriptionID == "" {
		log.Warn("skipping record with missing GUID, customer id or subscription id")
		return "skipped"
	}

	sub, err := s.payments.GetSubscription(ctx, rec.CustomerID, rec.SubscriptionID)
	if mollie.IsNotFound(err) {
		if _, err := s.records.UpdateRecord(ctx, rec.ID, rec.SubscriptionID, false); err != nil {
			log.Error("failed to deactivate record after subscription was not found", "error", err)
			return "failed"
		}
		log.Info("subscription not found at Mollie, record deactivated")
		return "deactivated"
	}
	if err != nil {
		log.Error("failed to fetch subscription", "error", err)
		return "failed"
	}

	active := sub.IsActive()
	if _, err := s.records.UpdateRecord(ctx, rec.ID, rec.SubscriptionID, active); err != nil {
		log.Error("failed to update record", "error", err)
		return "failed"
	}
	log.Info("record synced", "status", sub.Status, "active", active)
	return "updated"
}

func (s *SyncService) finish(ctx context.Context, started time.Time, summary *dto.SyncSummary, runErr error) {
	finished := s.now().UTC()
	run := models.SyncRun{
		Trigger:     summary.Trigger,
		StartedAt:   started,
		FinishedAt:  &finished,
		Processed:   summary.Processed,
		Updated:     summary.Updated,
		Deactivated: summary.Deactivated,
		Skipped:     summary.Skipped,
		Failed:      summary.Failed,
	}
	outcome := "success"
	if runErr != nil {
		outcome = "error"
		run.Error = runErr.Error()
	}
	metrics.Get().RecordSyncRun(summary.Trigger, outcome)
	// The audit write must survive a cancelled run context.
	summary.RunID = s.audit.RecordSyncRun(context.WithoutCancel(ctx), run)
}

// Monitor pages through every subscription at Mollie, logs it and
// publishes the count per status.
func (s *SyncService) Monitor(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := s.payments.ListSubscriptions(ctx, func(sub mollie.Subscription) error {
		counts[string(sub.Status)]++
		slog.Info("subscription",
			"subscription_id", sub.ID,
			"customer_id", sub.CustomerID,
			"status", sub.Status,
			"amount", sub.Amount.Value,
			"interval", sub.Interval,
			"next_payment_date", sub.NextPaymentDate,
		)
		return nil
	})
	if err != nil {
		return counts, fmt.Errorf("monitor subscriptions: %w", err)
	}
	metrics.Get().SetMollieSubscriptions(counts)
	slog.Info("subscription monitor finished", "statuses", counts)
	return counts, nil
}

// RecentRuns lists the latest stored reconciliation runs.
func (s *SyncService) RecentRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	return s.audit.RecentSyncRuns(ctx, runsLimit(limit))
}
