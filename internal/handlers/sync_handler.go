package handlers

import (
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/models"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/services"
	"github.com/gofiber/fiber/v2"
)

type SyncHandler struct {
	syncService         *services.SyncService
	subscriptionService *services.SubscriptionService
}

func NewSyncHandler(syncService *services.SyncService, subscriptionService *services.SubscriptionService) *SyncHandler {
	return &SyncHandler{syncService: syncService, subscriptionService: subscriptionService}
}

// Sync runs a reconciliation pass and returns its summary.
func (h *SyncHandler) Sync(c *fiber.Ctx) error {
	return h.run(c, services.TriggerHTTP)
}

// AdminSync is Sync for the admin API.
func (h *SyncHandler) AdminSync(c *fiber.Ctx) error {
	return h.run(c, services.TriggerAdmin)
}

func (h *SyncHandler) run(c *fiber.Ctx, trigger string) error {
	summary, err := h.syncService.Run(c.UserContext(), trigger)
	if err != nil {
		return respondError(c, err, "subscription sync failed", "trigger", trigger)
	}
	return c.JSON(summary)
}

// Runs lists the latest reconciliation runs, newest first.
func (h *SyncHandler) Runs(c *fiber.Ctx) error {
	runs, err := h.syncService.RecentRuns(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		return respondError(c, err, "failed to list sync runs")
	}
	if runs == nil {
		runs = []models.SyncRun{}
	}
	return c.JSON(fiber.Map{"runs": runs})
}

// Record returns the stored record of a customer.
func (h *SyncHandler) Record(c *fiber.Ctx) error {
	customerID := c.Params("customer_id")
	rec, err := h.subscriptionService.Record(c.UserContext(), customerID)
	if err != nil {
		return respondError(c, err, "record lookup failed", "customer_id", customerID)
	}
	return c.JSON(rec)
}
