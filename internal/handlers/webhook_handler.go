package handlers

import (
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dto"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/models"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/services"
	"github.com/gofiber/fiber/v2"
)

const (
	kindFirstPayment  = "first_payment"
	kindPaymentStatus = "payment_status"
)

type WebhookHandler struct {
	subscriptionService *services.SubscriptionService
	audit               services.AuditLog
}

func NewWebhookHandler(subscriptionService *services.SubscriptionService, audit services.AuditLog) *WebhookHandler {
	if audit == nil {
		audit = services.NopAuditLog{}
	}
	return &WebhookHandler{
		subscriptionService: subscriptionService,
		audit:               audit,
	}
}

// RecurringPayment handles the webhook of the first payment. Once it is
// paid the customer gets a recurring subscription.
func (h *WebhookHandler) RecurringPayment(c *fiber.Ctx) error {
	received := time.Now().UTC()
	paymentID := webhookID(c)
	if paymentID == "" {
		slog.Warn("no payment ID found in webhook", "body", string(c.Body()))
		h.record(c, kindFirstPayment, "", "", "rejected", nil, received)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Missing payment ID",
		})
	}
	slog.Info("received first payment webhook", "payment_id", paymentID)

	res, err := h.subscriptionService.HandleFirstPayment(c.UserContext(), paymentID)
	if err != nil {
		h.record(c, kindFirstPayment, paymentID, "", "failed", err, received)
		return respondError(c, err, "first payment webhook failed", "payment_id", paymentID)
	}

	outcome := "processed"
	if !res.Success {
		outcome = "ignored"
	}
	h.record(c, kindFirstPayment, paymentID, "", outcome, nil, received)
	return c.JSON(res)
}

// PaymentStatus handles status changes of any payment. Mollie retries
// anything but 2xx, so failures are reported in the body, not the status.
func (h *WebhookHandler) PaymentStatus(c *fiber.Ctx) error {
	received := time.Now().UTC()
	paymentID := webhookID(c)
	if paymentID == "" {
		slog.Warn("payment status webhook without payment ID")
		h.record(c, kindPaymentStatus, "", "", "rejected", nil, received)
		return c.JSON(dto.WebhookAck{Received: true, ProcessedWithError: true, Message: "Missing payment ID"})
	}

	res, err := h.subscriptionService.HandlePaymentStatus(c.UserContext(), paymentID)
	customerID := ""
	if res != nil {
		customerID = res.CustomerID
	}
	if err != nil {
		slog.Error("payment status webhook failed", "payment_id", paymentID, "error", err)
		h.record(c, kindPaymentStatus, paymentID, customerID, "failed", err, received)
		return c.JSON(dto.WebhookAck{Received: true, ProcessedWithError: true})
	}

	h.record(c, kindPaymentStatus, paymentID, customerID, "processed", nil, received)
	return c.JSON(dto.WebhookAck{Received: true})
}

func (h *WebhookHandler) record(c *fiber.Ctx, kind, objectID, customerID, outcome string, err error, received time.Time) {
	metrics.Get().RecordWebhook(kind, outcome)
	event := models.WebhookEvent{
		Kind:       kind,
		ObjectID:   objectID,
		CustomerID: customerID,
		Outcome:    outcome,
		ReceivedAt: received,
	}
	if err != nil {
		event.Error = err.Error()
	}
	h.audit.RecordWebhook(c.UserContext(), event)
}

// webhookID reads the "id" Mollie posts, from a form or a JSON body.
func webhookID(c *fiber.Ctx) string {
	var hook dto.MollieWebhook
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&hook); err != nil {
			slog.Debug("unparseable webhook body", "error", err)
		}
	}
	if hook.ID == "" {
		hook.ID = c.Query("id")
	}
	return strings.TrimSpace(hook.ID)
}
