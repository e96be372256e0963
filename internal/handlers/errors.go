package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dataverse"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dto"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/mollie"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/services"
	"github.com/gofiber/fiber/v2"
)

// statusFor maps a service error to the response status and the message
// the caller may see. Mollie client errors keep their status, except auth
// failures which are our misconfiguration, not the caller's.
func statusFor(err error) (int, string) {
	var mollieErr *mollie.APIError
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		return fiber.StatusBadRequest, "Invalid amount"
	case errors.Is(err, services.ErrMissingPaymentID):
		return fiber.StatusBadRequest, "Missing payment ID"
	case errors.Is(err, services.ErrMissingCustomerID):
		return fiber.StatusBadRequest, "customerId or userId is required"
	case errors.Is(err, services.ErrPaymentWithoutCustomer):
		return fiber.StatusUnprocessableEntity, "Payment has no customer"
	case errors.Is(err, dataverse.ErrRecordNotFound):
		return fiber.StatusNotFound, "Record not found"
	case errors.As(err, &mollieErr) &&
		mollieErr.StatusCode >= 400 && mollieErr.StatusCode < 500 &&
		mollieErr.StatusCode != fiber.StatusUnauthorized && mollieErr.StatusCode != fiber.StatusForbidden:
		msg := mollieErr.Detail
		if msg == "" {
			msg = mollieErr.Title
		}
		return mollieErr.StatusCode, msg
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}

func respondError(c *fiber.Ctx, err error, logMsg string, attrs ...any) error {
	code, msg := statusFor(err)
	attrs = append(attrs, "error", err, "status", code, "request_id", requestID(c))
	if code >= 500 {
		slog.Error(logMsg, attrs...)
	} else {
		slog.Warn(logMsg, attrs...)
	}
	return c.Status(code).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
