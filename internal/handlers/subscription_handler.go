package handlers

import (
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dto"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/services"
	"github.com/gofiber/fiber/v2"
)

type SubscriptionHandler struct {
	subscriptionService *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// Initialize onboards a customer: Mollie customer, first payment, record.
func (h *SubscriptionHandler) Initialize(c *fiber.Ctx) error {
	var req dto.InitializeSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	resp, err := h.subscriptionService.Initialize(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "subscription initialization failed")
	}
	return c.JSON(resp)
}

// Validator answers whether a customer currently has access. The id comes
// from the query string or, for POST, a JSON body.
func (h *SubscriptionHandler) Validator(c *fiber.Ctx) error {
	var req dto.ValidatorRequest
	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid request body",
			})
		}
	}
	if req.Key() == "" {
		if err := c.QueryParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid query",
			})
		}
	}

	resp, err := h.subscriptionService.Validate(c.UserContext(), req.Key())
	if err != nil {
		return respondError(c, err, "subscription validation failed", "customer_id", req.Key())
	}
	return c.JSON(resp)
}
