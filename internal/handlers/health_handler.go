package handlers

import (
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	ping  func() error
	dbErr error
}

// NewHealthHandler takes the database ping; notConfigured is the error
// ping returns when running without a database.
func NewHealthHandler(ping func() error, notConfigured error) *HealthHandler {
	return &HealthHandler{ping: ping, dbErr: notConfigured}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.ping(); err != nil {
		if h.dbErr != nil && errors.Is(err, h.dbErr) {
			dbStatus = "disabled"
		} else {
			dbStatus = "unhealthy: " + err.Error()
		}
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
	})
}
