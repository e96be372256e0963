package middleware

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/config"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dto"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyRequired guards the internal sync and validator endpoints. The key
// is read from "Authorization: Bearer <key>" or X-API-Key. When API_KEY_HASH
// is set the key is checked against that bcrypt hash, otherwise against
// API_KEY. With neither configured every request is refused.
func APIKeyRequired(cfg *config.Config) fiber.Handler {
	hash := []byte(cfg.APIKeyHash)
	plain := []byte(cfg.APIKey)
	if len(hash) == 0 && len(plain) == 0 {
		slog.Error("API_KEY and API_KEY_HASH are unset, internal endpoints are disabled")
		return func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Error: true, Message: "API key not configured",
			})
		}
	}

	return func(c *fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if auth := c.Get(fiber.HeaderAuthorization); key == "" && strings.HasPrefix(auth, "Bearer ") {
			key = strings.TrimPrefix(auth, "Bearer ")
		}
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Missing API key",
			})
		}

		var ok bool
		if len(hash) > 0 {
			ok = bcrypt.CompareHashAndPassword(hash, []byte(key)) == nil
		} else {
			ok = subtle.ConstantTimeCompare([]byte(key), plain) == 1
		}
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		return c.Next()
	}
}
