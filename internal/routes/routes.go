package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/config"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	webhookHandler *handlers.WebhookHandler,
	syncHandler *handlers.SyncHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	subscription := api.Group("/subscription")

	// Onboarding is public; stricter limit per IP
	subscription.Post("/initialize", limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}), subscriptionHandler.Initialize)

	// Mollie webhooks (no auth, Mollie only posts the object id)
	subscription.Post("/recurring/payments/webhook", webhookHandler.RecurringPayment)
	subscription.Post("/update/payments/webhook", webhookHandler.PaymentStatus)

	// Internal endpoints (API key)
	apiKey := middleware.APIKeyRequired(cfg)
	subscription.Post("/sync", apiKey, syncHandler.Sync)
	subscription.Get("/validator", apiKey, subscriptionHandler.Validator)
	subscription.Post("/validator", apiKey, subscriptionHandler.Validator)

	// Admin API only exists when a JWT secret is configured
	if cfg.JWTSecret == "" {
		return
	}
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(cfg))
	admin.Post("/sync", syncHandler.AdminSync)
	admin.Get("/sync/runs", syncHandler.Runs)
	admin.Get("/records/:customer_id", syncHandler.Record)
}
