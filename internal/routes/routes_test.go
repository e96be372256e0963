package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/config"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dataverse"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/mollie"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noCredential struct{}

func (noCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{}, errors.New("no token in tests")
}

func newApp(t *testing.T, cfg *config.Config) *fiber.App {
	t.Helper()
	payments := mollie.NewClient("test_key", "http://127.0.0.1:1/v2", time.Second)
	records, err := dataverse.NewClient(noCredential{}, dataverse.Config{
		URL: "org.crm.dynamics.com",
		Fields: dataverse.Fields{
			EntitySet:         "accounts",
			EntityLogicalName: "account",
			CustomerID:        "mollie_customer_id",
			Subscription:      "subscription",
			SubscriptionID:    "subscriptionId",
		},
	})
	require.NoError(t, err)

	subs := services.NewSubscriptionService(payments, records, services.SettingsFromConfig(cfg))
	sync := services.NewSyncService(payments, records, nil)

	app := fiber.New()
	Setup(app, cfg,
		handlers.NewHealthHandler(func() error { return nil }, nil),
		handlers.NewSubscriptionHandler(subs),
		handlers.NewWebhookHandler(subs, nil),
		handlers.NewSyncHandler(sync, subs),
	)
	return app
}

func status(t *testing.T, app *fiber.App, method, path string, header ...string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestPublicRoutes(t *testing.T) {
	app := newApp(t, &config.Config{APIKey: "k"})

	assert.Equal(t, fiber.StatusOK, status(t, app, http.MethodGet, "/api/health"))
	assert.Equal(t, fiber.StatusOK, status(t, app, http.MethodGet, "/metrics"))
	// Empty webhook bodies are rejected before any provider call.
	assert.Equal(t, fiber.StatusBadRequest, status(t, app, http.MethodPost, "/api/subscription/recurring/payments/webhook"))
	assert.Equal(t, fiber.StatusOK, status(t, app, http.MethodPost, "/api/subscription/update/payments/webhook"))
}

func TestInternalRoutesRequireAPIKey(t *testing.T) {
	app := newApp(t, &config.Config{APIKey: "k"})

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, http.MethodPost, "/api/subscription/sync"))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, http.MethodGet, "/api/subscription/validator?customerId=cst_1"))
	// Authenticated, but the records store is unreachable.
	assert.Equal(t, fiber.StatusInternalServerError, status(t, app, http.MethodPost, "/api/subscription/sync", "X-API-Key", "k"))
}

func TestInternalRoutesClosedWithoutAPIKey(t *testing.T) {
	app := newApp(t, &config.Config{})

	assert.Equal(t, fiber.StatusServiceUnavailable, status(t, app, http.MethodPost, "/api/subscription/sync"))
	assert.Equal(t, fiber.StatusServiceUnavailable, status(t, app, http.MethodGet, "/api/subscription/validator?customerId=cst_1"))
	assert.Equal(t, fiber.StatusOK, status(t, app, http.MethodGet, "/api/health"))
}

func TestAdminRoutes(t *testing.T) {
	app := newApp(t, &config.Config{APIKey: "k"})
	assert.Equal(t, fiber.StatusNotFound, status(t, app, http.MethodPost, "/api/admin/sync"))

	app = newApp(t, &config.Config{APIKey: "k", JWTSecret: "secret"})
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, http.MethodPost, "/api/admin/sync"))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, http.MethodGet, "/api/admin/records/cst_1", "Authorization", "Bearer nope"))
}
