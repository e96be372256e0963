package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENTITY_NAME", "")
	t.Setenv("SYNC_SCHEDULE", "")
	t.Setenv("RECURRING_PAYMENT_TIMES", "")
	t.Setenv("DB_HOST", "")

	cfg := Load()

	assert.Equal(t, "accounts", cfg.EntityName)
	assert.Equal(t, "account", cfg.EntityNameSingular)
	assert.Equal(t, "mollie_customer_id", cfg.ClientIDField)
	assert.Equal(t, "subscription", cfg.SubscriptionField)
	assert.Equal(t, "subscriptionId", cfg.SubscriptionIDField)
	assert.Equal(t, "emailaddress1", cfg.EmailField)
	assert.Equal(t, "0 0 7 * * *", cfg.SyncSchedule)
	assert.Equal(t, 12, cfg.RecurringPaymentTimes)
	assert.Equal(t, "EUR", cfg.PaymentCurrency)
	assert.False(t, cfg.DatabaseEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENTITY_NAME", "contacts")
	t.Setenv("RECURRING_PAYMENT_TIMES", "6")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("SYNC_RUN_ON_STARTUP", "false")
	t.Setenv("DB_HOST", "db.internal")

	cfg := Load()

	assert.Equal(t, "contacts", cfg.EntityName)
	assert.Equal(t, 6, cfg.RecurringPaymentTimes)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.SyncRunOnStartup)
	assert.True(t, cfg.DatabaseEnabled())
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("RECURRING_PAYMENT_TIMES", "twelve")
	t.Setenv("HTTP_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 12, cfg.RecurringPaymentTimes)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.True(t, errors.Is(cfg.Validate(), ErrMissingMollie))

	cfg.MollieAPIKey = "test_key"
	cfg.TenantID = "tenant"
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingDataverse))
	assert.Contains(t, err.Error(), "DATAVERSE_URL")
	assert.NotContains(t, err.Error(), "TENANT_ID")

	cfg.ApplicationID = "app"
	cfg.ClientSecret = "secret"
	cfg.DataverseURL = "org.crm4.dynamics.com"
	cfg.PaymentCurrency = "EUR"
	cfg.FirstPaymentAmount = "0.01"
	cfg.RecurringPaymentAmount = "9.95"
	cfg.APIKey = "k"
	assert.NoError(t, cfg.Validate())
}

func TestValidateDataverseListIsSorted(t *testing.T) {
	cfg := &Config{MollieAPIKey: "test_key"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APPLICATION_ID, CLIENT_SECRET, DATAVERSE_URL, TENANT_ID")
}

func validConfig() *Config {
	return &Config{
		MollieAPIKey:           "test_key",
		TenantID:               "tenant",
		ApplicationID:          "app",
		ClientSecret:           "secret",
		DataverseURL:           "org.crm4.dynamics.com",
		PaymentCurrency:        "EUR",
		FirstPaymentAmount:     "0.01",
		RecurringPaymentAmount: "9.95",
		APIKey:                 "k",
	}
}

func TestValidatePaymentAmounts(t *testing.T) {
	for _, amount := range []string{"", "0", "-1", "9.999", "ten"} {
		cfg := validConfig()
		cfg.RecurringPaymentAmount = amount
		err := cfg.Validate()
		assert.True(t, errors.Is(err, ErrInvalidAmount), "recurring %q", amount)
		assert.Contains(t, err.Error(), "RECURRING_PAYMENT_AMOUNT")
	}

	cfg := validConfig()
	cfg.FirstPaymentAmount = "0.001"
	err := cfg.Validate()
	assert.True(t, errors.Is(err, ErrInvalidAmount))
	assert.Contains(t, err.Error(), "FIRST_PAYMENT_AMOUNT")
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.APIKey = ""
	assert.True(t, errors.Is(cfg.Validate(), ErrMissingAPIKey))

	cfg.APIKeyHash = "$2a$10$abcdefghijklmnopqrstuv"
	assert.NoError(t, cfg.Validate())
}
