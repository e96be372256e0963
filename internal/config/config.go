package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/mollie"
)

var (
	ErrMissingMollie    = errors.New("MOLLIE_API_KEY environment variable is not set")
	ErrMissingDataverse = errors.New("missing required environment variables for Dataverse connection")
	ErrInvalidAmount    = errors.New("invalid payment amount")
	ErrMissingAPIKey    = errors.New("API_KEY or API_KEY_HASH must be set")
)

type Config struct {
	// Database (optional audit store)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	LogRetentionDays int

	// Mollie
	MollieAPIKey string
	MollieAPIURL string

	PaymentCurrency         string
	FirstPaymentAmount      string
	FirstPaymentDescription string
	PaymentWebhook          string
	MollieRedirectURL       string

	RecurringPaymentAmount      string
	RecurringPaymentInterval    string
	RecurringPaymentTimes       int
	RecurringPaymentDescription string
	RecurringPaymentWebhook     string
	RecurringStartDelayDays     int

	// Dataverse
	TenantID            string
	ApplicationID       string
	ClientSecret        string
	DataverseURL        string
	DataversePageSize   int
	EntityName          string
	EntityNameSingular  string
	ClientIDField       string
	SubscriptionField   string
	SubscriptionIDField string
	EmailField          string

	HTTPTimeout time.Duration

	// Schedules (cron, seconds field first)
	SyncSchedule     string
	SyncRunOnStartup bool
	MonitorSchedule  string

	// Internal endpoint auth
	APIKey      string
	APIKeyHash  string
	JWTSecret   string
	AdminEmails string

	// Server
	Port        string
	CORSOrigins string
	LogLevel    string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "subscription_sync"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),

		MollieAPIKey: getEnv("MOLLIE_API_KEY", ""),
		MollieAPIURL: getEnv("MOLLIE_API_URL", "https://api.mollie.com/v2"),

		PaymentCurrency:         getEnv("PAYMENT_CURRENCY", "EUR"),
		FirstPaymentAmount:      getEnv("FIRST_PAYMENT_AMOUNT", "0.01"),
		FirstPaymentDescription: getEnv("FIRST_PAYMENT_DESCRIPTION", "Eerste betaling"),
		PaymentWebhook:          getEnv("PAYMENT_WEBHOOK", ""),
		MollieRedirectURL:       getEnv("MOLLIE_REDIRECT_URL", ""),

		RecurringPaymentAmount:      getEnv("RECURRING_PAYMENT_AMOUNT", ""),
		RecurringPaymentInterval:    getEnv("RECURRING_PAYMENT_INTERVAL", "1 month"),
		RecurringPaymentTimes:       parseInt(getEnv("RECURRING_PAYMENT_TIMES", "12"), 12),
		RecurringPaymentDescription: getEnv("RECURRING_PAYMENT_DESCRIPTION", "Recurring payment"),
		RecurringPaymentWebhook:     getEnv("RECURRING_PAYMENT_WEBHOOK", ""),
		RecurringStartDelayDays:     parseInt(getEnv("RECURRING_START_DELAY_DAYS", "30"), 30),

		TenantID:            getEnv("TENANT_ID", ""),
		ApplicationID:       getEnv("APPLICATION_ID", ""),
		ClientSecret:        getEnv("CLIENT_SECRET", ""),
		DataverseURL:        getEnv("DATAVERSE_URL", ""),
		DataversePageSize:   parseInt(getEnv("DATAVERSE_PAGE_SIZE", "500"), 500),
		EntityName:          getEnv("ENTITY_NAME", "accounts"),
		EntityNameSingular:  getEnv("ENTITY_NAME_SINGULAR", "account"),
		ClientIDField:       getEnv("CLIENT_ID_FIELD", "mollie_customer_id"),
		SubscriptionField:   getEnv("SUBSCRIPTION_FIELD", "subscription"),
		SubscriptionIDField: getEnv("SUBSCRIPTION_ID_FIELD", "subscriptionId"),
		EmailField:          getEnv("EMAIL_FIELD", "emailaddress1"),

		HTTPTimeout: parseDuration(getEnv("HTTP_TIMEOUT", "15s")),

		SyncSchedule:     getEnv("SYNC_SCHEDULE", "0 0 7 * * *"),
		SyncRunOnStartup: parseBool(getEnv("SYNC_RUN_ON_STARTUP", "true")),
		MonitorSchedule:  getEnv("MONITOR_SCHEDULE", "0 0 7 * * *"),

		APIKey:      getEnv("API_KEY", ""),
		APIKeyHash:  getEnv("API_KEY_HASH", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		AdminEmails: getEnv("ADMIN_EMAILS", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports settings without which no handler can work.
func (c *Config) Validate() error {
	if c.MollieAPIKey == "" {
		return ErrMissingMollie
	}
	var missing []string
	for name, val := range map[string]string{
		"TENANT_ID":      c.TenantID,
		"APPLICATION_ID": c.ApplicationID,
		"CLIENT_SECRET":  c.ClientSecret,
		"DATAVERSE_URL":  c.DataverseURL,
	} {
		if val == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrMissingDataverse, strings.Join(missing, ", "))
	}

	// A bad amount would otherwise only surface after a customer has paid.
	if _, err := mollie.ParseAmount(c.PaymentCurrency, c.FirstPaymentAmount); err != nil {
		return fmt.Errorf("%w: FIRST_PAYMENT_AMOUNT: %v", ErrInvalidAmount, err)
	}
	if _, err := mollie.ParseAmount(c.PaymentCurrency, c.RecurringPaymentAmount); err != nil {
		return fmt.Errorf("%w: RECURRING_PAYMENT_AMOUNT: %v", ErrInvalidAmount, err)
	}

	if c.APIKey == "" && c.APIKeyHash == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func (c *Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
