package services

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dataverse"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/mollie"
)

// PaymentProvider is the subset of the Mollie client the services use.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, name, email string) (*mollie.Customer, error)
	CreatePayment(ctx context.Context, req mollie.PaymentRequest) (*mollie.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*mollie.Payment, error)
	ListCustomerSubscriptions(ctx context.Context, customerID string) ([]mollie.Subscription, error)
	GetSubscription(ctx context.Context, customerID, subscriptionID string) (*mollie.Subscription, error)
	CreateSubscription(ctx context.Context, customerID string, req mollie.SubscriptionRequest) (*mollie.Subscription, error)
	ListSubscriptions(ctx context.Context, fn func(mollie.Subscription) error) error
}

// RecordStore is the subset of the Dataverse client the services use.
type RecordStore interface {
	FindByCustomerID(ctx context.Context, customerID string) (*dataverse.Record, error)
	UpdateSubscription(ctx context.Context, customerID, subscriptionID string, active bool) (*dataverse.Record, error)
	UpdateRecord(ctx context.Context, recordID, subscriptionID string, active bool) (*dataverse.Record, error)
	CreateCustomer(ctx context.Context, customerID, email string) (string, error)
	ListWithSubscription(ctx context.Context) ([]dataverse.Record, error)
}

var (
	_ PaymentProvider = (*mollie.Client)(nil)
	_ RecordStore     = (*dataverse.Client)(nil)
)
