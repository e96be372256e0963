package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/config"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dataverse"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dto"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/mollie"
)

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrMissingPaymentID       = errors.New("missing payment ID")
	ErrMissingCustomerID      = errors.New("missing customer ID")
	ErrPaymentWithoutCustomer = errors.New("payment has no customer")
)

// SubscriptionSettings are the payment parameters used when onboarding a
// customer and when turning a first payment into a subscription.
type SubscriptionSettings struct {
	Currency string

	FirstAmount      string
	FirstDescription string
	RedirectURL      string
	PaymentWebhook   string

	RecurringAmount      string
	RecurringInterval    string
	RecurringTimes       int
	RecurringDescription string
	RecurringWebhook     string
	StartDelayDays       int
}

func SettingsFromConfig(cfg *config.Config) SubscriptionSettings {
	return SubscriptionSettings{
		Currency:             cfg.PaymentCurrency,
		FirstAmount:          cfg.FirstPaymentAmount,
		FirstDescription:     cfg.FirstPaymentDescription,
		RedirectURL:          cfg.MollieRedirectURL,
		PaymentWebhook:       cfg.PaymentWebhook,
		RecurringAmount:      cfg.RecurringPaymentAmount,
		RecurringInterval:    cfg.RecurringPaymentInterval,
		RecurringTimes:       cfg.RecurringPaymentTimes,
		RecurringDescription: cfg.RecurringPaymentDescription,
		RecurringWebhook:     cfg.RecurringPaymentWebhook,
		StartDelayDays:       cfg.RecurringStartDelayDays,
	}
}

type SubscriptionService struct {
	payments PaymentProvider
	records  RecordStore
	settings SubscriptionSettings
	now      func() time.Time
}

func NewSubscriptionService(payments PaymentProvider, records RecordStore, settings SubscriptionSettings) *SubscriptionService {
	return &SubscriptionService{
		payments: payments,
		records:  records,
		settings: settings,
		now:      time.Now,
	}
}

// Initialize creates the Mollie customer, its first (mandate) payment and
// the matching record in the records store.
func (s *SubscriptionService) Initialize(ctx context.Context, req dto.InitializeSubscriptionRequest) (*dto.InitializeSubscriptionResponse, error) {
	value := strings.TrimSpace(req.Amount)
	if value == "" {
		value = s.settings.FirstAmount
	}
	amount, err := mollie.ParseAmount(s.settings.Currency, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	customer, err := s.payments.CreateCustomer(ctx, req.Name, req.Email)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	slog.Info("customer created", "customer_id", customer.ID)

	payment, err := s.payments.CreatePayment(ctx, mollie.PaymentRequest{
		CustomerID:   customer.ID,
		Amount:       amount,
		SequenceType: mollie.SequenceFirst,
		Description:  s.settings.FirstDescription,
		RedirectURL:  s.settings.RedirectURL,
		WebhookURL:   s.settings.PaymentWebhook,
	})
	if err != nil {
		return nil, fmt.Errorf("create first payment for %s: %w", customer.ID, err)
	}
	slog.Info("first payment created", "customer_id", customer.ID, "payment_id", payment.ID)

	email := customer.Email
	if email == "" {
		email = req.Email
	}
	recordID, err := s.records.CreateCustomer(ctx, customer.ID, email)
	if err != nil {
		return nil, fmt.Errorf("write customer %s to records store: %w", customer.ID, err)
	}

	return &dto.InitializeSubscriptionResponse{
		Success:     true,
		CustomerID:  customer.ID,
		PaymentID:   payment.ID,
		CheckoutURL: payment.CheckoutURL(),
		RecordID:    recordID,
	}, nil
}

// HandleFirstPayment turns a paid first payment into a recurring
// subscription and marks the customer's record active. Unpaid payments are
// acknowledged without changes.
func (s *SubscriptionService) HandleFirstPayment(ctx context.Context, paymentID string) (*dto.RecurringPaymentResult, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, ErrMissingPaymentID
	}

	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", paymentID, err)
	}

	result := &dto.RecurringPaymentResult{Received: true, PaymentStatus: string(payment.Status)}
	if payment.Status != mollie.PaymentPaid {
		slog.Info("payment not successful", "payment_id", paymentID, "status", payment.Status)
		result.Message = "Payment not paid"
		return result, nil
	}

	customerID := payment.CustomerID
	if customerID == "" {
		return nil, fmt.Errorf("payment %s: %w", paymentID, ErrPaymentWithoutCustomer)
	}

	if existing := s.findExistingSubscription(ctx, customerID); existing != nil {
		slog.Info("subscription already exists", "customer_id", customerID, "subscription_id", existing.ID)
		active := existing.IsActive()
		if _, err := s.records.UpdateSubscription(ctx, customerID, existing.ID, active); err != nil {
			return nil, fmt.Errorf("mirror existing subscription %s: %w", existing.ID, err)
		}
		result.Success = true
		result.Message = "Subscription already exists"
		result.SubscriptionID = existing.ID
		result.Active = active
		return result, nil
	}

	amount, err := mollie.ParseAmount(s.settings.Currency, s.settings.RecurringAmount)
	if err != nil {
		return nil, fmt.Errorf("recurring payment amount: %w", err)
	}

	startDate := s.now().UTC().AddDate(0, 0, s.settings.StartDelayDays).Format("2006-01-02")
	sub, err := s.payments.CreateSubscription(ctx, customerID, mollie.SubscriptionRequest{
		Amount:      amount,
		Times:       s.settings.RecurringTimes,
		Interval:    s.settings.RecurringInterval,
		StartDate:   startDate,
		Description: s.settings.RecurringDescription,
		WebhookURL:  s.settings.RecurringWebhook,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription for %s: %w", customerID, err)
	}
	slog.Info("subscription created",
		"customer_id", customerID,
		"subscription_id", sub.ID,
		"status", sub.Status,
		"start_date", startDate,
	)

	active := sub.IsActive()
	if _, err := s.records.UpdateSubscription(ctx, customerID, sub.ID, active); err != nil {
		return nil, fmt.Errorf("store subscription %s: %w", sub.ID, err)
	}

	result.Success = true
	result.SubscriptionID = sub.ID
	result.Active = active
	return result, nil
}

// findExistingSubscription returns the customer's subscription created by a
// previous delivery of the same webhook. Listing failures are logged and
// treated as "none found".
func (s *SubscriptionService) findExistingSubscription(ctx context.Context, customerID string) *mollie.Subscription {
	subs, err := s.payments.ListCustomerSubscriptions(ctx, customerID)
	if err != nil {
		slog.Warn("error checking existing subscriptions", "customer_id", customerID, "error", err)
		return nil
	}
	for i := range subs {
		if subs[i].Description == s.settings.RecurringDescription {
			return &subs[i]
		}
	}
	return nil
}

// HandlePaymentStatus logs a payment status change and, for payments that
// belong to a subscription, mirrors the subscription status into the record.
func (s *SubscriptionService) HandlePaymentStatus(ctx context.Context, paymentID string) (*dto.PaymentStatusResult, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, ErrMissingPaymentID
	}

	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", paymentID, err)
	}

	log := slog.With("payment_id", payment.ID, "customer_id", payment.CustomerID)
	switch payment.Status {
	case mollie.PaymentPaid:
		log.Info("payment was paid")
	case mollie.PaymentFailed:
		log.Warn("payment failed")
	case mollie.PaymentExpired:
		log.Warn("payment expired")
	case mollie.PaymentCanceled:
		log.Info("payment was canceled")
	default:
		log.Info("payment status changed", "status", payment.Status)
	}

	result := &dto.PaymentStatusResult{
		PaymentID:      payment.ID,
		Status:         string(payment.Status),
		CustomerID:     payment.CustomerID,
		SubscriptionID: payment.SubscriptionID,
	}
	if payment.SubscriptionID == "" || payment.CustomerID == "" {
		return result, nil
	}

	sub, err := s.payments.GetSubscription(ctx, payment.CustomerID, payment.SubscriptionID)
	if err != nil {
		return result, fmt.Errorf("get subscription %s: %w", payment.SubscriptionID, err)
	}
	active := sub.IsActive()
	if _, err := s.records.UpdateSubscription(ctx, payment.CustomerID, sub.ID, active); err != nil {
		return result, fmt.Errorf("store subscription %s: %w", sub.ID, err)
	}
	result.RecordUpdated = true
	result.Active = active
	return result, nil
}

// Validate reports whether the customer currently has access. A customer
// without a record has no access.
func (s *SubscriptionService) Validate(ctx context.Context, customerID string) (*dto.ValidatorResponse, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrMissingCustomerID
	}

	rec, err := s.records.FindByCustomerID(ctx, customerID)
	if errors.Is(err, dataverse.ErrRecordNotFound) {
		return &dto.ValidatorResponse{Message: "No record found for customer"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("validate customer %s: %w", customerID, err)
	}

	resp := &dto.ValidatorResponse{Subscription: rec.Active, HasAccess: rec.Active}
	if !rec.Active {
		resp.Message = "Subscription inactive"
	}
	return resp, nil
}

// Record returns the stored record for customerID.
func (s *SubscriptionService) Record(ctx context.Context, customerID string) (*dataverse.Record, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrMissingCustomerID
	}
	return s.records.FindByCustomerID(ctx, customerID)
}
