package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dataverse"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dto"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/mollie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() SubscriptionSettings {
	return SubscriptionSettings{
		Currency:             "EUR",
		FirstAmount:          "0.01",
		FirstDescription:     "Eerste betaling",
		RedirectURL:          "https://example.com/done",
		PaymentWebhook:       "https://example.com/first",
		RecurringAmount:      "9.95",
		RecurringInterval:    "1 month",
		RecurringTimes:       12,
		RecurringDescription: "Recurring payment",
		RecurringWebhook:     "https://example.com/recurring",
		StartDelayDays:       30,
	}
}

func newTestService(p *fakeProvider, s *fakeStore) *SubscriptionService {
	svc := NewSubscriptionService(p, s, testSettings())
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC) }
	return svc
}

func TestInitializeDefaultsAmount(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	svc := newTestService(p, s)

	resp, err := svc.Initialize(context.Background(), dto.InitializeSubscriptionRequest{Email: "jane@example.com", Name: "Jane"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "cst_1", resp.CustomerID)
	assert.Equal(t, "tr_1", resp.PaymentID)
	assert.Equal(t, "https://pay.example/tr_1", resp.CheckoutURL)

	require.Len(t, p.createdPayments, 1)
	req := p.createdPayments[0]
	assert.Equal(t, mollie.Amount{Currency: "EUR", Value: "0.01"}, req.Amount)
	assert.Equal(t, mollie.SequenceFirst, req.SequenceType)
	assert.Equal(t, "Eerste betaling", req.Description)
	assert.Equal(t, "https://example.com/first", req.WebhookURL)
	assert.Equal(t, []string{"cst_1|jane@example.com"}, s.created)
}

func TestInitializeUsesRequestAmount(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	svc := newTestService(p, s)

	_, err := svc.Initialize(context.Background(), dto.InitializeSubscriptionRequest{Email: "jane@example.com", Amount: "5"})
	require.NoError(t, err)
	assert.Equal(t, "5.00", p.createdPayments[0].Amount.Value)
}

func TestInitializeRejectsInvalidAmount(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	svc := newTestService(p, s)

	for _, amount := range []string{"-3", "9.999", "0.001"} {
		_, err := svc.Initialize(context.Background(), dto.InitializeSubscriptionRequest{Email: "jane@example.com", Amount: amount})
		assert.True(t, errors.Is(err, ErrInvalidAmount), amount)
	}
	assert.Empty(t, p.createdPayments)
}

func TestInitializeFailsWhenRecordWriteFails(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	s.createErr = &dataverse.APIError{StatusCode: 403, Message: "forbidden"}
	svc := newTestService(p, s)

	_, err := svc.Initialize(context.Background(), dto.InitializeSubscriptionRequest{Email: "jane@example.com"})
	require.Error(t, err)
	var apiErr *dataverse.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestInitializePropagatesMollieError(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	p.createCustomerErr = &mollie.APIError{StatusCode: 422, Title: "Unprocessable Entity", Detail: "The email address is invalid"}
	svc := newTestService(p, s)

	_, err := svc.Initialize(context.Background(), dto.InitializeSubscriptionRequest{Email: "jane@example.com"})
	var apiErr *mollie.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.Empty(t, s.created)
}

func TestHandleFirstPaymentNotPaid(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	p.payments["tr_1"] = &mollie.Payment{ID: "tr_1", Status: mollie.PaymentFailed, CustomerID: "cst_1"}
	svc := newTestService(p, s)

	res, err := svc.HandleFirstPayment(context.Background(), "tr_1")
	require.NoError(t, err)
	assert.True(t, res.Received)
	assert.False(t, res.Success)
	assert.Equal(t, "failed", res.PaymentStatus)
	assert.Empty(t, p.createdSubs)
	assert.Empty(t, s.updates)
}

func TestHandleFirstPaymentCreatesSubscription(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	p.payments["tr_1"] = &mollie.Payment{ID: "tr_1", Status: mollie.PaymentPaid, CustomerID: "cst_1"}
	svc := newTestService(p, s)

	res, err := svc.HandleFirstPayment(context.Background(), "tr_1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Active)
	assert.Equal(t, "sub_new", res.SubscriptionID)

	require.Len(t, p.createdSubs, 1)
	req := p.createdSubs[0]
	assert.Equal(t, "2026-11-18", req.StartDate)
	assert.Equal(t, 12, req.Times)
	assert.Equal(t, "1 month", req.Interval)
	assert.Equal(t, "9.95", req.Amount.Value)
	assert.Equal(t, "Recurring payment", req.Description)
	assert.Equal(t, "https://example.com/recurring", req.WebhookURL)

	assert.Equal(t, []update{{"cst_1", "sub_new", true}}, s.updates)
}

func TestHandleFirstPaymentReusesExistingSubscription(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	p.payments["tr_1"] = &mollie.Payment{ID: "tr_1", Status: mollie.PaymentPaid, CustomerID: "cst_1"}
	p.customerSubs = []mollie.Subscription{
		{ID: "sub_other", Description: "Something else", Status: mollie.SubscriptionActive},
		{ID: "sub_old", Description: "Recurring payment", Status: mollie.SubscriptionSuspended},
	}
	svc := newTestService(p, s)

	res, err := svc.HandleFirstPayment(context.Background(), "tr_1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Subscription already exists", res.Message)
	assert.Equal(t, "sub_old", res.SubscriptionID)
	assert.False(t, res.Active)
	assert.Empty(t, p.createdSubs)
	assert.Equal(t, []update{{"cst_1", "sub_old", false}}, s.updates)
}

func TestHandleFirstPaymentListFailureStillCreates(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	p.payments["tr_1"] = &mollie.Payment{ID: "tr_1", Status: mollie.PaymentPaid, CustomerID: "cst_1"}
	p.listCustomerErr = errors.New("timeout")
	svc := newTestService(p, s)

	_, err := svc.HandleFirstPayment(context.Background(), "tr_1")
	require.NoError(t, err)
	assert.Len(t, p.createdSubs, 1)
}

func TestHandleFirstPaymentMissingRecord(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	p.payments["tr_1"] = &mollie.Payment{ID: "tr_1", Status: mollie.PaymentPaid, CustomerID: "cst_1"}
	s.updateErr["cst_1"] = dataverse.ErrRecordNotFound
	svc := newTestService(p, s)

	_, err := svc.HandleFirstPayment(context.Background(), "tr_1")
	assert.True(t, errors.Is(err, dataverse.ErrRecordNotFound))
}

func TestHandleFirstPaymentErrors(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	p.payments["tr_nocst"] = &mollie.Payment{ID: "tr_nocst", Status: mollie.PaymentPaid}
	svc := newTestService(p, s)

	_, err := svc.HandleFirstPayment(context.Background(), "")
	assert.True(t, errors.Is(err, ErrMissingPaymentID))

	_, err = svc.HandleFirstPayment(context.Background(), "tr_nocst")
	assert.True(t, errors.Is(err, ErrPaymentWithoutCustomer))

	_, err = svc.HandleFirstPayment(context.Background(), "tr_unknown")
	assert.True(t, mollie.IsNotFound(err))
}

func TestHandlePaymentStatusMirrorsSubscription(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	p.payments["tr_2"] = &mollie.Payment{ID: "tr_2", Status: mollie.PaymentFailed, CustomerID: "cst_1", SubscriptionID: "sub_1"}
	p.subscriptions["sub_1"] = &mollie.Subscription{ID: "sub_1", Status: mollie.SubscriptionSuspended}
	svc := newTestService(p, s)

	res, err := svc.HandlePaymentStatus(context.Background(), "tr_2")
	require.NoError(t, err)
	assert.Equal(t, "failed", res.Status)
	assert.True(t, res.RecordUpdated)
	assert.False(t, res.Active)
	assert.Equal(t, []update{{"cst_1", "sub_1", false}}, s.updates)
}

func TestHandlePaymentStatusWithoutSubscription(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	p.payments["tr_3"] = &mollie.Payment{ID: "tr_3", Status: mollie.PaymentPaid, CustomerID: "cst_1"}
	svc := newTestService(p, s)

	res, err := svc.HandlePaymentStatus(context.Background(), "tr_3")
	require.NoError(t, err)
	assert.Equal(t, "paid", res.Status)
	assert.False(t, res.RecordUpdated)
	assert.Empty(t, s.updates)
}

func TestValidate(t *testing.T) {
	p, s := newFakeProvider(), newFakeStore()
	s.records["cst_on"] = &dataverse.Record{ID: "x", CustomerID: "cst_on", Active: true}
	s.records["cst_off"] = &dataverse.Record{ID: "y", CustomerID: "cst_off"}
	svc := newTestService(p, s)

	res, err := svc.Validate(context.Background(), "cst_on")
	require.NoError(t, err)
	assert.True(t, res.HasAccess)
	assert.True(t, res.Subscription)

	res, err = svc.Validate(context.Background(), "cst_off")
	require.NoError(t, err)
	assert.False(t, res.HasAccess)

	res, err = svc.Validate(context.Background(), "cst_missing")
	require.NoError(t, err)
	assert.False(t, res.HasAccess)
	assert.Equal(t, "No record found for customer", res.Message)

	_, err = svc.Validate(context.Background(), " ")
	assert.True(t, errors.Is(err, ErrMissingCustomerID))
}
