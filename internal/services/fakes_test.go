package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/dataverse"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/models"
	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/mollie"
)

type fakeProvider struct {
	customer      *mollie.Customer
	payments      map[string]*mollie.Payment
	subscriptions map[string]*mollie.Subscription
	customerSubs  []mollie.Subscription

	createCustomerErr error
	createPaymentErr  error
	listCustomerErr   error
	createSubErr      error
	getSubErr         map[string]error
	listErr           error

	createdPayments []mollie.PaymentRequest
	createdSubs     []mollie.SubscriptionRequest
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		customer:      &mollie.Customer{ID: "cst_1", Email: "jane@example.com"},
		payments:      map[string]*mollie.Payment{},
		subscriptions: map[string]*mollie.Subscription{},
		getSubErr:     map[string]error{},
	}
}

func (f *fakeProvider) CreateCustomer(_ context.Context, name, email string) (*mollie.Customer, error) {
	if f.createCustomerErr != nil {
		return nil, f.createCustomerErr
	}
	return f.customer, nil
}

func (f *fakeProvider) CreatePayment(_ context.Context, req mollie.PaymentRequest) (*mollie.Payment, error) {
	if f.createPaymentErr != nil {
		return nil, f.createPaymentErr
	}
	f.createdPayments = append(f.createdPayments, req)
	p := &mollie.Payment{ID: "tr_1", Status: mollie.PaymentOpen, CustomerID: req.CustomerID}
	p.Links.Checkout = &mollie.Link{Href: "https://pay.example/tr_1"}
	return p, nil
}

func (f *fakeProvider) GetPayment(_ context.Context, id string) (*mollie.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, &mollie.APIError{StatusCode: 404, Title: "Not Found"}
	}
	return p, nil
}

func (f *fakeProvider) ListCustomerSubscriptions(_ context.Context, customerID string) ([]mollie.Subscription, error) {
	return f.customerSubs, f.listCustomerErr
}

func (f *fakeProvider) GetSubscription(_ context.Context, customerID, id string) (*mollie.Subscription, error) {
	if err := f.getSubErr[id]; err != nil {
		return nil, err
	}
	s, ok := f.subscriptions[id]
	if !ok {
		return nil, &mollie.APIError{StatusCode: 404, Title: "Not Found"}
	}
	return s, nil
}

func (f *fakeProvider) CreateSubscription(_ context.Context, customerID string, req mollie.SubscriptionRequest) (*mollie.Subscription, error) {
	if f.createSubErr != nil {
		return nil, f.createSubErr
	}
	f.createdSubs = append(f.createdSubs, req)
	return &mollie.Subscription{ID: "sub_new", CustomerID: customerID, Status: mollie.SubscriptionActive}, nil
}

func (f *fakeProvider) ListSubscriptions(_ context.Context, fn func(mollie.Subscription) error) error {
	if f.listErr != nil {
		return f.listErr
	}
	for _, s := range f.subscriptions {
		if err := fn(*s); err != nil {
			return err
		}
	}
	return nil
}

type update struct {
	CustomerID     string
	SubscriptionID string
	Active         bool
}

type recordUpdate struct {
	RecordID       string
	SubscriptionID string
	Active         bool
}

type fakeStore struct {
	mu        sync.Mutex
	records   map[string]*dataverse.Record
	list      []dataverse.Record
	listErr   error
	createErr error
	updateErr map[string]error
	updates   []update
	patched   []recordUpdate
	created   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*dataverse.Record{}, updateErr: map[string]error{}}
}

func (f *fakeStore) FindByCustomerID(_ context.Context, customerID string) (*dataverse.Record, error) {
	rec, ok := f.records[customerID]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", customerID, dataverse.ErrRecordNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) UpdateSubscription(_ context.Context, customerID, subscriptionID string, active bool) (*dataverse.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[customerID]; err != nil {
		return nil, err
	}
	f.updates = append(f.updates, update{customerID, subscriptionID, active})
	rec := &dataverse.Record{CustomerID: customerID, SubscriptionID: subscriptionID, Active: active}
	return rec, nil
}

// UpdateRecord fails for record ids listed in updateErr.
func (f *fakeStore) UpdateRecord(_ context.Context, recordID, subscriptionID string, active bool) (*dataverse.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[recordID]; err != nil {
		return nil, err
	}
	f.patched = append(f.patched, recordUpdate{recordID, subscriptionID, active})
	return &dataverse.Record{ID: recordID, SubscriptionID: subscriptionID, Active: active}, nil
}

func (f *fakeStore) CreateCustomer(_ context.Context, customerID, email string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, customerID+"|"+email)
	return "5a1f6c0e-3c2b-4b8f-9a51-0a7d3c9e2f11", nil
}

func (f *fakeStore) ListWithSubscription(context.Context) ([]dataverse.Record, error) {
	return f.list, f.listErr
}

type fakeAudit struct {
	runs      []models.SyncRun
	webhooks  []models.WebhookEvent
	lastLimit int
}

func (f *fakeAudit) RecordWebhook(_ context.Context, e models.WebhookEvent) {
	f.webhooks = append(f.webhooks, e)
}

func (f *fakeAudit) RecordSyncRun(_ context.Context, r models.SyncRun) string {
	f.runs = append(f.runs, r)
	return fmt.Sprintf("run-%d", len(f.runs))
}

func (f *fakeAudit) RecentSyncRuns(_ context.Context, limit int) ([]models.SyncRun, error) {
	f.lastLimit = limit
	return f.runs, nil
}
