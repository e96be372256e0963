package mollie

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type SequenceType string

const (
	SequenceOneOff    SequenceType = "oneoff"
	SequenceFirst     SequenceType = "first"
	SequenceRecurring SequenceType = "recurring"
)

type PaymentStatus string

const (
	PaymentOpen       PaymentStatus = "open"
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentPaid       PaymentStatus = "paid"
	PaymentFailed     PaymentStatus = "failed"
	PaymentExpired    PaymentStatus = "expired"
	PaymentCanceled   PaymentStatus = "canceled"
)

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCanceled  SubscriptionStatus = "canceled"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionCompleted SubscriptionStatus = "completed"
)

// Amount is a monetary value as Mollie expects it: the value is a string
// with exactly two decimals.
type Amount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

func NewAmount(currency string, value decimal.Decimal) Amount {
	return Amount{Currency: strings.ToUpper(currency), Value: value.StringFixed(2)}
}

// ParseAmount validates a user or config supplied value and normalises it.
func ParseAmount(currency, value string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if !d.IsPositive() {
		return Amount{}, fmt.Errorf("amount must be positive, got %s", value)
	}
	// Mollie takes whole cents; "1.000" is fine, "9.999" is not.
	if !d.Equal(d.Round(2)) {
		return Amount{}, fmt.Errorf("amount %s has more than two decimals", value)
	}
	return NewAmount(currency, d), nil
}

// Link is a HAL link object.
type Link struct {
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

type Customer struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
	Mode     string `json:"mode"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type PaymentRequest struct {
	CustomerID   string       `json:"customerId,omitempty"`
	Amount       Amount       `json:"amount"`
	SequenceType SequenceType `json:"sequenceType,omitempty"`
	Description  string       `json:"description"`
	RedirectURL  string       `json:"redirectUrl,omitempty"`
	WebhookURL   string       `json:"webhookUrl,omitempty"`
}

type Payment struct {
	Resource       string        `json:"resource"`
	ID             string        `json:"id"`
	Mode           string        `json:"mode"`
	Status         PaymentStatus `json:"status"`
	Amount         Amount        `json:"amount"`
	Description    string        `json:"description"`
	SequenceType   SequenceType  `json:"sequenceType"`
	CustomerID     string        `json:"customerId"`
	MandateID      string        `json:"mandateId"`
	SubscriptionID string        `json:"subscriptionId"`
	Links          struct {
		Checkout *Link `json:"checkout"`
	} `json:"_links"`
}

// CheckoutURL returns the hosted checkout page, empty once the payment is
// no longer open.
func (p *Payment) CheckoutURL() string {
	if p.Links.Checkout == nil {
		return ""
	}
	return p.Links.Checkout.Href
}

type SubscriptionRequest struct {
	Amount      Amount `json:"amount"`
	Times       int    `json:"times,omitempty"`
	Interval    string `json:"interval"`
	StartDate   string `json:"startDate,omitempty"`
	Description string `json:"description"`
	WebhookURL  string `json:"webhookUrl,omitempty"`
}

type Subscription struct {
	Resource        string             `json:"resource"`
	ID              string             `json:"id"`
	CustomerID      string             `json:"customerId"`
	Mode            string             `json:"mode"`
	Status          SubscriptionStatus `json:"status"`
	Amount          Amount             `json:"amount"`
	Times           int                `json:"times"`
	TimesRemaining  int                `json:"timesRemaining"`
	Interval        string             `json:"interval"`
	StartDate       string             `json:"startDate"`
	NextPaymentDate string             `json:"nextPaymentDate"`
	Description     string             `json:"description"`
	WebhookURL      string             `json:"webhookUrl"`
}

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionActive
}

type subscriptionList struct {
	Count    int `json:"count"`
	Embedded struct {
		Subscriptions []Subscription `json:"subscriptions"`
	} `json:"_embedded"`
	Links struct {
		Next *Link `json:"next"`
	} `json:"_links"`
}
