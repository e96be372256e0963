package dto

// MollieWebhook is the callback body Mollie posts: a form with only the id
// of the changed object (tr_… for payments). JSON bodies are accepted too.
type MollieWebhook struct {
	ID string `json:"id" form:"id"`
}

type WebhookAck struct {
	Received           bool   `json:"received"`
	ProcessedWithError bool   `json:"processedWithError,omitempty"`
	Message            string `json:"message,omitempty"`
}

// RecurringPaymentResult is returned by the first-payment webhook.
type RecurringPaymentResult struct {
	Received       bool   `json:"received"`
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	PaymentStatus  string `json:"paymentStatus,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	Active         bool   `json:"active"`
}

// PaymentStatusResult describes what the payment status webhook did.
type PaymentStatusResult struct {
	PaymentID      string `json:"paymentId"`
	Status         string `json:"status"`
	CustomerID     string `json:"customerId,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	RecordUpdated  bool   `json:"recordUpdated"`
	Active         bool   `json:"active"`
}
