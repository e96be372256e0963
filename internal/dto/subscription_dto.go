package dto

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type InitializeSubscriptionRequest struct {
	Email  string `json:"email" validate:"required,email,max=200"`
	Name   string `json:"name" validate:"max=150"`
	Amount string `json:"amount" validate:"omitempty,numeric"`
}

// Validate checks the request and returns a message fit for the caller.
func (r *InitializeSubscriptionRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	switch {
	case fe.Field() == "Email" && fe.Tag() == "required":
		return errors.New("Email address is required")
	case fe.Field() == "Email":
		return errors.New("Invalid email address")
	case fe.Field() == "Amount":
		return errors.New("Amount must be a decimal number")
	default:
		return fmt.Errorf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

type InitializeSubscriptionResponse struct {
	Success     bool   `json:"success"`
	CustomerID  string `json:"customerId"`
	PaymentID   string `json:"paymentId"`
	CheckoutURL string `json:"checkoutUrl"`
	RecordID    string `json:"recordId,omitempty"`
}

type ValidatorRequest struct {
	CustomerID string `json:"customerId" query:"customerId"`
	UserID     string `json:"userId" query:"userId"`
}

// Key returns whichever identifier the caller supplied.
func (r ValidatorRequest) Key() string {
	if r.CustomerID != "" {
		return r.CustomerID
	}
	return r.UserID
}

// ValidatorResponse carries both the legacy "subscription" flag and the
// hasAccess shape the app-side access check reads.
type ValidatorResponse struct {
	Subscription bool   `json:"subscription"`
	HasAccess    bool   `json:"hasAccess"`
	Message      string `json:"message,omitempty"`
}

type SyncSummary struct {
	RunID       string `json:"runId,omitempty"`
	Trigger     string `json:"trigger"`
	Processed   int    `json:"processed"`
	Updated     int    `json:"updated"`
	Deactivated int    `json:"deactivated"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
}
