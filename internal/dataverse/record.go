package dataverse

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidURL     = errors.New("invalid Dataverse URL")
)

// Fields maps the logical record attributes onto the column names of the
// configured table.
type Fields struct {
	EntitySet         string // collection name, e.g. "accounts"
	EntityLogicalName string // singular name, e.g. "account"
	CustomerID        string
	Email             string
	Subscription      string
	SubscriptionID    string
}

// PrimaryKey follows the Dataverse convention of <logical name>id.
func (f Fields) PrimaryKey() string {
	return f.EntityLogicalName + "id"
}

func (f Fields) selectList() string {
	cols := []string{f.PrimaryKey(), f.CustomerID}
	for _, c := range []string{f.Email, f.Subscription, f.SubscriptionID} {
		if c != "" {
			cols = append(cols, c)
		}
	}
	return strings.Join(cols, ",")
}

// Record is a customer row in the records store.
type Record struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer_id"`
	Email          string `json:"email"`
	Active         bool   `json:"active"`
	SubscriptionID string `json:"subscription_id"`
}

func (f Fields) decode(row map[string]interface{}) (Record, error) {
	rec := Record{
		ID:             stringField(row, f.PrimaryKey()),
		CustomerID:     stringField(row, f.CustomerID),
		Email:          stringField(row, f.Email),
		SubscriptionID: stringField(row, f.SubscriptionID),
	}
	if v, ok := row[f.Subscription].(bool); ok {
		rec.Active = v
	}
	if rec.ID != "" {
		if _, err := uuid.Parse(rec.ID); err != nil {
			return rec, fmt.Errorf("record has invalid primary key %q: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func stringField(row map[string]interface{}, key string) string {
	if key == "" {
		return ""
	}
	s, _ := row[key].(string)
	return s
}

// NormalizeURL adds the https scheme when missing and checks that the
// result is an absolute URL.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.HasPrefix(raw, "https://") && !strings.HasPrefix(raw, "http://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %s. Please provide a valid URL like \"https://yourorg.crm.dynamics.com\"", ErrInvalidURL, raw)
	}
	return raw, nil
}

// quote escapes a value for use inside an OData string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// entityIDFromHeader extracts the GUID from an OData-EntityId header such as
// https://org.crm.dynamics.com/api/data/v9.2/accounts(00000000-0000-0000-0000-000000000001).
func entityIDFromHeader(h string) (string, error) {
	open := strings.LastIndex(h, "(")
	end := strings.LastIndex(h, ")")
	if open < 0 || end <= open {
		return "", fmt.Errorf("unexpected OData-EntityId %q", h)
	}
	id, err := uuid.Parse(h[open+1 : end])
	if err != nil {
		return "", fmt.Errorf("unexpected OData-EntityId %q: %w", h, err)
	}
	return id.String(), nil
}
