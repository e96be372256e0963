package mollie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.mollie.com/v2"
	pageLimit      = 250
)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateCustomer(ctx context.Context, name, email string) (*Customer, error) {
	var customer Customer
	body := map[string]string{"name": name, "email": email}
	if err := c.do(ctx, http.MethodPost, "/customers", body, &customer); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &customer, nil
}

func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodPost, "/payments", req, &payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return &payment, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, errors.New("payment id is required")
	}
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &payment); err != nil {
		return nil, fmt.Errorf("get payment %s: %w", paymentID, err)
	}
	return &payment, nil
}

func (c *Client) ListCustomerSubscriptions(ctx context.Context, customerID string) ([]Subscription, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, errors.New("customer id is required")
	}
	var out []Subscription
	path := fmt.Sprintf("/customers/%s/subscriptions?limit=%d", url.PathEscape(customerID), pageLimit)
	err := c.paginate(ctx, c.baseURL+path, func(s Subscription) error {
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for %s: %w", customerID, err)
	}
	return out, nil
}

func (c *Client) GetSubscription(ctx context.Context, customerID, subscriptionID string) (*Subscription, error) {
	if strings.TrimSpace(customerID) == "" || strings.TrimSpace(subscriptionID) == "" {
		return nil, errors.New("customer id and subscription id are required")
	}
	var sub Subscription
	path := "/customers/" + url.PathEscape(customerID) + "/subscriptions/" + url.PathEscape(subscriptionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &sub); err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}
	return &sub, nil
}

func (c *Client) CreateSubscription(ctx context.Context, customerID string, req SubscriptionRequest) (*Subscription, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, errors.New("customer id is required")
	}
	var sub Subscription
	path := "/customers/" + url.PathEscape(customerID) + "/subscriptions"
	if err := c.do(ctx, http.MethodPost, path, req, &sub); err != nil {
		return nil, fmt.Errorf("create subscription for %s: %w", customerID, err)
	}
	return &sub, nil
}

// ListSubscriptions walks every subscription of the organisation, page by
// page, calling fn for each. Returning an error from fn stops the walk.
func (c *Client) ListSubscriptions(ctx context.Context, fn func(Subscription) error) error {
	first := fmt.Sprintf("%s/subscriptions?limit=%d", c.baseURL, pageLimit)
	if err := c.paginate(ctx, first, fn); err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	return nil
}

func (c *Client) paginate(ctx context.Context, next string, fn func(Subscription) error) error {
	seen := make(map[string]bool)
	for next != "" && !seen[next] {
		seen[next] = true

		var page subscriptionList
		if err := c.doURL(ctx, http.MethodGet, next, nil, &page); err != nil {
			return err
		}
		for _, s := range page.Embedded.Subscriptions {
			if err := fn(s); err != nil {
				return err
			}
		}

		next = ""
		if page.Links.Next != nil {
			next = page.Links.Next.Href
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	return c.doURL(ctx, method, c.baseURL+path, in, out)
}

func (c *Client) doURL(ctx context.Context, method, endpoint string, in, out interface{}) error {
	if c.apiKey == "" {
		return errors.New("MOLLIE_API_KEY is not configured")
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/hal+json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
