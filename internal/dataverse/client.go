package dataverse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/subscription-sync/internal/metrics"
)

const apiPath = "/api/data/v9.2"

type Config struct {
	URL      string
	Fields   Fields
	PageSize int
	Timeout  time.Duration
}

// Client talks to the Dataverse Web API for a single table.
type Client struct {
	baseURL    string
	apiURL     string
	fields     Fields
	pageSize   int
	cred       azcore.TokenCredential
	httpClient *http.Client
}

// NewCredential builds the client-credentials identity used for every call.
// The credential caches tokens until shortly before they expire.
func NewCredential(tenantID, clientID, clientSecret string) (azcore.TokenCredential, error) {
	if tenantID == "" || clientID == "" || clientSecret == "" {
		return nil, errors.New("missing required environment variables for Dataverse connection")
	}
	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ClientSecretCredential: %w", err)
	}
	return cred, nil
}

func NewClient(cred azcore.TokenCredential, cfg Config) (*Client, error) {
	base, err := NormalizeURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Fields.EntitySet == "" || cfg.Fields.EntityLogicalName == "" || cfg.Fields.CustomerID == "" || cfg.Fields.Subscription == "" {
		return nil, errors.New("entity set, logical name, customer id and subscription fields are required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    base,
		apiURL:     base + apiPath,
		fields:     cfg.Fields,
		pageSize:   cfg.PageSize,
		cred:       cred,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) Fields() Fields { return c.fields }

// FindByCustomerID resolves the record holding customerID. When the filter
// matches more than one row the first one wins.
func (c *Client) FindByCustomerID(ctx context.Context, customerID string) (*Record, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, errors.New("customer id is required")
	}

	endpoint := c.collectionURL() + odataQuery(
		"$select", c.fields.selectList(),
		"$filter", c.fields.CustomerID+" eq "+quote(customerID),
	)

	var page collectionPage
	if _, err := c.do(ctx, "find", http.MethodGet, endpoint, nil, nil, &page); err != nil {
		return nil, fmt.Errorf("find record for customer %s: %w", customerID, err)
	}
	if len(page.Value) == 0 {
		return nil, fmt.Errorf("no record found with %s %s: %w", c.fields.CustomerID, customerID, ErrRecordNotFound)
	}
	if len(page.Value) > 1 {
		slog.Warn("multiple records share a customer id, using the first", "customer_id", customerID, "matches", len(page.Value))
	}

	rec, err := c.fields.decode(page.Value[0])
	if err != nil {
		return nil, err
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("record for customer %s has no %s", customerID, c.fields.PrimaryKey())
	}
	return &rec, nil
}

// UpdateSubscription sets the subscription flag on the record of customerID
// and, when subscriptionID is non-empty, stores the subscription id too.
// The record must already exist.
func (c *Client) UpdateSubscription(ctx context.Context, customerID, subscriptionID string, active bool) (*Record, error) {
	rec, err := c.FindByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := c.patch(ctx, rec.ID, subscriptionID, active); err != nil {
		return nil, err
	}

	rec.Active = active
	if subscriptionID != "" {
		rec.SubscriptionID = subscriptionID
	}
	return rec, nil
}

// UpdateRecord writes the subscription state into the row with primary key
// recordID without resolving it by customer id first. Rows sharing a
// customer id are each addressed on their own.
func (c *Client) UpdateRecord(ctx context.Context, recordID, subscriptionID string, active bool) (*Record, error) {
	id, err := uuid.Parse(strings.TrimSpace(recordID))
	if err != nil {
		return nil, fmt.Errorf("invalid record id %q: %w", recordID, err)
	}
	if err := c.patch(ctx, id.String(), subscriptionID, active); err != nil {
		return nil, err
	}
	return &Record{ID: id.String(), Active: active, SubscriptionID: subscriptionID}, nil
}

func (c *Client) patch(ctx context.Context, recordID, subscriptionID string, active bool) error {
	data := map[string]interface{}{c.fields.Subscription: active}
	if subscriptionID != "" && c.fields.SubscriptionID != "" {
		data[c.fields.SubscriptionID] = subscriptionID
	}

	slog.Info("updating record",
		"collection", c.fields.EntitySet,
		"record_id", recordID,
		"subscription_id", subscriptionID,
		"active", active,
	)

	// If-Match: * makes the PATCH fail instead of creating a new row.
	headers := map[string]string{"If-Match": "*"}
	endpoint := fmt.Sprintf("%s(%s)", c.collectionURL(), recordID)
	if _, err := c.do(ctx, "update", http.MethodPatch, endpoint, headers, data, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("update record %s: %w", recordID, ErrRecordNotFound)
		}
		return fmt.Errorf("update record %s: %w", recordID, err)
	}
	return nil
}

// CreateCustomer inserts a new record and returns its primary key.
func (c *Client) CreateCustomer(ctx context.Context, customerID, email string) (string, error) {
	if strings.TrimSpace(customerID) == "" {
		return "", errors.New("customer id is required")
	}
	data := map[string]interface{}{c.fields.CustomerID: customerID}
	if c.fields.Email != "" {
		data[c.fields.Email] = email
	}

	resp, err := c.do(ctx, "create", http.MethodPost, c.collectionURL(), nil, data, nil)
	if err != nil {
		return "", fmt.Errorf("create record for customer %s: %w", customerID, err)
	}
	id, err := entityIDFromHeader(resp.Header.Get("OData-EntityId"))
	if err != nil {
		return "", fmt.Errorf("create record for customer %s: %w", customerID, err)
	}
	slog.Info("created record", "collection", c.fields.EntitySet, "record_id", id, "customer_id", customerID)
	return id, nil
}

// ListWithSubscription returns every record that has a subscription id,
// following @odata.nextLink until the server stops paging.
func (c *Client) ListWithSubscription(ctx context.Context) ([]Record, error) {
	if c.fields.SubscriptionID == "" {
		return nil, errors.New("subscription id field is not configured")
	}

	next := c.collectionURL() + odataQuery(
		"$select", c.fields.selectList(),
		"$filter", c.fields.SubscriptionID+" ne null",
	)
	headers := map[string]string{"Prefer": "odata.maxpagesize=" + strconv.Itoa(c.pageSize)}

	var records []Record
	seen := make(map[string]bool)
	for next != "" && !seen[next] {
		seen[next] = true

		var page collectionPage
		if _, err := c.do(ctx, "list", http.MethodGet, next, headers, nil, &page); err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		for _, row := range page.Value {
			rec, err := c.fields.decode(row)
			if err != nil {
				slog.Warn("skipping record with invalid primary key", "error", err)
				continue
			}
			records = append(records, rec)
		}
		next = page.NextLink
	}
	return records, nil
}

type collectionPage struct {
	Value    []map[string]interface{} `json:"value"`
	NextLink string                   `json:"@odata.nextLink"`
}

func (c *Client) collectionURL() string {
	return c.apiURL + "/" + url.PathEscape(c.fields.EntitySet)
}

func (c *Client) token(ctx context.Context) (string, error) {
	tok, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{c.baseURL + "/.default"},
	})
	if err != nil {
		return "", fmt.Errorf("acquire token: %w", err)
	}
	return tok.Token, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, headers map[string]string, in, out interface{}) (*http.Response, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	if in != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.Get().RecordRecordsRequest(op, 0)
		return nil, err
	}
	defer resp.Body.Close()
	metrics.Get().RecordRecordsRequest(op, resp.StatusCode)

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, parseAPIError(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

// odataQuery renders system query options. Spaces are percent-encoded
// rather than turned into '+'.
func odataQuery(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(pairs[i])
		b.WriteByte('=')
		b.WriteString(strings.ReplaceAll(url.QueryEscape(pairs[i+1]), "+", "%20"))
	}
	return b.String()
}
