package mollie

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is the problem document Mollie returns for non-2xx responses.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail"`
	Field      string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("mollie: %d %s: %s", e.StatusCode, e.Title, e.Detail)
	}
	return fmt.Sprintf("mollie: %d %s", e.StatusCode, e.Title)
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Title == "" {
		apiErr.Title = http.StatusText(status)
		if len(body) > 0 && apiErr.Detail == "" {
			apiErr.Detail = string(body)
		}
	}
	apiErr.StatusCode = status
	return apiErr
}

// IsNotFound reports whether err is a Mollie 404 or 410 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusGone
}
