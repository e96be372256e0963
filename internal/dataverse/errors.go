package dataverse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is the OData error envelope returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("dataverse: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("dataverse: %d %s", e.StatusCode, e.Message)
}

func parseAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	apiErr.Message = http.StatusText(status)
	return apiErr
}
