package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the mutation log.
type APIError struct {
	Operation  string // "Submit", "FindLatest", "UpdateRecord"
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// IsConflict reports a 409 Conflict or 422 Unprocessable Entity.
func (e *APIError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict || e.StatusCode == http.StatusUnprocessableEntity
}

// IsServerError reports a 5xx response.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsUnauthorized reports a 401 or 403 response.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// TransportError is a request that never produced an HTTP response.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a 2xx response whose body is not a record or record
// list. The server accepted the request; only its representation is lost.
type DecodeError struct {
	Operation string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: failed to decode response: %v", e.Operation, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newAPIError(operation string, status int, body []byte) *APIError {
	return &APIError{
		Operation:  operation,
		StatusCode: status,
		Message:    messageFromBody(status, body),
		Body:       string(body),
	}
}

// messageFromBody pulls a human message out of a PostgREST-style error
// body, falling back to the raw body and then to the status text.
func messageFromBody(status int, body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range []string{"message", "error", "msg", "hint", "details"} {
			if s, ok := fields[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) <= 200 {
		return s
	}
	return http.StatusText(status)
}
