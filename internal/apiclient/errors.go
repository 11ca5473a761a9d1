package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrRateLimited is returned without sending when the outbound limit is hit
var ErrRateLimited = errors.New("outbound API rate limit reached")

// errorMetaKeys are framework fields in an error body, not field messages
var errorMetaKeys = map[string]bool{
	"timestamp": true,
	"status":    true,
	"path":      true,
	"trace":     true,
}

// APIError is a non-2xx answer from the backend
type APIError struct {
	StatusCode  int
	Method      string
	Path        string
	Body        []byte
	Message     string
	FieldErrors map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (status %d) for %s %s: %s", e.StatusCode, e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("API error (status %d) for %s %s", e.StatusCode, e.Method, e.Path)
}

// FieldMessages returns the field messages joined by ", " in key order
func (e *APIError) FieldMessages() string {
	keys := make([]string, 0, len(e.FieldErrors))
	for k := range e.FieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.FieldErrors[k])
	}
	return strings.Join(msgs, ", ")
}

// TransportError means the request never produced an HTTP response
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error for %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// newAPIError builds an APIError, pulling a message and, for object bodies,
// per-field messages out of the payload
func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Body:       body,
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if len(apiErr.Message) > 200 {
			apiErr.Message = apiErr.Message[:200] + "..."
		}
		return apiErr
	}

	for _, key := range []string{"message", "error", "description"} {
		if msg, ok := payload[key].(string); ok && msg != "" {
			apiErr.Message = msg
			break
		}
	}

	if status == http.StatusBadRequest {
		fields := make(map[string]string)
		for key, value := range payload {
			if errorMetaKeys[key] {
				continue
			}
			switch v := value.(type) {
			case string:
				fields[key] = v
			case nil:
			default:
				fields[key] = fmt.Sprint(v)
			}
		}
		if len(fields) > 0 {
			apiErr.FieldErrors = fields
		}
	}

	return apiErr
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports a 401, i.e. the session must log in again
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden reports a 403
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// IsNotFound reports a 404
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsValidation reports a 400 answer
func IsValidation(err error) bool {
	return StatusCode(err) == http.StatusBadRequest
}

// IsTransport reports a connectivity failure
func IsTransport(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}
