package bato

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoBody is returned when a streaming response has no body to read.
	ErrNoBody = errors.New("bato: response has no body")

	// ErrNotRoadmap is returned by ParseRoadmap when content isn't a roadmap document.
	ErrNotRoadmap = errors.New("bato: content is not a roadmap")
)

// ErrorKind groups HTTP failures by what a caller can do about them.
type ErrorKind string

const (
	ErrorAuth        ErrorKind = "auth"
	ErrorNotFound    ErrorKind = "not_found"
	ErrorRateLimit   ErrorKind = "rate_limit"
	ErrorQuota       ErrorKind = "quota"
	ErrorBadRequest  ErrorKind = "bad_request"
	ErrorUnavailable ErrorKind = "unavailable"
	ErrorUnknown     ErrorKind = "unknown"
)

func classifyStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorAuth
	case http.StatusNotFound:
		return ErrorNotFound
	case http.StatusTooManyRequests:
		return ErrorRateLimit
	case http.StatusPaymentRequired:
		return ErrorQuota
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrorBadRequest
	}
	if status >= 500 {
		return ErrorUnavailable
	}
	return ErrorUnknown
}

// APIError is returned for any response with a non-2xx status code.
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Status is the HTTP status line, such as "404 Not Found".
	Status string

	// Message is the server's explanation, taken from the "detail", "message" or
	// "error" field of a JSON body when present.
	Message string

	// Body is the raw response body.
	Body string

	// Kind classifies the status code.
	Kind ErrorKind
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status code: %d: %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("unexpected status code: %d: %s: %s", e.StatusCode, e.Status, strings.TrimSpace(e.Body))
}

// Retryable reports whether repeating the request may succeed. Client errors are final.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    errorMessage(body),
		Body:       string(body),
		Kind:       classifyStatus(resp.StatusCode),
	}
}

// errorMessage pulls a human-readable message out of the error bodies the backend
// produces: {"detail": "..."}, {"message": "..."}, {"error": "..."} and
// {"error": {"message": "..."}}.
func errorMessage(body []byte) string {
	var fields struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}

	for _, raw := range []json.RawMessage{fields.Detail, fields.Error} {
		if len(raw) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}

	return fields.Message
}

// IsQuota reports whether err is an APIError caused by an exhausted provider quota.
func IsQuota(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == ErrorQuota
}

// IsNotFound reports whether err is an APIError for a missing resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == ErrorNotFound
}
