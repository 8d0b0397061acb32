package bato

import (
	"context"
	"errors"
	"net/http"
)

// HealthStatus summarises a health check.
type HealthStatus string

const (
	HealthConnected HealthStatus = "connected"
	HealthDegraded  HealthStatus = "degraded"
	HealthError     HealthStatus = "error"
)

// Health is the body of the backend's health endpoint.
type Health struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"-"`
}

// Health checks the backend. A reachable backend reporting "ok" is connected, any other
// reported status is degraded. An unreachable or failing backend is returned as
// HealthError along with the error.
func (c *Client) Health(ctx context.Context) (HealthStatus, *Health, error) {
	var details map[string]any
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/health",
	}, &details)
	if err != nil {
		return HealthError, nil, err
	}

	h := &Health{Details: details}
	h.Status, _ = details["status"].(string)

	if h.Status == "ok" {
		return HealthConnected, h, nil
	}
	return HealthDegraded, h, nil
}

// IngestionResult is the backend's answer to an ingestion trigger.
type IngestionResult struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// TriggerIngestion asks the backend to re-ingest its documentation sources. On failure
// the returned APIError carries the backend's detail message.
func (c *Client) TriggerIngestion(ctx context.Context) (*IngestionResult, error) {
	var result IngestionResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/v1/ingest",
	}, &result)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message == "" {
			apiErr.Message = "ingestion trigger failed"
		}
		return nil, err
	}
	return &result, nil
}
