package bato

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// StoredRoadmap is a roadmap saved by the backend after a generation.
type StoredRoadmap struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	ChatSessionID string          `json:"chatSessionId,omitempty"`
	Title         string          `json:"title"`
	Goal          string          `json:"goal"`
	Intent        string          `json:"intent"`
	Proficiency   string          `json:"proficiency"`
	RoadmapData   json.RawMessage `json:"roadmapData"`
	Message       string          `json:"message,omitempty"`
	IsSelected    bool            `json:"isSelected"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	DocsRetrievedCount  int      `json:"docs_retrieved_count,omitempty"`
	RetrievalConfidence float64  `json:"retrieval_confidence,omitempty"`
	SourcesUsed         []string `json:"sources_used,omitempty"`
}

// Roadmap decodes the stored roadmap document. The backend stores it either as an
// object or as a JSON-encoded string.
func (s *StoredRoadmap) Roadmap() (*Roadmap, error) {
	if len(s.RoadmapData) == 0 || string(s.RoadmapData) == "null" {
		return nil, ErrNotRoadmap
	}

	var text string
	if err := json.Unmarshal(s.RoadmapData, &text); err == nil {
		return ParseRoadmap(text)
	}

	var r Roadmap
	if err := json.Unmarshal(s.RoadmapData, &r); err != nil {
		return nil, fmt.Errorf("failed to decode roadmap data: %w", err)
	}
	return &r, nil
}

// ListRoadmaps returns the roadmaps of the authenticated user.
func (c *Client) ListRoadmaps(ctx context.Context) ([]StoredRoadmap, error) {
	var roadmaps []StoredRoadmap
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/roadmap",
		cached: true,
	}, &roadmaps)
	if err != nil {
		return nil, err
	}
	return roadmaps, nil
}

// GetRoadmap returns a single stored roadmap.
func (c *Client) GetRoadmap(ctx context.Context, roadmapID string) (*StoredRoadmap, error) {
	var roadmap StoredRoadmap
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/roadmap/" + url.PathEscape(roadmapID),
		cached: true,
	}, &roadmap)
	if err != nil {
		return nil, err
	}
	return &roadmap, nil
}

// SelectRoadmap marks a roadmap as the user's active one.
func (c *Client) SelectRoadmap(ctx context.Context, roadmapID string) (*StoredRoadmap, error) {
	var roadmap StoredRoadmap
	err := c.do(ctx, request{
		method:     http.MethodPost,
		path:       "/api/roadmap/" + url.PathEscape(roadmapID) + "/select",
		body:       struct{}{},
		invalidate: []string{"/api/roadmap"},
	}, &roadmap)
	if err != nil {
		return nil, err
	}
	return &roadmap, nil
}
