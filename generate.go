package bato

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/picatz/bato/stream"
)

// Turn is a prior message sent along with a generation request.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GenerateRoadmapRequest is the body of a streaming generation request.
type GenerateRoadmapRequest struct {
	// Message is the user's latest message.
	Message string `json:"message"`

	// ConversationHistory holds the earlier turns, oldest first.
	ConversationHistory []Turn `json:"conversation_history"`

	// ChatSessionID links the generated roadmap to a stored chat session.
	ChatSessionID string `json:"chatSessionId,omitempty"`

	// StrictMode asks the backend to answer only from its retrieved documentation.
	StrictMode bool `json:"strictMode,omitempty"`
}

// StreamRoadmap starts a generation and returns the stream of its events.
//
// Failures to start the generation, such as a network error, a non-2xx status, or a
// response without a body, are returned here, before any event is read. The caller
// must drain or Cancel the returned stream.
//
// # Example
//
//	s, err := c.StreamRoadmap(ctx, &bato.GenerateRoadmapRequest{Message: "learn go"})
//	if err != nil {
//		return err
//	}
//	for ev, err := range s.Events() {
//		...
//	}
func (c *Client) StreamRoadmap(ctx context.Context, req *GenerateRoadmapRequest, opts ...stream.Option) (*stream.Stream, error) {
	if req.ConversationHistory == nil {
		req.ConversationHistory = []Turn{}
	}

	if err := c.RateLimits.wait(ctx, c.RateLimits.stream()); err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, c.BaseURL+"/api/roadmap/stream", req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to start roadmap generation: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to start roadmap generation: %w", newAPIError(resp, b))
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, fmt.Errorf("failed to start roadmap generation: %w", ErrNoBody)
	}

	c.logger.Debug("roadmap stream started",
		"chat_session_id", req.ChatSessionID,
		"history", len(req.ConversationHistory),
		"strict", req.StrictMode,
	)

	opts = append([]stream.Option{stream.WithLogger(c.logger)}, opts...)

	return stream.New(ctx, resp.Body, opts...), nil
}
