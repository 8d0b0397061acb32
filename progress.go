package bato

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"slices"
	"time"
)

// Progress is a user's advancement through a roadmap.
type Progress struct {
	ID                   string    `json:"id"`
	RoadmapID            string    `json:"roadmapId"`
	CompletedPhases      []int     `json:"completedPhases"`
	CompletedTopics      []string  `json:"completedTopics"`
	CurrentPhase         int       `json:"currentPhase"`
	CurrentTopic         *string   `json:"currentTopic"`
	TotalTimeSpent       int       `json:"totalTimeSpent"`
	LastAccessedAt       time.Time `json:"lastAccessedAt"`
	CompletionPercentage *float64  `json:"completionPercentage,omitempty"`
}

// TopicDone reports whether the topic at path is completed.
func (p *Progress) TopicDone(path string) bool {
	return slices.Contains(p.CompletedTopics, path)
}

// PhaseDone reports whether the phase at index is completed.
func (p *Progress) PhaseDone(index int) bool {
	return slices.Contains(p.CompletedPhases, index)
}

// Completion returns the completion percentage, computing it from the completed
// topics of r when the server didn't report one.
func (p *Progress) Completion(r *Roadmap) float64 {
	if p.CompletionPercentage != nil {
		return *p.CompletionPercentage
	}
	if r == nil {
		return 0
	}

	total := r.TotalTopics()
	if total == 0 {
		return 0
	}

	var done int
	for i, phase := range r.Phases {
		for j := range phase.Topics {
			if p.TopicDone(TopicPath(i, j)) {
				done++
			}
		}
	}
	return math.Round(float64(done) / float64(total) * 100)
}

// ProgressUpdate holds the fields changed by UpdateProgress. Nil fields are left as
// they are.
type ProgressUpdate struct {
	CompletedPhases []int    `json:"completedPhases,omitempty"`
	CompletedTopics []string `json:"completedTopics,omitempty"`
	CurrentPhase    *int     `json:"currentPhase,omitempty"`
	CurrentTopic    *string  `json:"currentTopic,omitempty"`
	TimeSpent       *int     `json:"timeSpent,omitempty"`
}

func progressPath(roadmapID string) string {
	return "/api/roadmap/" + url.PathEscape(roadmapID) + "/progress"
}

// GetProgress returns the progress for a roadmap.
func (c *Client) GetProgress(ctx context.Context, roadmapID string) (*Progress, error) {
	return c.progress(ctx, request{
		method: http.MethodGet,
		path:   progressPath(roadmapID),
		cached: true,
	})
}

// UpdateProgress changes the progress for a roadmap.
func (c *Client) UpdateProgress(ctx context.Context, roadmapID string, update *ProgressUpdate) (*Progress, error) {
	return c.progress(ctx, request{
		method:     http.MethodPatch,
		path:       progressPath(roadmapID),
		body:       update,
		invalidate: []string{progressPath(roadmapID)},
	})
}

// CompletePhase marks the phase at the zero-based phaseIndex as completed.
func (c *Client) CompletePhase(ctx context.Context, roadmapID string, phaseIndex int) (*Progress, error) {
	return c.progress(ctx, request{
		method:     http.MethodPost,
		path:       progressPath(roadmapID) + "/complete-phase",
		body:       map[string]int{"phaseIndex": phaseIndex},
		invalidate: []string{progressPath(roadmapID)},
	})
}

// CompleteTopic marks the topic at topicPath, as built by TopicPath, as completed.
func (c *Client) CompleteTopic(ctx context.Context, roadmapID, topicPath string) (*Progress, error) {
	return c.progress(ctx, request{
		method:     http.MethodPost,
		path:       progressPath(roadmapID) + "/complete-topic",
		body:       map[string]string{"topicPath": topicPath},
		invalidate: []string{progressPath(roadmapID)},
	})
}

// UncompleteTopic removes topicPath from the completed topics of p.
func (c *Client) UncompleteTopic(ctx context.Context, p *Progress, topicPath string) (*Progress, error) {
	remaining := slices.DeleteFunc(slices.Clone(p.CompletedTopics), func(t string) bool {
		return t == topicPath
	})
	if remaining == nil {
		remaining = []string{}
	}

	return c.progress(ctx, request{
		method: http.MethodPatch,
		path:   progressPath(p.RoadmapID),
		// Sent explicitly so that an empty list clears every topic.
		body:       map[string][]string{"completedTopics": remaining},
		invalidate: []string{progressPath(p.RoadmapID)},
	})
}

// ResetProgress clears all progress for a roadmap.
func (c *Client) ResetProgress(ctx context.Context, roadmapID string) (*Progress, error) {
	return c.progress(ctx, request{
		method:     http.MethodPost,
		path:       progressPath(roadmapID) + "/reset",
		body:       struct{}{},
		invalidate: []string{progressPath(roadmapID)},
	})
}

func (c *Client) progress(ctx context.Context, r request) (*Progress, error) {
	var p Progress
	if err := c.do(ctx, r, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
