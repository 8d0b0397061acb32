package bato

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// LearningResource is external material recommended for a topic.
type LearningResource struct {
	Title         string `json:"title"`
	Type          string `json:"type"`
	URL           string `json:"url,omitempty"`
	EstimatedTime string `json:"estimated_time,omitempty"`
}

// PracticeExercise is a hands-on task for a topic.
type PracticeExercise struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Difficulty    string `json:"difficulty"`
	EstimatedTime string `json:"estimated_time"`
}

// TopicDetail is the deep-dive content generated for a single topic.
type TopicDetail struct {
	Title              string             `json:"title"`
	PhaseNumber        int                `json:"phase_number"`
	PhaseTitle         string             `json:"phase_title"`
	Overview           string             `json:"overview"`
	WhyImportant       string             `json:"why_important"`
	KeyConcepts        []string           `json:"key_concepts"`
	Prerequisites      []string           `json:"prerequisites"`
	LearningObjectives []string           `json:"learning_objectives"`
	LearningResources  []LearningResource `json:"learning_resources"`
	PracticeExercises  []PracticeExercise `json:"practice_exercises"`
	RelatedTopics      []string           `json:"related_topics"`
	NextTopic          string             `json:"next_topic,omitempty"`
	EstimatedHours     float64            `json:"estimated_hours"`
	DifficultyLevel    string             `json:"difficulty_level"`
	DocLinks           []string           `json:"doc_links"`
}

// GetTopicDetailRequest identifies the topic to expand.
type GetTopicDetailRequest struct {
	// PhaseNumber is the one-based number of the phase holding the topic.
	PhaseNumber int
	TopicTitle  string
	PhaseTitle  string
	Goal        string

	// RoadmapID, when set, lets the backend reuse a previously generated detail.
	RoadmapID string
}

// GetTopicDetail returns the deep-dive content for a topic. Generation is slow on
// the backend, so details are cached like any other GET.
func (c *Client) GetTopicDetail(ctx context.Context, req *GetTopicDetailRequest) (*TopicDetail, error) {
	query := url.Values{
		"phaseTitle": {req.PhaseTitle},
		"goal":       {req.Goal},
	}
	if req.RoadmapID != "" {
		query.Set("roadmapId", req.RoadmapID)
	}

	var detail TopicDetail
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/topic/" + strconv.Itoa(req.PhaseNumber) + "/" + url.PathEscape(req.TopicTitle),
		query:  query,
		cached: true,
	}, &detail)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}
