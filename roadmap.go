package bato

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Roadmap is a generated learning plan.
type Roadmap struct {
	Title               string         `json:"title,omitempty"`
	Goal                string         `json:"goal"`
	Intent              string         `json:"intent,omitempty"`
	Proficiency         string         `json:"proficiency"`
	Phases              []Phase        `json:"phases"`
	TotalEstimatedHours float64        `json:"total_estimated_hours,omitempty"`
	KeyTechnologies     []string       `json:"key_technologies,omitempty"`
	Prerequisites       []string       `json:"prerequisites,omitempty"`
	NextSteps           []string       `json:"next_steps,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// Phase is an ordered stage of a roadmap.
type Phase struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	EstimatedHours float64 `json:"estimated_hours"`
	Topics         []Topic `json:"topics"`
}

// Topic is a unit of study within a phase.
type Topic struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	EstimatedHours float64    `json:"estimated_hours"`
	DocLink        string     `json:"doc_link,omitempty"`
	Subtopics      []Subtopic `json:"subtopics"`
	BestPractices  []string   `json:"best_practices,omitempty"`
}

type Subtopic struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	EstimatedHours float64  `json:"estimated_hours"`
	DocLink        string   `json:"doc_link,omitempty"`
	BestPractices  []string `json:"best_practices,omitempty"`
}

// ParseRoadmap recovers a roadmap from the accumulated content of a generation
// stream. The model may wrap the document in a markdown code fence, which is removed.
// ErrNotRoadmap is returned when content isn't a JSON document with at least one phase,
// which is the normal outcome for conversational replies.
func ParseRoadmap(content string) (*Roadmap, error) {
	s := strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))

	if !strings.HasPrefix(s, "{") {
		return nil, ErrNotRoadmap
	}

	var r Roadmap
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotRoadmap, err)
	}
	if len(r.Phases) == 0 {
		return nil, ErrNotRoadmap
	}

	return &r, nil
}

// TotalTopics returns the number of topics across all phases.
func (r *Roadmap) TotalTopics() int {
	var n int
	for _, p := range r.Phases {
		n += len(p.Topics)
	}
	return n
}

// EstimatedHours returns the roadmap's total estimate, summing the phases when the
// document doesn't state one.
func (r *Roadmap) EstimatedHours() float64 {
	if r.TotalEstimatedHours > 0 {
		return r.TotalEstimatedHours
	}

	var total float64
	for _, p := range r.Phases {
		total += p.EstimatedHours
	}
	return total
}

// DisplayTitle returns the title, falling back to the goal.
func (r *Roadmap) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Goal
}

// TopicPath identifies a topic in progress tracking by its zero-based phase and topic
// indexes.
func TopicPath(phaseIndex, topicIndex int) string {
	return fmt.Sprintf("%d.%d", phaseIndex, topicIndex)
}
