package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/picatz/bato"
	"github.com/picatz/bato/internal/config"
	"github.com/shoenig/test/must"
)

const roadmapJSON = `{"title":"Go Backend","goal":"build APIs in Go","phases":[` +
	`{"title":"Basics","estimated_hours":10,"topics":[{"title":"Syntax","estimated_hours":4},{"title":"Modules","estimated_hours":6}]}]}`

func execute(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()

	for _, key := range []string{config.EnvAPIURL, config.EnvToken, config.EnvDebug} {
		t.Setenv(key, "")
	}

	var out, diag bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&diag)
	rootCmd.SetArgs(append(args,
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--api-url", srv.URL,
	))

	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestHealthCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		must.Eq(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "database": "up"})
	}))
	t.Cleanup(srv.Close)

	out, err := execute(t, srv, "health")
	must.NoError(t, err)
	must.StrContains(t, out, "connected")
	must.StrContains(t, out, "database: up")
}

func TestRoadmapsGetCommand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/roadmap/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":          r.PathValue("id"),
			"roadmapData": json.RawMessage(roadmapJSON),
		})
	})
	mux.HandleFunc("GET /api/roadmap/{id}/progress", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(bato.Progress{RoadmapID: r.PathValue("id"), CompletedTopics: []string{"0.0"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	out, err := execute(t, srv, "roadmaps", "get", "rm-1")
	must.NoError(t, err)
	must.StrContains(t, out, "Go Backend")
	must.StrContains(t, out, "50% complete")
	must.StrContains(t, out, "✓ 0.0 Syntax")
}

func TestResolveTopic(t *testing.T) {
	r, err := bato.ParseRoadmap(roadmapJSON)
	must.NoError(t, err)

	phase, topic, err := resolveTopic(r, "0.1")
	must.NoError(t, err)
	must.Eq(t, 0, phase)
	must.Eq(t, 1, topic)

	for _, path := range []string{"1", "1.0", "0.2", "a.b", "-1.0"} {
		_, _, err := resolveTopic(r, path)
		must.Error(t, err, must.Sprintf("path %q", path))
	}
}

func TestTopicMarkdown(t *testing.T) {
	md := topicMarkdown(&bato.TopicDetail{
		Title:          "Goroutines",
		PhaseNumber:    2,
		PhaseTitle:     "Concurrency",
		Overview:       "Lightweight threads.",
		KeyConcepts:    []string{"scheduler", "channels"},
		EstimatedHours: 3,
		LearningResources: []bato.LearningResource{
			{Title: "Tour", Type: "tutorial", URL: "https://go.dev/tour"},
		},
		PracticeExercises: []bato.PracticeExercise{
			{Title: "Fan out", Description: "Start workers.", Difficulty: "easy", EstimatedTime: "1h"},
		},
		NextTopic: "Channels",
	})

	must.StrContains(t, md, "# Goroutines")
	must.StrContains(t, md, "*Phase 2: Concurrency · 3h*")
	must.StrContains(t, md, "- scheduler\n- channels")
	must.StrContains(t, md, "[Tour](https://go.dev/tour) (tutorial)")
	must.StrContains(t, md, "### Fan out")
	must.StrContains(t, md, "Next up: **Channels**")
	must.StrNotContains(t, md, "## Prerequisites")
}
