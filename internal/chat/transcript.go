package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/picatz/bato"
	"github.com/picatz/bato/internal/chat/storage"
	"github.com/segmentio/ksuid"
)

// Transcript is one finished exchange of a chat session, stored in the local history.
type Transcript struct {
	ChatSessionID string    `json:"chat_session_id,omitzero"`
	Request       string    `json:"request"`
	Response      string    `json:"response"`
	RoadmapID     string    `json:"roadmap_id,omitzero"`
	Status        string    `json:"status,omitzero"`
	Errors        []string  `json:"errors,omitzero"`
	Cancelled     bool      `json:"cancelled,omitzero"`
	CreatedAt     time.Time `json:"created_at"`
}

// Turns returns the exchange as the conversation history sent with later requests.
// A cancelled exchange without any response only contributes the user turn.
func (t Transcript) Turns() []bato.Turn {
	turns := []bato.Turn{{Role: bato.RoleUser, Content: t.Request}}
	if t.Response != "" {
		turns = append(turns, bato.Turn{Role: bato.RoleAssistant, Content: t.Response})
	}
	return turns
}

// TranscriptKey returns a new history key. Keys are KSUIDs, which sort by creation
// time, so a backend ordered by key lists the history oldest first.
func TranscriptKey(at time.Time) (string, error) {
	id, err := ksuid.NewRandomWithTime(at)
	if err != nil {
		return "", fmt.Errorf("failed to create transcript key: %w", err)
	}
	return id.String(), nil
}

// Recent returns the newest n transcripts of b, oldest first. When chatSessionID isn't
// empty only the transcripts of that chat session are considered.
func Recent(ctx context.Context, b storage.Backend[string, Transcript], chatSessionID string, n int) ([]storage.Entry[string, Transcript], error) {
	if t, ok := b.(storage.Tailer[string, Transcript]); ok && chatSessionID == "" && n > 0 {
		return t.Tail(ctx, n)
	}

	entries, err := storage.All(ctx, b)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b storage.Entry[string, Transcript]) int {
		return strings.Compare(a.Key, b.Key)
	})

	if chatSessionID != "" {
		entries = slices.DeleteFunc(entries, func(e storage.Entry[string, Transcript]) bool {
			return e.Value.ChatSessionID != chatSessionID
		})
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	return entries, nil
}
