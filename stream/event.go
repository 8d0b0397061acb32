package stream

import (
	"encoding/json"
	"fmt"
)

// EventType enumerates the kinds of events yielded to callers.
type EventType string

const (
	// EventTypeContent carries an incremental fragment of the generated response.
	EventTypeContent EventType = "content"
	// EventTypeStatus carries a progress label such as "analyzing".
	EventTypeStatus EventType = "status"
	// EventTypeError carries an application-level failure reported by the server.
	EventTypeError EventType = "error"
)

// Kind is the discriminator found in the "event" field of a wire object.
type Kind string

const (
	KindToken          Kind = "token"
	KindStatus         Kind = "status"
	KindError          Kind = "error"
	KindRoadmapCreated Kind = "roadmap_created"
)

// CreatedStatus is the status payload yielded after a roadmap_created signal.
const CreatedStatus = "Roadmap created!"

// Event is a single classified unit of a generation stream.
type Event struct {
	// Type identifies the event kind.
	Type EventType `json:"type"`
	// Data is the payload: a text fragment, a status label or an error message.
	Data string `json:"data"`
}

// String renders a human-readable description of the event for debugging and tests.
func (e Event) String() string {
	if e.Type == "" {
		return "<none>"
	}
	return fmt.Sprintf("%s data=%q", e.Type, e.Data)
}

func (e Event) IsContent() bool { return e.Type == EventTypeContent }
func (e Event) IsStatus() bool  { return e.Type == EventTypeStatus }
func (e Event) IsError() bool   { return e.Type == EventTypeError }

// WireEvent is the JSON object sent by the server.
type WireEvent struct {
	Event Kind            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Payload returns the data field as text. String payloads are unquoted, anything
// else is returned as its raw JSON.
func (w WireEvent) Payload() string {
	if len(w.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(w.Data, &s); err == nil {
		return s
	}
	return string(w.Data)
}

// classify maps a decoded wire object to the event it produces. ok is false for
// discriminators this client doesn't know about, which are skipped so that servers
// can add new kinds without breaking older clients.
//
// For roadmap_created the created id is returned separately and the event is the
// synthetic acknowledgement status.
func classify(w WireEvent) (ev Event, createdID string, ok bool) {
	switch w.Event {
	case KindToken:
		return Event{Type: EventTypeContent, Data: w.Payload()}, "", true
	case KindStatus:
		return Event{Type: EventTypeStatus, Data: w.Payload()}, "", true
	case KindError:
		return Event{Type: EventTypeError, Data: w.Payload()}, "", true
	case KindRoadmapCreated:
		return Event{Type: EventTypeStatus, Data: CreatedStatus}, w.Payload(), true
	default:
		return Event{}, "", false
	}
}
