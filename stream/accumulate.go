package stream

import (
	"iter"
	"strings"
)

// ErrorNoticePrefix starts the notice appended to the response for each error event.
const ErrorNoticePrefix = "> **Error during generation:** "

// QuotaHint is appended after an error notice whose message mentions a 402 status.
const QuotaHint = "*Hint: The AI provider quota has been exceeded. Please check your API key or switch models.*"

// Accumulator folds a stream's events into the state a caller shows to the user: the
// response text, the latest status, and any errors. The zero value is ready to use.
type Accumulator struct {
	text      strings.Builder
	status    string
	errs      []string
	roadmapID string
}

// Add folds a single event into the accumulated state.
//
// Content is appended verbatim. Errors are appended as a markdown quote block,
// separated from earlier text by a blank line, with a hint when the provider reported
// an exhausted quota.
func (a *Accumulator) Add(ev Event) {
	switch ev.Type {
	case EventTypeContent:
		a.text.WriteString(ev.Data)
	case EventTypeStatus:
		a.status = ev.Data
	case EventTypeError:
		a.errs = append(a.errs, ev.Data)
		if a.text.Len() > 0 {
			a.text.WriteString("\n\n")
		}
		a.text.WriteString(ErrorNoticePrefix + ev.Data)
		if strings.Contains(ev.Data, "402") {
			a.text.WriteString("\n\n" + QuotaHint)
		}
	}
}

// OnCreated records a created roadmap identifier. It has the signature expected by
// WithOnCreated so an Accumulator can be wired directly into a Stream.
func (a *Accumulator) OnCreated(id string) {
	a.roadmapID = id
}

// Drain folds every event of seq, returning the first transport error.
func (a *Accumulator) Drain(seq iter.Seq2[Event, error]) error {
	for ev, err := range seq {
		if err != nil {
			return err
		}
		a.Add(ev)
	}
	return nil
}

// Text returns the accumulated response.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// Status returns the most recent status label.
func (a *Accumulator) Status() string {
	return a.status
}

// Errors returns the messages of every error event, in arrival order.
func (a *Accumulator) Errors() []string {
	return a.errs
}

// RoadmapID returns the identifier recorded by OnCreated, if any.
func (a *Accumulator) RoadmapID() string {
	return a.roadmapID
}
