package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrStreamConsumed is yielded when Events is called more than once on the same Stream.
var ErrStreamConsumed = errors.New("stream: events already consumed")

// DefaultReadSize is the size of the buffer handed to each Read of the body.
const DefaultReadSize = 4096

// debugFrames is the number of leading frames logged at debug level.
const debugFrames = 5

// State is the lifecycle state of a Stream.
type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateDraining
	StateDone
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

func (s State) terminal() bool {
	return s == StateDone || s == StateCancelled
}

// Option configures a Stream.
type Option func(*options)

type options struct {
	mode         PrefixMode
	onCreated    func(id string)
	onParseError func(candidate string, err error)
	logger       *slog.Logger
	readSize     int
}

// WithPrefixMode selects how frames without a "data:" marker are handled.
func WithPrefixMode(mode PrefixMode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithOnCreated registers the callback invoked with the identifier carried by a
// roadmap_created signal. It runs on the consuming goroutine, before the
// acknowledgement status event is yielded.
func WithOnCreated(fn func(id string)) Option {
	return func(o *options) {
		o.onCreated = fn
	}
}

// WithParseErrorHandler registers a callback for candidates that are not valid JSON.
// Such candidates are always skipped; the callback only observes them.
func WithParseErrorHandler(fn func(candidate string, err error)) Option {
	return func(o *options) {
		o.onParseError = fn
	}
}

// WithLogger sets the logger used for debug output and parse warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReadSize sets the size of the buffer used for each read of the body.
func WithReadSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readSize = n
		}
	}
}

// Stream decodes one generation response. It is created per request, consumed once
// through Events, and discarded.
type Stream struct {
	body io.ReadCloser
	opts options

	ctx       context.Context
	cancel    context.CancelFunc
	stopClose func() bool
	closeOnce sync.Once

	state    atomic.Int32
	consumed atomic.Bool

	frames int
	events int
}

// New returns a Stream reading from body. Cancelling ctx, or calling Cancel, stops the
// stream and closes body so that a blocked read returns.
func New(ctx context.Context, body io.ReadCloser, opts ...Option) *Stream {
	o := options{
		mode:     PrefixOptional,
		readSize: DefaultReadSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)

	s := &Stream{
		body:   body,
		opts:   o,
		ctx:    ctx,
		cancel: cancel,
	}
	s.stopClose = context.AfterFunc(ctx, s.closeBody)

	return s
}

// FromReader is like New for a plain reader, which is never closed.
func FromReader(ctx context.Context, r io.Reader, opts ...Option) *Stream {
	return New(ctx, io.NopCloser(r), opts...)
}

// State reports the current lifecycle state.
func (s *Stream) State() State {
	return State(s.state.Load())
}

// Cancel stops the stream. No events are yielded after Cancel returns. Calling it more
// than once, or after the stream has finished, has no further effect.
func (s *Stream) Cancel() {
	s.enter(StateCancelled)
	s.cancel()
}

// EventCount returns the number of events yielded so far.
func (s *Stream) EventCount() int {
	return s.events
}

// Events returns an iterator over the decoded events, in the order their bytes arrived.
//
// The iterator yields (Event, nil) for each event. A failed read of the body is yielded
// once as (Event{}, err) and ends the iteration. Invalid JSON is logged and skipped,
// cancellation ends the iteration silently, and breaking out of the loop cancels the
// stream.
func (s *Stream) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			yield(Event{}, ErrStreamConsumed)
			return
		}
		defer s.finish()

		var (
			lines splitter
			buf   = make([]byte, s.opts.readSize)
		)

		for {
			if s.stopped() {
				return
			}

			n, err := s.body.Read(buf)
			if n > 0 {
				s.advance(StateIdle, StateStreaming)
				for _, line := range lines.write(buf[:n]) {
					if !s.frame(line, yield) {
						return
					}
				}
			}
			if err == nil {
				continue
			}

			if s.stopped() {
				return
			}
			if errors.Is(err, io.EOF) {
				break
			}

			s.opts.logger.Error("stream read failed", "error", err, "events", s.events)
			yield(Event{}, fmt.Errorf("failed to read stream: %w", err))
			return
		}

		s.advance(StateIdle, StateDraining)
		s.advance(StateStreaming, StateDraining)

		if rest, ok := lines.flush(); ok {
			if !s.frame(rest, yield) {
				return
			}
		}

		s.opts.logger.Debug("stream complete", "frames", s.frames, "events", s.events)
	}
}

// frame runs one line through normalization, extraction and classification, yielding
// each resulting event. It returns false once the stream must stop.
func (s *Stream) frame(line string, yield func(Event, error) bool) bool {
	payload, ok := normalize(line, s.opts.mode)
	if !ok {
		return true
	}

	s.frames++
	if s.frames <= debugFrames {
		s.opts.logger.Debug("stream frame", "n", s.frames, "payload", truncate(payload, 100))
	}

	for _, candidate := range ExtractObjects(payload) {
		var w WireEvent
		if err := json.Unmarshal([]byte(candidate), &w); err != nil {
			s.opts.logger.Warn("failed to parse stream event", "candidate", truncate(candidate, 100), "error", err)
			if s.opts.onParseError != nil {
				s.opts.onParseError(candidate, err)
			}
			continue
		}

		ev, createdID, ok := classify(w)
		if !ok {
			s.opts.logger.Debug("ignoring stream event", "event", w.Event)
			continue
		}

		if s.stopped() {
			return false
		}

		if w.Event == KindRoadmapCreated {
			s.opts.logger.Debug("roadmap created", "id", createdID)
			if s.opts.onCreated != nil {
				s.opts.onCreated(createdID)
			}
		}

		s.events++
		if !yield(ev, nil) {
			s.Cancel()
			return false
		}
	}

	return true
}

// stopped reports whether the stream was cancelled, recording the transition.
func (s *Stream) stopped() bool {
	if s.ctx.Err() != nil {
		s.enter(StateCancelled)
		return true
	}
	return s.State() == StateCancelled
}

// advance moves from one state to the next only if the stream is still in from.
func (s *Stream) advance(from, to State) {
	s.state.CompareAndSwap(int32(from), int32(to))
}

// enter moves to a terminal state unless another terminal state was reached first.
func (s *Stream) enter(to State) {
	for {
		cur := s.state.Load()
		if State(cur).terminal() {
			return
		}
		if s.state.CompareAndSwap(cur, int32(to)) {
			return
		}
	}
}

func (s *Stream) finish() {
	s.enter(StateDone)
	s.stopClose()
	s.closeBody()
	s.cancel()
}

func (s *Stream) closeBody() {
	s.closeOnce.Do(func() {
		if err := s.body.Close(); err != nil {
			s.opts.logger.Debug("failed to close stream body", "error", err)
		}
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
