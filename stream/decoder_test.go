package stream_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/picatz/bato/stream"
	"github.com/shoenig/test/must"
)

// chunkReader returns its data at most size bytes per Read, simulating a
// connection that delivers arbitrary chunk boundaries.
type chunkReader struct {
	data []byte
	size int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := min(r.size, len(r.data), len(p))
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

// splitReader returns each chunk from a separate Read.
type splitReader struct {
	chunks [][]byte
}

func (r *splitReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

// failingReader returns its data and then err.
type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

// closeTracker records whether Close was called.
type closeTracker struct {
	io.Reader
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return nil
}

func collect(t *testing.T, s *stream.Stream) []stream.Event {
	t.Helper()

	var events []stream.Event
	for ev, err := range s.Events() {
		must.NoError(t, err)
		events = append(events, ev)
	}
	return events
}

func decode(t *testing.T, input string, opts ...stream.Option) []stream.Event {
	t.Helper()
	return collect(t, stream.FromReader(t.Context(), strings.NewReader(input), opts...))
}

func wire(t *testing.T, kind, data string) string {
	t.Helper()

	b, err := json.Marshal(map[string]string{"event": kind, "data": data})
	must.NoError(t, err)
	return string(b)
}

func TestStream_scenarioA(t *testing.T) {
	input := "data: {\"event\":\"token\",\"data\":\"Hel\"}\n" +
		"data: {\"event\":\"token\",\"data\":\"lo\"}\n"

	events := decode(t, input)
	must.Eq(t, []stream.Event{
		{Type: stream.EventTypeContent, Data: "Hel"},
		{Type: stream.EventTypeContent, Data: "lo"},
	}, events)

	var acc stream.Accumulator
	for _, ev := range events {
		acc.Add(ev)
	}
	must.Eq(t, "Hello", acc.Text())
}

func TestStream_scenarioB(t *testing.T) {
	var (
		created []string
		order   []string
	)

	s := stream.FromReader(t.Context(),
		strings.NewReader(`{"event":"roadmap_created","data":"rm-42"}{"event":"token","data":"ok"}`+"\n"),
		stream.WithOnCreated(func(id string) {
			created = append(created, id)
			order = append(order, "callback")
		}),
	)

	var events []stream.Event
	for ev, err := range s.Events() {
		must.NoError(t, err)
		events = append(events, ev)
		order = append(order, ev.String())
	}

	must.Eq(t, []string{"rm-42"}, created)
	must.Eq(t, []stream.Event{
		{Type: stream.EventTypeStatus, Data: stream.CreatedStatus},
		{Type: stream.EventTypeContent, Data: "ok"},
	}, events)
	must.Eq(t, "callback", order[0])
}

func TestStream_scenarioC(t *testing.T) {
	events := decode(t, `{"event":"error","data":"402 quota exceeded"}`+"\n")
	must.Eq(t, []stream.Event{{Type: stream.EventTypeError, Data: "402 quota exceeded"}}, events)

	var acc stream.Accumulator
	acc.Add(stream.Event{Type: stream.EventTypeContent, Data: "partial"})
	acc.Add(events[0])

	must.StrContains(t, acc.Text(), "partial\n\n"+stream.ErrorNoticePrefix+"402 quota exceeded")
	must.StrContains(t, acc.Text(), stream.QuotaHint)
}

func TestStream_scenarioD(t *testing.T) {
	line := wire(t, "token", "naïve 世界") + "\n"

	// Split in the middle of "世", a three byte character.
	i := strings.Index(line, "世") + 1
	r := &splitReader{chunks: [][]byte{[]byte(line[:i]), []byte(line[i:])}}

	events := collect(t, stream.FromReader(t.Context(), r))
	must.Eq(t, []stream.Event{{Type: stream.EventTypeContent, Data: "naïve 世界"}}, events)
}

func TestStream_chunkingInvariance(t *testing.T) {
	input := strings.Join([]string{
		"data: " + wire(t, "status", "analyzing"),
		wire(t, "token", "Go ") + wire(t, "token", "is {fun} \"really\""),
		"",
		": keep-alive",
		"data: " + wire(t, "token", "日本語 ✓"),
		"data: not json",
		wire(t, "roadmap_created", "rm-1"),
		wire(t, "error", "boom"),
		wire(t, "token", "tail without newline"),
	}, "\n")

	want := decode(t, input)
	must.SliceLen(t, 7, want)

	for size := 1; size <= len(input); size++ {
		got := collect(t, stream.FromReader(t.Context(), &chunkReader{data: []byte(input), size: size}))
		must.Eq(t, want, got, must.Sprintf("chunk size %d", size))
	}
}

func TestStream_roundTrip(t *testing.T) {
	type wireEvent struct {
		kind, data string
	}

	sent := []wireEvent{
		{"status", "analyzing"},
		{"token", "# Roadmap\n"},
		{"token", "{\"phases\": []}"},
		{"status", "generating"},
		{"error", "rate limited"},
		{"token", "\\o/"},
	}

	want := []stream.Event{
		{Type: stream.EventTypeStatus, Data: "analyzing"},
		{Type: stream.EventTypeContent, Data: "# Roadmap\n"},
		{Type: stream.EventTypeContent, Data: "{\"phases\": []}"},
		{Type: stream.EventTypeStatus, Data: "generating"},
		{Type: stream.EventTypeError, Data: "rate limited"},
		{Type: stream.EventTypeContent, Data: "\\o/"},
	}

	for _, prefix := range []string{"", "data: ", "data:"} {
		var lines []string
		for _, e := range sent {
			lines = append(lines, prefix+wire(t, e.kind, e.data))
		}
		must.Eq(t, want, decode(t, strings.Join(lines, "\n")+"\n"), must.Sprintf("prefix %q", prefix))
	}
}

func TestStream_malformedFramesAreSkipped(t *testing.T) {
	var failed []string

	input := strings.Join([]string{
		wire(t, "token", "a"),
		`{"event":"token","data":`,
		"garbage",
		wire(t, "token", "b") + `{"event":}`,
		wire(t, "token", "c"),
	}, "\n")

	events := decode(t, input, stream.WithParseErrorHandler(func(candidate string, err error) {
		must.Error(t, err)
		failed = append(failed, candidate)
	}))

	must.Eq(t, []stream.Event{
		{Type: stream.EventTypeContent, Data: "a"},
		{Type: stream.EventTypeContent, Data: "b"},
		{Type: stream.EventTypeContent, Data: "c"},
	}, events)
	must.Eq(t, []string{`{"event":"token","data":`, "garbage", `{"event":}`}, failed)
}

func TestStream_unknownEventsAreIgnored(t *testing.T) {
	input := strings.Join([]string{
		`{"event":"heartbeat","data":"1"}`,
		`{"data":"no discriminator"}`,
		wire(t, "token", "kept"),
	}, "\n")

	must.Eq(t, []stream.Event{{Type: stream.EventTypeContent, Data: "kept"}}, decode(t, input))
}

func TestStream_nonStringPayload(t *testing.T) {
	events := decode(t, `{"event":"status","data":{"step":2}}`)
	must.Eq(t, []stream.Event{{Type: stream.EventTypeStatus, Data: `{"step":2}`}}, events)
}

func TestStream_prefixRequired(t *testing.T) {
	input := wire(t, "token", "bare") + "\n" + "data: " + wire(t, "token", "prefixed") + "\n"

	events := decode(t, input, stream.WithPrefixMode(stream.PrefixRequired))
	must.Eq(t, []stream.Event{{Type: stream.EventTypeContent, Data: "prefixed"}}, events)
}

func TestStream_finalFrameFlush(t *testing.T) {
	s := stream.FromReader(t.Context(), strings.NewReader("data: "+wire(t, "token", "last")))

	must.Eq(t, stream.StateIdle, s.State())
	events := collect(t, s)
	must.Eq(t, []stream.Event{{Type: stream.EventTypeContent, Data: "last"}}, events)
	must.Eq(t, stream.StateDone, s.State())
	must.Eq(t, 1, s.EventCount())
}

func TestStream_emptyBody(t *testing.T) {
	s := stream.FromReader(t.Context(), strings.NewReader(""))
	must.SliceEmpty(t, collect(t, s))
	must.Eq(t, stream.StateDone, s.State())
}

func TestStream_closesBody(t *testing.T) {
	body := &closeTracker{Reader: strings.NewReader(wire(t, "token", "x") + "\n")}
	s := stream.New(t.Context(), body)

	collect(t, s)
	s.Cancel()
	must.Eq(t, 1, body.closed)
}

func TestStream_consumedOnce(t *testing.T) {
	s := stream.FromReader(t.Context(), strings.NewReader(wire(t, "token", "x")+"\n"))
	collect(t, s)

	var errs []error
	for _, err := range s.Events() {
		errs = append(errs, err)
	}
	must.SliceLen(t, 1, errs)
	must.ErrorIs(t, errs[0], stream.ErrStreamConsumed)
}

func TestStream_transportError(t *testing.T) {
	boom := errors.New("connection reset")
	r := &failingReader{data: []byte(wire(t, "token", "a") + "\n" + `{"event":"tok`), err: boom}

	s := stream.FromReader(t.Context(), r)

	var (
		events []stream.Event
		errs   []error
	)
	for ev, err := range s.Events() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, ev)
	}

	must.Eq(t, []stream.Event{{Type: stream.EventTypeContent, Data: "a"}}, events)
	must.SliceLen(t, 1, errs)
	must.ErrorIs(t, errs[0], boom)
	must.Eq(t, stream.StateDone, s.State())
}

func TestStream_cancelWhileReading(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	s := stream.New(t.Context(), pr)

	line := []byte(wire(t, "token", "first") + "\n")
	go pw.Write(line)

	var events []stream.Event
	for ev, err := range s.Events() {
		must.NoError(t, err)
		events = append(events, ev)

		// The next read blocks until Cancel closes the pipe.
		go s.Cancel()
	}

	must.Eq(t, []stream.Event{{Type: stream.EventTypeContent, Data: "first"}}, events)
	must.Eq(t, stream.StateCancelled, s.State())
}

func TestStream_cancelParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	s := stream.New(ctx, pr)

	line := []byte(wire(t, "status", "analyzing") + "\n")
	go pw.Write(line)

	var n int
	for _, err := range s.Events() {
		must.NoError(t, err)
		n++
		cancel()
	}

	must.Eq(t, 1, n)
	must.Eq(t, stream.StateCancelled, s.State())
}

func TestStream_cancelBeforeEvents(t *testing.T) {
	s := stream.FromReader(t.Context(), strings.NewReader(wire(t, "token", "x")+"\n"))
	s.Cancel()

	must.SliceEmpty(t, collect(t, s))
	must.Eq(t, stream.StateCancelled, s.State())
}

func TestStream_cancelIsIdempotent(t *testing.T) {
	s := stream.FromReader(t.Context(), strings.NewReader(wire(t, "token", "x")+"\n"))
	collect(t, s)

	s.Cancel()
	s.Cancel()
	must.Eq(t, stream.StateDone, s.State())

	other := stream.FromReader(t.Context(), strings.NewReader(wire(t, "token", "x")+"\n"))
	other.Cancel()
	other.Cancel()
	must.Eq(t, stream.StateCancelled, other.State())
	must.SliceEmpty(t, collect(t, other))
}

func TestStream_breakCancels(t *testing.T) {
	input := wire(t, "token", "a") + "\n" + wire(t, "token", "b") + "\n"
	body := &closeTracker{Reader: bytes.NewReader([]byte(input))}
	s := stream.New(t.Context(), body)

	for range s.Events() {
		break
	}

	must.Eq(t, stream.StateCancelled, s.State())
	must.Eq(t, 1, body.closed)
}
