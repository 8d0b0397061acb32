// Package logger builds the *slog.Logger handed to the client, the stream decoder and
// the chat session.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type format int

const (
	formatText format = iota
	formatPretty
	formatJSON
)

type settings struct {
	out    io.Writer
	level  slog.Level
	format format
	source bool
}

// Option configures a logger created with New.
type Option func(*settings)

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		s.level = slog.LevelInfo
		if debug {
			s.level = slog.LevelDebug
		}
	}
}

// WithPretty writes colorized records through charmbracelet/log.
func WithPretty(pretty bool) Option {
	return func(s *settings) {
		if pretty && s.format != formatJSON {
			s.format = formatPretty
		}
	}
}

// WithJSON writes one JSON object per record. It wins over WithPretty.
func WithJSON(json bool) Option {
	return func(s *settings) {
		if json {
			s.format = formatJSON
		}
	}
}

// WithWriter replaces os.Stderr as the output.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		s.out = w
	}
}

// WithSource adds the file and line of the call site to each record.
func WithSource(source bool) Option {
	return func(s *settings) {
		s.source = source
	}
}

// New returns a logger writing plain slog text to stderr at Info level, unless opts
// say otherwise.
func New(opts ...Option) *slog.Logger {
	s := settings{out: os.Stderr, level: slog.LevelInfo}
	for _, opt := range opts {
		opt(&s)
	}
	return slog.New(s.handler())
}

func (s settings) handler() slog.Handler {
	if s.format == formatPretty {
		return charmlog.NewWithOptions(s.out, charmlog.Options{
			Level:           charmlog.Level(s.level),
			ReportTimestamp: true,
			ReportCaller:    s.source,
			Prefix:          "bato",
		})
	}

	ho := &slog.HandlerOptions{Level: s.level, AddSource: s.source}
	if s.format == formatJSON {
		return slog.NewJSONHandler(s.out, ho)
	}
	return slog.NewTextHandler(s.out, ho)
}
