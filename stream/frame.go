package stream

import (
	"bytes"
	"strings"
)

// PrefixMode controls how frames without a "data:" marker are treated.
type PrefixMode int

const (
	// PrefixOptional parses frames with or without the "data:" marker. Some backends
	// proxy newline-delimited JSON untouched, others emit proper SSE.
	PrefixOptional PrefixMode = iota

	// PrefixRequired drops frames that don't carry the "data:" marker.
	PrefixRequired
)

// String returns the configuration name of the mode.
func (m PrefixMode) String() string {
	switch m {
	case PrefixRequired:
		return "required"
	default:
		return "optional"
	}
}

// ParsePrefixMode parses a configuration value; unknown values select PrefixOptional.
func ParsePrefixMode(s string) PrefixMode {
	if strings.EqualFold(strings.TrimSpace(s), "required") {
		return PrefixRequired
	}
	return PrefixOptional
}

const dataMarker = "data:"

// splitter turns an append-only byte stream into complete lines.
//
// Bytes are kept undecoded until a newline is seen, and '\n' never occurs inside a
// multi-byte UTF-8 sequence, so a character split across two reads is whole again by
// the time its line is converted to a string.
type splitter struct {
	carry []byte
}

// write appends chunk to the carry-over and returns every complete line it closes,
// without the trailing newline. The unterminated remainder is kept for the next call.
func (s *splitter) write(chunk []byte) []string {
	s.carry = append(s.carry, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(s.carry, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(s.carry[:i]))
		s.carry = s.carry[i+1:]
	}

	// Drop the consumed prefix so the backing array doesn't grow for the life of the stream.
	if len(s.carry) == 0 {
		s.carry = nil
	} else if len(lines) > 0 {
		s.carry = append([]byte(nil), s.carry...)
	}

	return lines
}

// flush returns the unterminated remainder, if any, and resets the carry-over.
func (s *splitter) flush() (string, bool) {
	if len(bytes.TrimSpace(s.carry)) == 0 {
		s.carry = nil
		return "", false
	}
	rest := string(s.carry)
	s.carry = nil
	return rest, true
}

// normalize strips the optional "data:" marker from a frame. ok is false for frames
// that carry nothing to decode: blank lines, SSE comments, and, in PrefixRequired
// mode, lines without the marker.
func normalize(frame string, mode PrefixMode) (payload string, ok bool) {
	frame = strings.TrimSuffix(frame, "\r")
	if strings.TrimSpace(frame) == "" {
		return "", false
	}

	if strings.HasPrefix(frame, ":") {
		return "", false
	}

	if rest, found := strings.CutPrefix(frame, dataMarker); found {
		rest = strings.TrimPrefix(rest, " ")
		if strings.TrimSpace(rest) == "" {
			return "", false
		}
		return rest, true
	}

	if mode == PrefixRequired {
		return "", false
	}

	return frame, true
}
