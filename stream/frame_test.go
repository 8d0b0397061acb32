package stream

import (
	"testing"

	"github.com/shoenig/test/must"
)

func TestSplitter(t *testing.T) {
	var s splitter

	must.SliceEmpty(t, s.write([]byte(`{"a":`)))
	must.Eq(t, []string{`{"a":1}`}, s.write([]byte("1}\n{\"b\"")))
	must.Eq(t, []string{`{"b":2}`, ""}, s.write([]byte(":2}\n\n")))
	must.True(t, s.carry == nil)

	must.SliceEmpty(t, s.write([]byte("tail")))
	rest, ok := s.flush()
	must.True(t, ok)
	must.Eq(t, "tail", rest)

	_, ok = s.flush()
	must.False(t, ok)
}

func TestSplitter_splitRune(t *testing.T) {
	var (
		s    splitter
		line = "data: é\n"
	)

	// "é" is two bytes; feed the first one alone.
	i := len("data: ") + 1
	must.SliceEmpty(t, s.write([]byte(line[:i])))
	must.Eq(t, []string{"data: é"}, s.write([]byte(line[i:])))
}

func TestSplitter_flushBlank(t *testing.T) {
	var s splitter
	s.write([]byte(" \r"))

	_, ok := s.flush()
	must.False(t, ok)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		frame  string
		mode   PrefixMode
		want   string
		wantOK bool
	}{
		{"data prefix", `data: {"a":1}`, PrefixOptional, `{"a":1}`, true},
		{"bare marker", `data:{"a":1}`, PrefixOptional, `{"a":1}`, true},
		{"bare json", `{"a":1}`, PrefixOptional, `{"a":1}`, true},
		{"carriage return", "data: {\"a\":1}\r", PrefixOptional, `{"a":1}`, true},
		{"blank", "  \t", PrefixOptional, "", false},
		{"empty data", "data: ", PrefixOptional, "", false},
		{"comment", ": keep-alive", PrefixOptional, "", false},
		{"required with prefix", `data: {"a":1}`, PrefixRequired, `{"a":1}`, true},
		{"required without prefix", `{"a":1}`, PrefixRequired, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalize(tt.frame, tt.mode)
			must.Eq(t, tt.wantOK, ok)
			must.Eq(t, tt.want, got)
		})
	}
}

func TestParsePrefixMode(t *testing.T) {
	must.Eq(t, PrefixRequired, ParsePrefixMode("Required"))
	must.Eq(t, PrefixOptional, ParsePrefixMode("optional"))
	must.Eq(t, PrefixOptional, ParsePrefixMode(""))
	must.Eq(t, "required", PrefixRequired.String())
}
