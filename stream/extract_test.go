package stream_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/picatz/bato/stream"
	"github.com/shoenig/test/must"
)

func TestExtractObjects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single object",
			input: `{"event":"token","data":"hi"}`,
			want:  []string{`{"event":"token","data":"hi"}`},
		},
		{
			name:  "concatenated objects",
			input: `{"a":1}{"b":2}{"c":3}`,
			want:  []string{`{"a":1}`, `{"b":2}`, `{"c":3}`},
		},
		{
			name:  "whitespace between objects",
			input: ` {"a":1}  {"b":2} `,
			want:  []string{`{"a":1}`, `{"b":2}`},
		},
		{
			name:  "nested objects",
			input: `{"a":{"b":{"c":1}}}{"d":2}`,
			want:  []string{`{"a":{"b":{"c":1}}}`, `{"d":2}`},
		},
		{
			name:  "braces inside strings",
			input: `{"data":"}{ not structure {"}{"data":"}"}`,
			want:  []string{`{"data":"}{ not structure {"}`, `{"data":"}"}`},
		},
		{
			name:  "escaped quotes inside strings",
			input: `{"data":"say \"}\" twice"}{"data":"\\"}`,
			want:  []string{`{"data":"say \"}\" twice"}`, `{"data":"\\"}`},
		},
		{
			name:  "unbalanced tail is dropped",
			input: `{"a":1}{"b":`,
			want:  []string{`{"a":1}`},
		},
		{
			name:  "stray closer is ignored",
			input: `}{"a":1}`,
			want:  []string{`{"a":1}`},
		},
		{
			name:  "fallback to raw input",
			input: `not json at all`,
			want:  []string{`not json at all`},
		},
		{
			name:  "fallback for unterminated object",
			input: `{"a":`,
			want:  []string{`{"a":`},
		},
		{
			name:  "blank input",
			input: "   ",
			want:  nil,
		},
		{
			name:  "multi-byte text",
			input: `{"data":"héllo 世界 🌍"}{"data":"}"}`,
			want:  []string{`{"data":"héllo 世界 🌍"}`, `{"data":"}"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			must.Eq(t, tt.want, stream.ExtractObjects(tt.input))
		})
	}
}

func TestExtractObjects_countMatchesConcatenation(t *testing.T) {
	payloads := []string{
		"plain",
		`with "quotes"`,
		"with {braces}",
		`back\slash`,
		"} leading closer",
		"multi\nline",
		"ünïcödé ✓",
	}

	for n := 1; n <= len(payloads); n++ {
		var (
			b    strings.Builder
			want []string
		)
		for _, p := range payloads[:n] {
			raw, err := json.Marshal(map[string]string{"event": "token", "data": p})
			must.NoError(t, err)
			b.Write(raw)
			want = append(want, string(raw))
		}

		got := stream.ExtractObjects(b.String())
		must.SliceLen(t, n, got)
		must.Eq(t, want, got)
	}
}
