package stream

import "strings"

// ExtractObjects returns the balanced JSON objects found in s, in left-to-right order.
//
// Servers sometimes flush several events into one line with no separator between them,
// e.g. `{"event":"token","data":"a"}{"event":"token","data":"b"}`, so a frame can't be
// handed to the JSON decoder as-is. The scan tracks brace depth, ignoring braces inside
// string literals (escape aware), and emits a span every time the depth returns to zero.
//
// A trailing span that never balances is dropped. If no object is found at all but s is
// not blank, s itself is returned as the only candidate so that the JSON decoder reports
// the problem instead of the data silently disappearing.
func ExtractObjects(s string) []string {
	var (
		objects  []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			escaped = true
			continue
		case '"':
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		switch c {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			// A stray closer outside any object can't start or end one.
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				objects = append(objects, s[start:i+1])
			}
		}
	}

	if len(objects) == 0 && strings.TrimSpace(s) != "" {
		return []string{s}
	}

	return objects
}
