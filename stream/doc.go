// Package stream decodes the generation stream returned by the roadmap backend.
//
// The backend writes one JSON object per line, sometimes prefixed with an SSE style
// "data: " marker, and occasionally several objects back to back on the same line:
//
//	data: {"event":"status","data":"analyzing"}
//	data: {"event":"token","data":"Hel"}{"event":"token","data":"lo"}
//	{"event":"roadmap_created","data":"rm-42"}
//
// A [Stream] reads the response body in chunks, keeps the unterminated tail of each
// chunk for the next read, pulls every balanced object out of each line, and yields
// the classified [Event]s lazily through [Stream.Events]. Callers typically fold the
// events with an [Accumulator].
package stream
