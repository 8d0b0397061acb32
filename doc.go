// Package bato is a client for the learning-roadmap backend.
//
// Roadmaps are generated through StreamRoadmap, which returns a [stream.Stream] of
// content, status and error events. The remaining methods wrap the backend's REST
// endpoints for stored roadmaps, chat sessions, progress tracking and topic deep-dives.
// GET responses are cached for a few minutes and failed requests are retried with
// exponential backoff.
package bato
