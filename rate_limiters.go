package bato

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiters holds the client-side rate limiters for the backend.
//
// They are not enforced by default. A Client configured with WithRateLimiters waits
// on Stream before opening a generation stream and on REST before every other request.
// Either limiter may be nil to leave that kind of request unlimited.
//
// # Example
//
//	c := bato.NewClient(baseURL, bato.WithRateLimiters(bato.NewRateLimiters(10, 5, 5)))
type RateLimiters struct {
	Stream *rate.Limiter
	REST   *rate.Limiter
}

// NewRateLimiters returns limiters allowing streamPerMinute generation streams per
// minute and restPerSecond other requests per second, each with the given burst. A
// non-positive rate leaves that limiter unset.
func NewRateLimiters(streamPerMinute, restPerSecond float64, burst int) *RateLimiters {
	if burst < 1 {
		burst = 1
	}

	rl := &RateLimiters{}
	if streamPerMinute > 0 {
		rl.Stream = rate.NewLimiter(rate.Every(time.Duration(float64(time.Minute)/streamPerMinute)), burst)
	}
	if restPerSecond > 0 {
		rl.REST = rate.NewLimiter(rate.Limit(restPerSecond), burst)
	}
	return rl
}

func (rl *RateLimiters) rest() *rate.Limiter {
	if rl == nil {
		return nil
	}
	return rl.REST
}

func (rl *RateLimiters) stream() *rate.Limiter {
	if rl == nil {
		return nil
	}
	return rl.Stream
}

// wait blocks until l allows a request. A nil limiter never blocks.
func (rl *RateLimiters) wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	return nil
}
