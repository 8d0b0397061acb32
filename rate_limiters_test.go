package bato_test

import (
	"testing"
	"time"

	"github.com/picatz/bato"
	"github.com/shoenig/test/must"
	"golang.org/x/time/rate"
)

func TestNewRateLimiters(t *testing.T) {
	rl := bato.NewRateLimiters(6, 20, 3)

	must.Eq(t, rate.Every(10*time.Second), rl.Stream.Limit())
	must.Eq(t, 3, rl.Stream.Burst())
	must.Eq(t, rate.Limit(20), rl.REST.Limit())

	// The burst is available immediately, then the stream limiter blocks.
	for i := range 3 {
		must.True(t, rl.Stream.Allow(), must.Sprintf("request %d", i))
	}
	must.False(t, rl.Stream.Allow())
}

func TestNewRateLimiters_unset(t *testing.T) {
	rl := bato.NewRateLimiters(0, -1, 0)
	must.Nil(t, rl.Stream)
	must.Nil(t, rl.REST)
}
