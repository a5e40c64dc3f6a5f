// Package llm talks to hosted generative models.
package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Request is a single-turn prompt. Zero TopP and MaxOutputTokens leave the
// provider defaults in place; Temperature is always sent.
type Request struct {
	Prompt          string
	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
	JSON            bool
}

type Client interface {
	// Generate returns the whole reply in one payload.
	Generate(ctx context.Context, req Request) (string, error)
	// GenerateStream calls onChunk for every streamed fragment and returns
	// the concatenated reply.
	GenerateStream(ctx context.Context, req Request, onChunk func(string)) (string, error)
	Provider() string
}

func newLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst)
}

func waitTurn(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
