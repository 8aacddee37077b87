package codegen

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to the wrapped client. Waiting honours the
// caller's context, so a request never queues past its own deadline.
type RateLimited struct {
	next    Client
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond calls with the given burst. A non-positive
// rate disables limiting and returns next unchanged.
func NewRateLimited(next Client, perSecond float64, burst int) Client {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Generate implements Client.
func (r *RateLimited) Generate(ctx context.Context, in Input) (*Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, upstreamError("rate limit wait", ctx.Err())
		}
		return nil, upstreamError("rate limit wait", err)
	}
	return r.next.Generate(ctx, in)
}
