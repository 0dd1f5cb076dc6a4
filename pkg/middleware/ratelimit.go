package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/sessamekesh/abci-hub/pkg/abci"
	"github.com/sessamekesh/abci-hub/pkg/buffer"
)

// RateLimit applies a token bucket ahead of the wrapped submitter. In
// delaying mode (the default) Submit waits for a token; in rejecting mode it
// fails fast with ErrRateLimited. TrySubmit never waits in either mode.
type RateLimit struct {
	next    buffer.Submitter
	limiter *rate.Limiter
	reject  bool
}

func CreateRateLimit(next buffer.Submitter, perSecond float64, burst int, reject bool) *RateLimit {
	return &RateLimit{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		reject:  reject,
	}
}

var _ buffer.Submitter = (*RateLimit)(nil)

func (r *RateLimit) Submit(ctx context.Context, req *abci.Request) (*buffer.ResponseFuture, error) {
	if r.reject {
		if !r.limiter.Allow() {
			return nil, ErrRateLimited
		}
	} else if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return r.next.Submit(ctx, req)
}

func (r *RateLimit) TrySubmit(req *abci.Request) (*buffer.ResponseFuture, error) {
	if !r.limiter.Allow() {
		return nil, ErrRateLimited
	}
	return r.next.TrySubmit(req)
}
