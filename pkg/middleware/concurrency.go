package middleware

import (
	"context"

	"github.com/sessamekesh/abci-hub/pkg/abci"
	"github.com/sessamekesh/abci-hub/pkg/buffer"
)

// ConcurrencyLimit caps the number of simultaneously in-flight requests
// (submitted, response not yet resolved) for one category. Submit suspends
// while the cap is reached; TrySubmit fails fast with ErrTooManyInFlight.
type ConcurrencyLimit struct {
	next buffer.Submitter
	sem  chan struct{}
}

func CreateConcurrencyLimit(next buffer.Submitter, maxInFlight int) *ConcurrencyLimit {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &ConcurrencyLimit{
		next: next,
		sem:  make(chan struct{}, maxInFlight),
	}
}

var _ buffer.Submitter = (*ConcurrencyLimit)(nil)

func (c *ConcurrencyLimit) Submit(ctx context.Context, req *abci.Request) (*buffer.ResponseFuture, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	future, err := c.next.Submit(ctx, req)
	if err != nil {
		<-c.sem
		return nil, err
	}

	future.OnDone(func(*abci.Response, error) {
		<-c.sem
	})
	return future, nil
}

func (c *ConcurrencyLimit) TrySubmit(req *abci.Request) (*buffer.ResponseFuture, error) {
	select {
	case c.sem <- struct{}{}:
	default:
		return nil, ErrTooManyInFlight
	}

	future, err := c.next.TrySubmit(req)
	if err != nil {
		<-c.sem
		return nil, err
	}

	future.OnDone(func(*abci.Response, error) {
		<-c.sem
	})
	return future, nil
}
