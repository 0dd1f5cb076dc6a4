// Package middleware provides optional per-category decorators around a
// buffer.Submitter: load shedding, rate limiting and bounded concurrency.
// None of these live in the dispatch core - they compose around a category
// handle before it reaches the shared engine, so policies stay independent
// per category.
package middleware

import (
	"context"
	goerrs "errors"
	"sync/atomic"

	"github.com/sessamekesh/abci-hub/pkg/abci"
	"github.com/sessamekesh/abci-hub/pkg/buffer"
)

var (
	ErrShed            = goerrs.New("request shed: category saturated")
	ErrRateLimited     = goerrs.New("request rejected: category rate limit exceeded")
	ErrTooManyInFlight = goerrs.New("request rejected: category concurrency limit reached")
)

// LoadShed rejects instead of suspending: a submit against a full queue, or
// with more than MaxPending unresolved responses outstanding, fails
// immediately with ErrShed.
type LoadShed struct {
	next buffer.Submitter

	maxPending int64
	pending    atomic.Int64
}

// CreateLoadShed wraps next. maxPending <= 0 disables the outstanding
// response cap; queue saturation is always shed.
func CreateLoadShed(next buffer.Submitter, maxPending int) *LoadShed {
	return &LoadShed{
		next:       next,
		maxPending: int64(maxPending),
	}
}

var _ buffer.Submitter = (*LoadShed)(nil)

func (l *LoadShed) Submit(_ context.Context, req *abci.Request) (*buffer.ResponseFuture, error) {
	return l.TrySubmit(req)
}

func (l *LoadShed) TrySubmit(req *abci.Request) (*buffer.ResponseFuture, error) {
	if l.maxPending > 0 && l.pending.Load() >= l.maxPending {
		return nil, ErrShed
	}

	future, err := l.next.TrySubmit(req)
	if err != nil {
		if goerrs.Is(err, buffer.ErrQueueFull) {
			return nil, ErrShed
		}
		return nil, err
	}

	l.pending.Add(1)
	future.OnDone(func(*abci.Response, error) {
		l.pending.Add(-1)
	})

	return future, nil
}
