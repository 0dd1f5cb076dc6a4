package buffer

import (
	"context"

	"github.com/sessamekesh/abci-hub/pkg/abci"
)

// Submitter is the request/response capability a category handle presents:
// the same contract as the application itself, scoped to one category.
// Middleware (load shedding, rate limiting, bounded concurrency) wraps a
// Submitter and is itself a Submitter, so layers compose per category
// without touching the engine.
type Submitter interface {
	Submit(ctx context.Context, req *abci.Request) (*ResponseFuture, error)
	TrySubmit(req *abci.Request) (*ResponseFuture, error)
}

// Handle is the per-category front end to the shared engine. Handles are
// plain values - copies all reach the same queue, so they can be shared
// freely across connection servers and middleware stacks. Dropping every
// copy does not cancel requests already enqueued for the category.
type Handle struct {
	engine   *Engine
	category abci.Category
}

var _ Submitter = Handle{}

func (h Handle) Category() abci.Category {
	return h.category
}

func (h Handle) Submit(ctx context.Context, req *abci.Request) (*ResponseFuture, error) {
	return h.engine.Send(ctx, h.category, req)
}

func (h Handle) TrySubmit(req *abci.Request) (*ResponseFuture, error) {
	return h.engine.TrySend(h.category, req)
}

// Split returns the four category handles for the engine, in priority order.
func (e *Engine) Split() (consensus, mempool, snapshot, info Handle) {
	return Handle{engine: e, category: abci.CategoryConsensus},
		Handle{engine: e, category: abci.CategoryMempool},
		Handle{engine: e, category: abci.CategorySnapshot},
		Handle{engine: e, category: abci.CategoryInfo}
}
