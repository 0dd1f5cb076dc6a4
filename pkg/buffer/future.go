package buffer

import (
	"context"
	"sync"

	"github.com/sessamekesh/abci-hub/pkg/abci"
)

// ResponseFuture resolves when the dispatch worker has produced the response
// for an enqueued request (or the engine failed it). It is completed exactly
// once; late completions are ignored.
type ResponseFuture struct {
	ch   chan struct{}
	resp *abci.Response
	err  error

	once sync.Once
	mu   sync.Mutex
}

func newResponseFuture() *ResponseFuture {
	return &ResponseFuture{
		ch: make(chan struct{}),
	}
}

func (f *ResponseFuture) complete(resp *abci.Response, err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.resp = resp
		f.err = err
		f.mu.Unlock()
		close(f.ch)
	})
}

// Done is closed when the response (or error) is available.
func (f *ResponseFuture) Done() <-chan struct{} {
	return f.ch
}

// Wait blocks until the future resolves or ctx is cancelled. Abandoning a
// future does not dequeue the request - the application still processes it
// and the unobserved response is discarded.
func (f *ResponseFuture) Wait(ctx context.Context) (*abci.Response, error) {
	select {
	case <-f.ch:
		f.mu.Lock()
		resp, err := f.resp, f.err
		f.mu.Unlock()
		return resp, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns the outcome without blocking; done reports whether the future
// has resolved yet.
func (f *ResponseFuture) Peek() (resp *abci.Response, err error, done bool) {
	select {
	case <-f.ch:
		f.mu.Lock()
		resp, err = f.resp, f.err
		f.mu.Unlock()
		return resp, err, true
	default:
		return nil, nil, false
	}
}

// OnDone runs cb in its own goroutine once the future resolves. If the future
// already resolved, cb runs immediately.
func (f *ResponseFuture) OnDone(cb func(*abci.Response, error)) {
	go func() {
		<-f.ch
		f.mu.Lock()
		resp, err := f.resp, f.err
		f.mu.Unlock()
		cb(resp, err)
	}()
}
