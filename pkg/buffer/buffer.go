// Package buffer implements the priority dispatch engine: four bounded
// queues, one per traffic category, feeding a single worker goroutine that
// exclusively owns the application. All cross-goroutine communication is
// message passing over the queues; the application is never touched from
// anywhere else.
package buffer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sessamekesh/abci-hub/pkg/abci"
	"github.com/sessamekesh/abci-hub/pkg/metrics"
)

type queueSlot struct {
	req    *abci.Request
	future *ResponseFuture
}

type EngineConfig struct {
	ConsensusQueueLength int
	MempoolQueueLength   int
	SnapshotQueueLength  int
	InfoQueueLength      int

	// ContinueOnError resolves only the failing request's future when the
	// application errors, instead of treating the error as fatal to the
	// whole engine. Only safe for applications whose failures are pure.
	ContinueOnError bool

	Logger  *zap.Logger
	Metrics *metrics.EngineMetrics
}

type Engine struct {
	app abci.Application
	cfg EngineConfig

	log     *zap.Logger
	metrics *metrics.EngineMetrics

	queues [abci.NumCategories]chan queueSlot

	// wake is a one-token signal that a slot landed in some queue while the
	// worker believed every queue was empty.
	wake chan struct{}

	// done is closed when intake stops, either via Close or a fatal
	// application error.
	done      chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	terminalErr error
}

func CreateEngine(app abci.Application, cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}

	queueLength := func(length int) int {
		if length > 0 {
			return length
		}
		return 64
	}

	e := &Engine{
		app:     app,
		cfg:     cfg,
		log:     logger.With(zap.String("component", "buffer")),
		metrics: cfg.Metrics,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	e.queues[abci.CategoryConsensus] = make(chan queueSlot, queueLength(cfg.ConsensusQueueLength))
	e.queues[abci.CategoryMempool] = make(chan queueSlot, queueLength(cfg.MempoolQueueLength))
	e.queues[abci.CategorySnapshot] = make(chan queueSlot, queueLength(cfg.SnapshotQueueLength))
	e.queues[abci.CategoryInfo] = make(chan queueSlot, queueLength(cfg.InfoQueueLength))

	return e
}

// Send enqueues a request into the named category queue and returns its
// future. A full queue suspends the caller until space frees, ctx is
// cancelled, or the engine closes; other categories are unaffected.
func (e *Engine) Send(ctx context.Context, category abci.Category, req *abci.Request) (*ResponseFuture, error) {
	slot, err := e.makeSlot(category, req)
	if err != nil {
		return nil, err
	}

	select {
	case e.queues[category] <- slot:
	case <-e.done:
		return nil, ErrEngineClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return e.commitSlot(category, slot)
}

// TrySend is the non-blocking variant used by load-shedding middleware: a
// full queue reports ErrQueueFull instead of suspending.
func (e *Engine) TrySend(category abci.Category, req *abci.Request) (*ResponseFuture, error) {
	slot, err := e.makeSlot(category, req)
	if err != nil {
		return nil, err
	}

	select {
	case e.queues[category] <- slot:
	case <-e.done:
		return nil, ErrEngineClosed
	default:
		return nil, ErrQueueFull
	}

	return e.commitSlot(category, slot)
}

func (e *Engine) makeSlot(category abci.Category, req *abci.Request) (queueSlot, error) {
	select {
	case <-e.done:
		return queueSlot{}, ErrEngineClosed
	default:
	}

	requestCategory, err := abci.CategoryOf(req.Kind)
	if err != nil {
		return queueSlot{}, err
	}
	if requestCategory != category {
		return queueSlot{}, &CategoryMismatchError{
			HandleCategory:  category,
			RequestKind:     req.Kind,
			RequestCategory: requestCategory,
		}
	}

	return queueSlot{req: req, future: newResponseFuture()}, nil
}

// commitSlot runs after a slot landed in its queue. If the engine closed in
// the meantime the worker's drain pass may already be over, so the sender
// fails its own future; complete is once-only so a duplicate resolution from
// the drain pass is harmless.
func (e *Engine) commitSlot(category abci.Category, slot queueSlot) (*ResponseFuture, error) {
	select {
	case <-e.done:
		slot.future.complete(nil, ErrEngineClosed)
		return nil, ErrEngineClosed
	default:
	}

	select {
	case e.wake <- struct{}{}:
	default:
	}

	e.metrics.IncEnqueued(category.String())
	e.metrics.SetQueueDepth(category.String(), len(e.queues[category]))
	return slot.future, nil
}

// Run drives the worker loop until ctx is cancelled, Close is called, or the
// application fails fatally. It returns the fatal application error, if any.
// Exactly one request is in flight against the application at any instant;
// the highest-priority non-empty queue is always drained first.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("Dispatch worker starting")

	for {
		slot, ok := e.nextSlot(ctx)
		if !ok {
			break
		}

		category, _ := abci.CategoryOf(slot.req.Kind)
		e.metrics.SetQueueDepth(category.String(), len(e.queues[category]))

		resp, err := e.app.Handle(ctx, slot.req)
		if err == nil && resp == nil {
			err = &NilResponseError{Requested: slot.req.Kind}
		}
		if err == nil && resp.Kind != slot.req.Kind {
			err = &KindMismatchError{Requested: slot.req.Kind, Produced: resp.Kind}
		}

		if err != nil {
			e.metrics.IncFailed(category.String())
			slot.future.complete(nil, err)

			if e.cfg.ContinueOnError {
				e.log.Warn("Application request failed, continuing",
					zap.String("kind", slot.req.Kind.String()), zap.Error(err))
				continue
			}

			e.log.Error("Application request failed, shutting dispatch engine down",
				zap.String("kind", slot.req.Kind.String()), zap.Error(err))
			e.closeWith(err)
			break
		}

		e.metrics.IncProcessed(category.String())
		slot.future.complete(resp, nil)
	}

	e.drainPending()
	e.log.Info("Dispatch worker stopped")

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminalErr
}

// nextSlot blocks until a slot is available and returns the head of the
// highest-priority non-empty queue. Categories are declared in priority
// order, so an ascending scan is the priority rule.
func (e *Engine) nextSlot(ctx context.Context) (queueSlot, bool) {
	for {
		// Slots still queued when intake stops belong to the drain pass, not
		// the application.
		select {
		case <-e.done:
			return queueSlot{}, false
		default:
		}

		for category := 0; category < abci.NumCategories; category++ {
			select {
			case slot := <-e.queues[category]:
				return slot, true
			default:
			}
		}

		select {
		case <-e.wake:
		case <-e.done:
			return queueSlot{}, false
		case <-ctx.Done():
			e.closeWith(nil)
			return queueSlot{}, false
		}
	}
}

// drainPending resolves every slot still sitting in a queue with
// ErrEngineClosed. It loops until a full pass finds nothing, covering senders
// that committed a slot while shutdown was in progress.
func (e *Engine) drainPending() {
	for {
		drained := 0
		for category := 0; category < abci.NumCategories; category++ {
			draining := true
			for draining {
				select {
				case slot := <-e.queues[category]:
					slot.future.complete(nil, ErrEngineClosed)
					drained++
				default:
					draining = false
				}
			}
			e.metrics.SetQueueDepth(abci.Category(category).String(), 0)
		}

		select {
		case <-e.wake:
			continue
		default:
		}

		if drained == 0 {
			return
		}
	}
}

func (e *Engine) closeWith(err error) {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.terminalErr = err
		e.mu.Unlock()
		close(e.done)
	})
}

// Close stops intake immediately. Pending and racing queue slots resolve with
// ErrEngineClosed; the worker exits after its drain pass. Idempotent.
func (e *Engine) Close() {
	e.closeWith(nil)
}

// Closed reports whether the engine has stopped accepting requests.
func (e *Engine) Closed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}
