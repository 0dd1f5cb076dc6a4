package buffer

import (
	"context"
	goerrs "errors"
	"sync"
	"testing"
	"time"

	"github.com/sessamekesh/abci-hub/pkg/abci"
)

// scriptedApp is a deterministic Application for engine tests. When gate is
// set, Handle consumes one token per request, which lets a test hold the
// worker mid-request and stack up queue state behind it. started (when set)
// receives each request's label the moment the worker picks it up.
type scriptedApp struct {
	gate    chan struct{}
	started chan string
	failOn  abci.RequestKind
	failErr error

	mu   sync.Mutex
	seen []string
}

func label(req *abci.Request) string {
	if req.Kind == abci.RequestKind_Echo && req.Echo != nil {
		return req.Echo.Message
	}
	return req.Kind.String()
}

func (a *scriptedApp) Handle(ctx context.Context, req *abci.Request) (*abci.Response, error) {
	if a.started != nil {
		a.started <- label(req)
	}
	if a.gate != nil {
		<-a.gate
	}

	a.mu.Lock()
	a.seen = append(a.seen, label(req))
	a.mu.Unlock()

	if req.Kind == a.failOn {
		return nil, a.failErr
	}
	return &abci.Response{Kind: req.Kind}, nil
}

func (a *scriptedApp) observed() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.seen...)
}

func echoRequest(msg string) *abci.Request {
	return &abci.Request{
		Kind: abci.RequestKind_Echo,
		Echo: &abci.EchoRequest{Message: msg},
	}
}

func checkTxRequest(tx string) *abci.Request {
	return &abci.Request{
		Kind:    abci.RequestKind_CheckTx,
		CheckTx: &abci.CheckTxRequest{Tx: []byte(tx)},
	}
}

func startEngine(t *testing.T, app abci.Application, cfg EngineConfig) (*Engine, func() error) {
	t.Helper()

	engine := CreateEngine(app, cfg)
	runResult := make(chan error, 1)
	go func() {
		runResult <- engine.Run(context.Background())
	}()

	return engine, func() error {
		engine.Close()
		select {
		case err := <-runResult:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("engine did not stop within 5s")
			return nil
		}
	}
}

func waitFuture(t *testing.T, future *ResponseFuture) (*abci.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := future.Wait(ctx)
	if goerrs.Is(err, context.DeadlineExceeded) {
		t.Fatal("future did not resolve within 5s")
	}
	return resp, err
}

func TestSubmitResolvesMatchingKind(t *testing.T) {
	app := &scriptedApp{}
	engine, stop := startEngine(t, app, EngineConfig{})
	_, _, _, info := engine.Split()

	future, err := info.Submit(context.Background(), echoRequest("ping"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	resp, err := waitFuture(t, future)
	if err != nil {
		t.Fatalf("future resolved with error: %v", err)
	}
	if resp.Kind != abci.RequestKind_Echo {
		t.Fatalf("response kind = %s, want Echo", resp.Kind)
	}

	if err := stop(); err != nil {
		t.Fatalf("engine stopped with error: %v", err)
	}
}

func TestSubmitRejectsCategoryMismatch(t *testing.T) {
	app := &scriptedApp{}
	engine, stop := startEngine(t, app, EngineConfig{})
	defer stop()
	_, _, _, info := engine.Split()

	_, err := info.Submit(context.Background(), checkTxRequest("tx"))
	var mismatchErr *CategoryMismatchError
	if !goerrs.As(err, &mismatchErr) {
		t.Fatalf("expected CategoryMismatchError, got %v", err)
	}
	if mismatchErr.HandleCategory != abci.CategoryInfo ||
		mismatchErr.RequestCategory != abci.CategoryMempool {
		t.Fatalf("mismatch error fields wrong: %+v", mismatchErr)
	}
}

func TestFIFOWithinCategory(t *testing.T) {
	app := &scriptedApp{
		gate:    make(chan struct{}),
		started: make(chan string, 16),
	}
	engine, stop := startEngine(t, app, EngineConfig{})
	_, _, _, info := engine.Split()
	ctx := context.Background()

	first, err := info.Submit(ctx, echoRequest("e0"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-app.started // worker now holds e0 at the gate

	futures := []*ResponseFuture{first}
	for _, msg := range []string{"e1", "e2", "e3"} {
		future, err := info.Submit(ctx, echoRequest(msg))
		if err != nil {
			t.Fatalf("submit %s failed: %v", msg, err)
		}
		futures = append(futures, future)
	}

	for range futures {
		app.gate <- struct{}{}
	}
	for i, future := range futures {
		if _, err := waitFuture(t, future); err != nil {
			t.Fatalf("future %d resolved with error: %v", i, err)
		}
	}

	want := []string{"e0", "e1", "e2", "e3"}
	got := app.observed()
	if len(got) != len(want) {
		t.Fatalf("observed %d requests, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("observed order %v, want %v", got, want)
		}
	}

	if err := stop(); err != nil {
		t.Fatalf("engine stopped with error: %v", err)
	}
}

func TestHigherPriorityCategoryOvertakes(t *testing.T) {
	app := &scriptedApp{
		gate:    make(chan struct{}),
		started: make(chan string, 16),
	}
	engine, stop := startEngine(t, app, EngineConfig{})
	consensus, mempool, _, info := engine.Split()
	ctx := context.Background()

	busy, err := info.Submit(ctx, echoRequest("busy"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-app.started // worker occupied

	// Enqueue lower priority first, then higher. The worker must still take
	// the consensus request before the mempool one.
	checkFuture, err := mempool.Submit(ctx, checkTxRequest("tx"))
	if err != nil {
		t.Fatalf("submit check tx failed: %v", err)
	}
	commitFuture, err := consensus.Submit(ctx, &abci.Request{Kind: abci.RequestKind_Commit})
	if err != nil {
		t.Fatalf("submit commit failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		app.gate <- struct{}{}
	}
	for _, future := range []*ResponseFuture{busy, commitFuture, checkFuture} {
		if _, err := waitFuture(t, future); err != nil {
			t.Fatalf("future resolved with error: %v", err)
		}
	}

	want := []string{"busy", "Commit", "CheckTx"}
	got := app.observed()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("observed order %v, want %v", got, want)
		}
	}

	if err := stop(); err != nil {
		t.Fatalf("engine stopped with error: %v", err)
	}
}

func TestTrySendReportsQueueFull(t *testing.T) {
	app := &scriptedApp{
		gate:    make(chan struct{}),
		started: make(chan string, 16),
	}
	engine, stop := startEngine(t, app, EngineConfig{InfoQueueLength: 1})
	_, _, _, info := engine.Split()
	ctx := context.Background()

	inFlight, err := info.Submit(ctx, echoRequest("in-flight"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-app.started

	queued, err := info.Submit(ctx, echoRequest("queued"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if _, err := info.TrySubmit(echoRequest("rejected")); !goerrs.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	// Other categories are unaffected by the full info queue.
	mempoolFuture, err := engineMempool(engine).TrySubmit(checkTxRequest("tx"))
	if err != nil {
		t.Fatalf("mempool try submit failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		app.gate <- struct{}{}
	}
	for _, future := range []*ResponseFuture{inFlight, queued, mempoolFuture} {
		if _, err := waitFuture(t, future); err != nil {
			t.Fatalf("future resolved with error: %v", err)
		}
	}

	if err := stop(); err != nil {
		t.Fatalf("engine stopped with error: %v", err)
	}
}

func engineMempool(e *Engine) Handle {
	_, mempool, _, _ := e.Split()
	return mempool
}

func TestBlockedSendPreservesOrder(t *testing.T) {
	app := &scriptedApp{
		gate:    make(chan struct{}),
		started: make(chan string, 16),
	}
	engine, stop := startEngine(t, app, EngineConfig{InfoQueueLength: 1})
	_, _, _, info := engine.Split()
	ctx := context.Background()

	if _, err := info.Submit(ctx, echoRequest("a")); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-app.started
	if _, err := info.Submit(ctx, echoRequest("b")); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	blockedDone := make(chan error, 1)
	go func() {
		_, err := info.Submit(ctx, echoRequest("c"))
		blockedDone <- err
	}()

	select {
	case err := <-blockedDone:
		t.Fatalf("send into a full queue returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	for i := 0; i < 3; i++ {
		app.gate <- struct{}{}
	}
	if err := <-blockedDone; err != nil {
		t.Fatalf("blocked send failed: %v", err)
	}

	if err := stop(); err != nil {
		t.Fatalf("engine stopped with error: %v", err)
	}

	want := []string{"a", "b", "c"}
	got := app.observed()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("observed order %v, want %v", got, want)
		}
	}
}

func TestSendHonorsContextCancellation(t *testing.T) {
	app := &scriptedApp{
		gate:    make(chan struct{}),
		started: make(chan string, 16),
	}
	engine, stop := startEngine(t, app, EngineConfig{InfoQueueLength: 1})
	_, _, _, info := engine.Split()

	if _, err := info.Submit(context.Background(), echoRequest("a")); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-app.started
	if _, err := info.Submit(context.Background(), echoRequest("b")); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := info.Submit(ctx, echoRequest("c")); !goerrs.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}

	app.gate <- struct{}{}
	app.gate <- struct{}{}
	if err := stop(); err != nil {
		t.Fatalf("engine stopped with error: %v", err)
	}
}

func TestCloseFailsPendingAndRejectsNewSends(t *testing.T) {
	app := &scriptedApp{
		gate:    make(chan struct{}),
		started: make(chan string, 16),
	}
	engine, stop := startEngine(t, app, EngineConfig{})
	_, _, _, info := engine.Split()
	ctx := context.Background()

	inFlight, err := info.Submit(ctx, echoRequest("in-flight"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-app.started

	pendingB, err := info.Submit(ctx, echoRequest("pending-b"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	pendingC, err := info.Submit(ctx, echoRequest("pending-c"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	engine.Close()
	if !engine.Closed() {
		t.Fatal("engine should report closed")
	}

	if _, err := info.Submit(ctx, echoRequest("late")); !goerrs.Is(err, ErrEngineClosed) {
		t.Fatalf("expected ErrEngineClosed, got %v", err)
	}
	if _, err := info.TrySubmit(echoRequest("late")); !goerrs.Is(err, ErrEngineClosed) {
		t.Fatalf("expected ErrEngineClosed, got %v", err)
	}

	// Unblock the in-flight request: it already reached the application, so
	// it resolves normally. The queued ones never reach the application.
	app.gate <- struct{}{}

	if resp, err := waitFuture(t, inFlight); err != nil || resp == nil {
		t.Fatalf("in-flight future should resolve normally, got resp=%v err=%v", resp, err)
	}
	if _, err := waitFuture(t, pendingB); !goerrs.Is(err, ErrEngineClosed) {
		t.Fatalf("pending future should fail with ErrEngineClosed, got %v", err)
	}
	if _, err := waitFuture(t, pendingC); !goerrs.Is(err, ErrEngineClosed) {
		t.Fatalf("pending future should fail with ErrEngineClosed, got %v", err)
	}

	if err := stop(); err != nil {
		t.Fatalf("engine stopped with error: %v", err)
	}

	got := app.observed()
	if len(got) != 1 || got[0] != "in-flight" {
		t.Fatalf("application saw %v, want only the in-flight request", got)
	}
}

func TestFatalApplicationErrorStopsEngine(t *testing.T) {
	appErr := goerrs.New("application exploded")
	app := &scriptedApp{failOn: abci.RequestKind_CheckTx, failErr: appErr}

	engine := CreateEngine(app, EngineConfig{})
	runResult := make(chan error, 1)
	go func() {
		runResult <- engine.Run(context.Background())
	}()
	_, mempool, _, info := engine.Split()

	future, err := mempool.Submit(context.Background(), checkTxRequest("tx"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := waitFuture(t, future); !goerrs.Is(err, appErr) {
		t.Fatalf("future should carry the application error, got %v", err)
	}

	select {
	case err := <-runResult:
		if !goerrs.Is(err, appErr) {
			t.Fatalf("Run should return the fatal application error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop after fatal application error")
	}

	if _, err := info.Submit(context.Background(), echoRequest("late")); !goerrs.Is(err, ErrEngineClosed) {
		t.Fatalf("expected ErrEngineClosed after fatal error, got %v", err)
	}
}

func TestContinueOnErrorKeepsEngineAlive(t *testing.T) {
	appErr := goerrs.New("bad tx")
	app := &scriptedApp{failOn: abci.RequestKind_CheckTx, failErr: appErr}
	engine, stop := startEngine(t, app, EngineConfig{ContinueOnError: true})
	_, mempool, _, info := engine.Split()
	ctx := context.Background()

	failed, err := mempool.Submit(ctx, checkTxRequest("tx"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := waitFuture(t, failed); !goerrs.Is(err, appErr) {
		t.Fatalf("failing future should carry the application error, got %v", err)
	}

	// The engine is still serving other requests.
	ok, err := info.Submit(ctx, echoRequest("still alive"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resp, err := waitFuture(t, ok); err != nil || resp.Kind != abci.RequestKind_Echo {
		t.Fatalf("follow-up request failed: resp=%v err=%v", resp, err)
	}

	if err := stop(); err != nil {
		t.Fatalf("engine stopped with error: %v", err)
	}
}

type nilResponseApp struct{}

func (nilResponseApp) Handle(ctx context.Context, req *abci.Request) (*abci.Response, error) {
	return nil, nil
}

type wrongKindApp struct{}

func (wrongKindApp) Handle(ctx context.Context, req *abci.Request) (*abci.Response, error) {
	return &abci.Response{Kind: abci.RequestKind_Flush}, nil
}

func TestMalformedApplicationResponsesAreErrors(t *testing.T) {
	engine, stop := startEngine(t, nilResponseApp{}, EngineConfig{ContinueOnError: true})
	_, _, _, info := engine.Split()

	future, err := info.Submit(context.Background(), echoRequest("x"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	var nilErr *NilResponseError
	if _, err := waitFuture(t, future); !goerrs.As(err, &nilErr) {
		t.Fatalf("expected NilResponseError, got %v", err)
	}
	stop()

	engine2, stop2 := startEngine(t, wrongKindApp{}, EngineConfig{ContinueOnError: true})
	_, _, _, info2 := engine2.Split()

	future2, err := info2.Submit(context.Background(), echoRequest("x"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	var kindErr *KindMismatchError
	if _, err := waitFuture(t, future2); !goerrs.As(err, &kindErr) {
		t.Fatalf("expected KindMismatchError, got %v", err)
	}
	if kindErr.Requested != abci.RequestKind_Echo || kindErr.Produced != abci.RequestKind_Flush {
		t.Fatalf("kind mismatch fields wrong: %+v", kindErr)
	}
	stop2()
}

func TestFuturePeekAndOnDone(t *testing.T) {
	future := newResponseFuture()

	if _, _, done := future.Peek(); done {
		t.Fatal("unresolved future should not report done")
	}

	callback := make(chan error, 1)
	future.OnDone(func(resp *abci.Response, err error) {
		callback <- err
	})

	future.complete(&abci.Response{Kind: abci.RequestKind_Echo}, nil)
	future.complete(nil, goerrs.New("late completion must be ignored"))

	resp, err, done := future.Peek()
	if !done || err != nil || resp.Kind != abci.RequestKind_Echo {
		t.Fatalf("peek after completion: resp=%v err=%v done=%v", resp, err, done)
	}

	select {
	case err := <-callback:
		if err != nil {
			t.Fatalf("callback saw error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnDone callback never ran")
	}
}
