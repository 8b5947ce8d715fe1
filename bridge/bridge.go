package bridge

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/RayforceDB/raylens/errors"
	"github.com/RayforceDB/raylens/ray"
)

type state int

const (
	stateNotStarted state = iota
	stateRunning
	stateStopped
)

// Bridge serializes all access to a non-thread-safe engine onto one
// dedicated worker goroutine, locked to its OS thread, and exposes an
// asynchronous handle-based request/response protocol to any number of
// concurrent callers.
//
// A Bridge is constructed with New, started once with Start, and torn down
// with Stop. It holds no global state; callers pass the instance around
// explicitly.
type Bridge struct {
	engine ray.Engine
	queue  *commandQueue
	log    *zap.Logger

	mu    sync.Mutex
	state state
	recv  *commandQueue // receiver slot, consumed exactly once by Start
	done  chan struct{}
}

// Option configures a Bridge at construction time.
type Option func(*Bridge)

// WithLogger gives this bridge instance its own logger instead of the
// package-level one.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		b.log = l
	}
}

// New creates a bridge around engine. The engine must be freshly
// constructed: the bridge worker is the one to initialize it and the only
// code ever allowed to call it.
func New(engine ray.Engine, opts ...Option) *Bridge {
	q := newCommandQueue()
	b := &Bridge{
		engine: engine,
		queue:  q,
		recv:   q,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = Logger()
	}
	return b
}

// Start spawns the worker and brings up the engine runtime, blocking until
// initialization settles. Calling Start on a running bridge is a no-op;
// calling it after Stop fails fast, since the command receiver was already
// consumed and a second worker could never observe commands.
//
// An engine initialization failure is unrecoverable for this bridge: the
// worker exits, queued and future commands fail with a channel error.
func (b *Bridge) Start() error {
	b.mu.Lock()
	switch b.state {
	case stateRunning:
		b.mu.Unlock()
		return nil
	case stateStopped:
		b.mu.Unlock()
		return errors.State("bridge stopped; command receiver already consumed")
	}
	rx := b.recv
	b.recv = nil
	b.state = stateRunning
	b.mu.Unlock()

	ready := make(chan error, 1)
	go func() {
		// The engine keeps thread-local state; every call into it must
		// come from this one OS thread.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		runWorker(b.engine, rx, b.log, ready, b.done)
	}()

	if err := <-ready; err != nil {
		b.mu.Lock()
		b.state = stateStopped
		b.mu.Unlock()
		return errors.Init(err)
	}
	return nil
}

// Query evaluates source on the engine under the caller-chosen queryID and
// returns metadata for the stored result. The result stays engine-side;
// fetch it in windows with FetchRows and free it with Release.
//
// Cancelling ctx stops the wait, not the evaluation: the worker continues
// and the eventual response is dropped.
func (b *Bridge) Query(ctx context.Context, queryID, source string) (Meta, error) {
	resp := make(chan execResult, 1)
	if !b.queue.push(executeCmd{queryID: queryID, source: source, resp: resp}) {
		return Meta{}, errors.ChannelClosed(errors.PhaseBridge, "worker is not accepting commands")
	}
	select {
	case r := <-resp:
		return r.meta, r.err
	case <-ctx.Done():
		return Meta{}, ctx.Err()
	}
}

// FetchRows projects rows [start, start+count) of the result behind handle,
// clamped to the result's length. An out-of-range start returns an empty
// slice, never an error.
func (b *Bridge) FetchRows(ctx context.Context, handle, start, count uint64) ([]Row, error) {
	resp := make(chan rowsResult, 1)
	if !b.queue.push(getRowsCmd{handle: handle, start: start, count: count, resp: resp}) {
		return nil, errors.ChannelClosed(errors.PhaseBridge, "worker is not accepting commands")
	}
	select {
	case r := <-resp:
		return r.rows, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release frees the engine value behind handle. Releasing an unknown or
// already-released handle is a no-op. Fire-and-forget: the only possible
// error is a stopped worker.
func (b *Bridge) Release(handle uint64) error {
	if !b.queue.push(releaseCmd{handle: handle}) {
		return errors.ChannelClosed(errors.PhaseBridge, "worker is not accepting commands")
	}
	return nil
}

// Cancel marks queryID for discard. The engine has no preemption primitive,
// so an evaluation already running is never aborted; cancellation only
// suppresses delivery of a result not yet produced. The mark is consumed by
// the first matching Query.
func (b *Bridge) Cancel(queryID string) error {
	if !b.queue.push(cancelCmd{queryID: queryID}) {
		return errors.ChannelClosed(errors.PhaseBridge, "worker is not accepting commands")
	}
	return nil
}

// QueryValue is a convenience for single-value queries: it submits source,
// projects the first value (or a row-count summary for tables), and
// releases the handle before returning.
func (b *Bridge) QueryValue(ctx context.Context, queryID, source string) (ScalarResult, error) {
	meta, err := b.Query(ctx, queryID, source)
	if err != nil {
		return ScalarResult{}, err
	}
	defer func() { _ = b.Release(meta.Handle) }()

	switch meta.ResultType {
	case "scalar", "vector", "list":
		rows, err := b.FetchRows(ctx, meta.Handle, 0, 1)
		if err != nil {
			return ScalarResult{}, err
		}
		out := ScalarResult{Type: meta.ResultType}
		if len(rows) > 0 {
			out.Value = rows[0]["value"]
		}
		return out, nil
	default:
		return ScalarResult{
			Value: map[string]any{"rowCount": meta.RowCount},
			Type:  meta.ResultType,
		}, nil
	}
}

// Stop shuts the worker down: every handle still in the table is released,
// the engine runtime is torn down, and commands sent afterwards fail with a
// channel error. Stop blocks until the worker exits and is idempotent.
func (b *Bridge) Stop() {
	b.mu.Lock()
	prev := b.state
	b.state = stateStopped
	b.mu.Unlock()

	switch prev {
	case stateStopped:
		<-b.done
		return
	case stateNotStarted:
		// No worker to join; just stop accepting commands.
		b.queue.close()
		for _, cmd := range b.queue.drain() {
			failCommand(cmd)
		}
		close(b.done)
		return
	}

	b.queue.push(shutdownCmd{})
	<-b.done
}

// Close implements io.Closer by delegating to Stop, so a bridge tied to a
// broader resource scope is shut down even when the owner never called Stop
// explicitly.
func (b *Bridge) Close() error {
	b.Stop()
	return nil
}
