// Package bridge serializes all interaction with a single-threaded engine
// onto one dedicated worker goroutine and exposes an asynchronous,
// handle-based request/response protocol to concurrent callers.
//
// # Model
//
// The engine (see package ray) is not safe for concurrent use and keeps
// thread-local state, so the worker locks itself to an OS thread and is the
// only code that ever calls into it. Callers never share the engine; they
// share the bridge, which turns method calls into commands on an unbounded
// FIFO queue:
//
//	b := bridge.New(ray.NewMem())
//	if err := b.Start(); err != nil { ... }
//	defer b.Stop()
//
//	meta, err := b.Query(ctx, "q1", "select from trades")
//	rows, err := b.FetchRows(ctx, meta.Handle, 0, 100)
//	b.Release(meta.Handle)
//
// Commands are served strictly in send order. Each request-style command
// carries a one-shot buffered response channel, so a slow or departed
// caller never blocks the worker.
//
// # Handles
//
// Query results stay engine-side. Query returns a Meta describing the
// result and a handle; FetchRows projects bounded row windows through the
// materialize package; Release frees the value. Handles are issued
// monotonically and never reused, so a stale handle fails with an
// invalid-handle error rather than aliasing a newer result. Stop releases
// every handle still registered.
//
// # Cancellation
//
// Cancel is advisory. The engine cannot preempt a running evaluation, so a
// cancel mark only discards a matching query that has not started yet. The
// mark is consumed by the first matching Query and does not outlive it.
package bridge
