package bridge

import (
	"strings"

	"go.uber.org/zap"

	"github.com/RayforceDB/raylens/errors"
	"github.com/RayforceDB/raylens/materialize"
	"github.com/RayforceDB/raylens/ray"
)

// worker owns the engine and every live result value. It is the only
// execution context that calls into the engine; the handle table and
// cancelled set are plain maps because nothing else ever touches them.
type worker struct {
	engine    ray.Engine
	table     *handleTable
	cancelled map[string]struct{}
	log       *zap.Logger
}

// runWorker is the worker goroutine body. It initializes the engine,
// reports the outcome on ready, then serves commands in strict send order
// until shutdown.
func runWorker(engine ray.Engine, queue *commandQueue, log *zap.Logger, ready chan<- error, done chan<- struct{}) {
	defer close(done)

	log.Info("engine worker starting")

	if err := engine.Init(); err != nil {
		queue.close()
		for _, cmd := range queue.drain() {
			failCommand(cmd)
		}
		ready <- err
		return
	}
	ready <- nil

	w := &worker{
		engine:    engine,
		table:     newHandleTable(),
		cancelled: make(map[string]struct{}),
		log:       log,
	}
	w.loop(queue)
	log.Info("engine worker stopped")
}

func (w *worker) loop(queue *commandQueue) {
	for {
		cmd, ok := queue.pop()
		if !ok {
			return
		}
		switch c := cmd.(type) {
		case executeCmd:
			c.resp <- w.execute(c)
		case getRowsCmd:
			c.resp <- w.rows(c)
		case releaseCmd:
			w.release(c.handle)
		case cancelCmd:
			w.cancelled[c.queryID] = struct{}{}
		case shutdownCmd:
			queue.close()
			w.shutdown(queue.drain())
			return
		}
	}
}

func (w *worker) execute(c executeCmd) execResult {
	if _, ok := w.cancelled[c.queryID]; ok {
		// Cancellation is consumed, not sticky: the same id can be
		// resubmitted afterwards.
		delete(w.cancelled, c.queryID)
		return execResult{err: errors.Cancelled(c.queryID)}
	}
	if strings.IndexByte(c.source, 0) >= 0 {
		return execResult{err: errors.InvalidInput(errors.PhaseEval, "source contains NUL byte")}
	}

	v := w.engine.Eval(c.source)
	if v == nil {
		return execResult{err: errors.Evaluation(c.queryID, "evaluation returned nothing")}
	}
	if v.Tag() == ray.TagError {
		msg := ray.ErrorMessage(w.engine, v)
		w.engine.Release(v)
		return execResult{err: errors.Evaluation(c.queryID, msg)}
	}

	h := w.table.insert(v)
	meta := w.meta(h, v)
	w.log.Debug("query complete",
		zap.String("query_id", c.queryID),
		zap.Uint64("handle", h),
		zap.String("result_type", meta.ResultType),
		zap.Uint64("rows", meta.RowCount))
	return execResult{meta: meta}
}

// meta derives result metadata from the stored value's tag.
func (w *worker) meta(h uint64, v ray.Value) Meta {
	e := w.engine
	m := Meta{Handle: h, Columns: []string{}, ColumnTypes: map[string]string{}}

	tag := v.Tag()
	switch {
	case tag == ray.TagTable:
		m.ResultType = "table"
		m.Columns = materialize.ColumnNames(e, v)
		m.ColumnTypes = materialize.ColumnTypes(e, v)
		// Row count is the length of the first column vector; a table
		// with no columns has no rows.
		if first := e.At(e.Vals(v), 0); first != nil {
			m.RowCount = uint64(e.Count(first))
		}
	case tag == ray.TagDict:
		m.ResultType = "dict"
		m.Columns = materialize.ColumnNames(e, v)
		m.ColumnTypes = materialize.ColumnTypes(e, v)
		m.RowCount = 1
	case tag.IsAtom():
		m.ResultType = "scalar"
		m.Columns = []string{"value"}
		m.ColumnTypes = map[string]string{"value": tag.String()}
		m.RowCount = 1
	case tag.IsVector():
		m.ResultType = "vector"
		m.Columns = []string{"value"}
		m.ColumnTypes = map[string]string{"value": tag.String()}
		m.RowCount = uint64(e.Count(v))
	case tag.IsList():
		m.ResultType = "list"
		m.Columns = []string{"value"}
		m.ColumnTypes = map[string]string{"value": tag.String()}
		m.RowCount = uint64(e.Count(v))
	default:
		m.ResultType = "unknown"
	}
	return m
}

func (w *worker) rows(c getRowsCmd) rowsResult {
	v, ok := w.table.get(c.handle)
	if !ok {
		return rowsResult{err: errors.InvalidHandle(errors.PhaseFetch, c.handle)}
	}

	rows, err := materialize.Rows(w.engine, v, c.start, c.count)
	if err != nil {
		if structured, ok := err.(*errors.Error); ok {
			structured.Handle = c.handle
		}
		return rowsResult{err: err}
	}
	return rowsResult{rows: rows}
}

func (w *worker) release(h uint64) {
	if v, ok := w.table.remove(h); ok {
		w.engine.Release(v)
		w.log.Debug("released handle", zap.Uint64("handle", h))
	}
}

// shutdown releases every remaining handle, tears the engine down, and
// answers commands that were still queued behind the shutdown.
func (w *worker) shutdown(leftover []command) {
	remaining := w.table.len()
	for _, v := range w.table.drain() {
		w.engine.Release(v)
	}
	if remaining > 0 {
		w.log.Debug("released remaining handles", zap.Int("count", remaining))
	}
	w.engine.Close()

	for _, cmd := range leftover {
		failCommand(cmd)
	}
}

// failCommand answers a command's response channel, if it has one, with a
// channel-closed error. Responses are one-shot buffered channels, so this
// never blocks and never panics an awaiting caller.
func failCommand(cmd command) {
	err := errors.ChannelClosed(errors.PhaseBridge, "worker shut down before the command was served")
	switch c := cmd.(type) {
	case executeCmd:
		c.resp <- execResult{err: err}
	case getRowsCmd:
		c.resp <- rowsResult{err: err}
	}
}
