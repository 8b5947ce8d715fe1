package bridge

import (
	"context"
	stderrors "errors"
	"testing"

	"go.uber.org/zap"

	"github.com/RayforceDB/raylens/errors"
	"github.com/RayforceDB/raylens/ray"
)

func newTestBridge(t *testing.T, bind func(e *ray.MemEngine)) (*Bridge, *ray.MemEngine) {
	t.Helper()
	e := ray.NewMem()
	if bind != nil {
		bind(e)
	}
	b := New(e)
	if err := b.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(b.Stop)
	return b, e
}

// fence pushes a throwaway query through the worker so that fire-and-forget
// commands sent before it are guaranteed to have been served.
func fence(t *testing.T, b *Bridge) {
	t.Helper()
	meta, err := b.Query(context.Background(), "fence", "1")
	if err != nil {
		t.Fatalf("fence query: %v", err)
	}
	if err := b.Release(meta.Handle); err != nil {
		t.Fatalf("fence release: %v", err)
	}
}

func bindOne(e *ray.MemEngine) {
	e.Bind("1", func() ray.Value { return ray.NewI64(1) })
}

func TestQueryScalar(t *testing.T) {
	b, _ := newTestBridge(t, func(e *ray.MemEngine) {
		e.Bind("1+1", func() ray.Value { return ray.NewI64(2) })
	})

	meta, err := b.Query(context.Background(), "q1", "1+1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if meta.Handle != 1 {
		t.Errorf("handle = %d, want 1", meta.Handle)
	}
	if meta.ResultType != "scalar" {
		t.Errorf("result type = %q, want scalar", meta.ResultType)
	}
	if meta.RowCount != 1 {
		t.Errorf("row count = %d, want 1", meta.RowCount)
	}
	if len(meta.Columns) != 1 || meta.Columns[0] != "value" {
		t.Errorf("columns = %v, want [value]", meta.Columns)
	}
	if meta.ColumnTypes["value"] != "i64" {
		t.Errorf("column type = %q, want i64", meta.ColumnTypes["value"])
	}

	rows, err := b.FetchRows(context.Background(), meta.Handle, 0, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if got := rows[0]["value"]; got != int64(2) {
		t.Errorf("value = %v (%T), want 2", got, got)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	b, _ := newTestBridge(t, func(e *ray.MemEngine) {
		e.Bind("til 5", func() ray.Value { return ray.NewI64Vector(0, 1, 2, 3, 4) })
	})

	meta, err := b.Query(context.Background(), "q1", "til 5")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if meta.ResultType != "vector" || meta.RowCount != 5 {
		t.Fatalf("meta = %+v, want vector of 5", meta)
	}

	tests := []struct {
		name  string
		start uint64
		count uint64
		want  []int64
	}{
		{"full", 0, 100, []int64{0, 1, 2, 3, 4}},
		{"window", 1, 2, []int64{1, 2}},
		{"overrun clamps", 3, 10, []int64{3, 4}},
		{"start past end", 7, 4, nil},
		{"zero count", 0, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := b.FetchRows(context.Background(), meta.Handle, tt.start, tt.count)
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(rows), len(tt.want))
			}
			for i, want := range tt.want {
				if got := rows[i]["value"]; got != want {
					t.Errorf("row %d = %v, want %d", i, got, want)
				}
			}
		})
	}
}

func TestTableQuery(t *testing.T) {
	b, _ := newTestBridge(t, func(e *ray.MemEngine) {
		e.Bind("trades", func() ray.Value {
			return ray.NewTable(
				[]string{"sym", "price"},
				ray.NewSymbolVector("aapl", "msft", "goog"),
				ray.NewF64Vector(187.5, 402.1, 141.9),
			)
		})
	})

	meta, err := b.Query(context.Background(), "q1", "trades")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if meta.ResultType != "table" {
		t.Errorf("result type = %q, want table", meta.ResultType)
	}
	if meta.RowCount != 3 {
		t.Errorf("row count = %d, want 3", meta.RowCount)
	}
	if len(meta.Columns) != 2 || meta.Columns[0] != "sym" || meta.Columns[1] != "price" {
		t.Errorf("columns = %v, want [sym price]", meta.Columns)
	}
	if meta.ColumnTypes["sym"] != "symbol" || meta.ColumnTypes["price"] != "f64" {
		t.Errorf("column types = %v", meta.ColumnTypes)
	}

	rows, err := b.FetchRows(context.Background(), meta.Handle, 1, 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["sym"] != "msft" || rows[0]["price"] != 402.1 {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1]["sym"] != "goog" {
		t.Errorf("row 1 = %v", rows[1])
	}
}

func TestDictQuery(t *testing.T) {
	b, _ := newTestBridge(t, func(e *ray.MemEngine) {
		e.Bind("meta", func() ray.Value {
			return ray.NewDict([]string{"name", "rows"}, ray.NewSymbol("trades"), ray.NewI64(3))
		})
	})

	meta, err := b.Query(context.Background(), "q1", "meta")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if meta.ResultType != "dict" || meta.RowCount != 1 {
		t.Fatalf("meta = %+v, want dict of 1", meta)
	}

	rows, err := b.FetchRows(context.Background(), meta.Handle, 0, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0]["name"] != "trades" || rows[0]["rows"] != int64(3) {
		t.Errorf("row = %v", rows[0])
	}
}

func TestHandlesMonotonicNoReuse(t *testing.T) {
	b, _ := newTestBridge(t, bindOne)
	ctx := context.Background()

	m1, err := b.Query(ctx, "q1", "1")
	if err != nil {
		t.Fatalf("query 1: %v", err)
	}
	m2, err := b.Query(ctx, "q2", "1")
	if err != nil {
		t.Fatalf("query 2: %v", err)
	}
	if err := b.Release(m1.Handle); err != nil {
		t.Fatalf("release: %v", err)
	}
	m3, err := b.Query(ctx, "q3", "1")
	if err != nil {
		t.Fatalf("query 3: %v", err)
	}

	if m1.Handle != 1 || m2.Handle != 2 || m3.Handle != 3 {
		t.Errorf("handles = %d, %d, %d; want 1, 2, 3", m1.Handle, m2.Handle, m3.Handle)
	}
}

func TestFetchInvalidHandle(t *testing.T) {
	b, _ := newTestBridge(t, nil)

	_, err := b.FetchRows(context.Background(), 42, 0, 10)
	if !stderrors.Is(err, errors.ErrInvalidHandle) {
		t.Fatalf("err = %v, want invalid handle", err)
	}
	var se *errors.Error
	if !stderrors.As(err, &se) {
		t.Fatalf("err = %T, want *errors.Error", err)
	}
	if se.Handle != 42 {
		t.Errorf("error handle = %d, want 42", se.Handle)
	}
}

func TestFetchAfterRelease(t *testing.T) {
	b, _ := newTestBridge(t, bindOne)
	ctx := context.Background()

	meta, err := b.Query(ctx, "q1", "1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if err := b.Release(meta.Handle); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := b.FetchRows(ctx, meta.Handle, 0, 1); !stderrors.Is(err, errors.ErrInvalidHandle) {
		t.Errorf("fetch after release: err = %v, want invalid handle", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	b, e := newTestBridge(t, bindOne)
	ctx := context.Background()

	meta, err := b.Query(ctx, "q1", "1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	b.Release(meta.Handle)
	b.Release(meta.Handle)
	b.Release(999)
	fence(t, b)

	// One real release plus the sync query's own.
	if got := e.ReleasedCount(); got != 2 {
		t.Errorf("released count = %d, want 2", got)
	}
	if got := e.Live(); got != 0 {
		t.Errorf("live values = %d, want 0", got)
	}
}

func TestEvaluationError(t *testing.T) {
	b, e := newTestBridge(t, func(e *ray.MemEngine) {
		e.Bind("boom", func() ray.Value { return ray.NewErrorValue("type mismatch") })
		bindOne(e)
	})

	_, err := b.Query(context.Background(), "q1", "boom")
	if !stderrors.Is(err, errors.ErrEvaluation) {
		t.Fatalf("err = %v, want evaluation error", err)
	}
	var se *errors.Error
	if !stderrors.As(err, &se) {
		t.Fatalf("err = %T, want *errors.Error", err)
	}
	if se.Detail != "type mismatch" {
		t.Errorf("detail = %q, want %q", se.Detail, "type mismatch")
	}
	if se.QueryID != "q1" {
		t.Errorf("query id = %q, want q1", se.QueryID)
	}

	// The error value itself must not leak.
	fence(t, b)
	if got := e.Live(); got != 0 {
		t.Errorf("live values = %d, want 0", got)
	}
}

func TestUnknownSourceIsEvaluationError(t *testing.T) {
	b, _ := newTestBridge(t, nil)

	_, err := b.Query(context.Background(), "q1", "nonsense")
	if !stderrors.Is(err, errors.ErrEvaluation) {
		t.Fatalf("err = %v, want evaluation error", err)
	}
}

func TestNulInputRejected(t *testing.T) {
	b, _ := newTestBridge(t, nil)

	_, err := b.Query(context.Background(), "q1", "1+\x001")
	if !stderrors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestCancelConsumedByNextQuery(t *testing.T) {
	b, _ := newTestBridge(t, bindOne)
	ctx := context.Background()

	if err := b.Cancel("q1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := b.Query(ctx, "q1", "1"); !stderrors.Is(err, errors.ErrCancelled) {
		t.Fatalf("first query: err = %v, want cancelled", err)
	}

	// The mark is consumed: the same id runs normally afterwards.
	meta, err := b.Query(ctx, "q1", "1")
	if err != nil {
		t.Fatalf("second query: %v", err)
	}
	b.Release(meta.Handle)
}

func TestCancelOtherIDHasNoEffect(t *testing.T) {
	b, _ := newTestBridge(t, bindOne)

	if err := b.Cancel("other"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	meta, err := b.Query(context.Background(), "q1", "1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	b.Release(meta.Handle)
}

func TestStopReleasesAllHandles(t *testing.T) {
	e := ray.NewMem()
	bindOne(e)
	b := New(e)
	if err := b.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := b.Query(ctx, "q", "1"); err != nil {
			t.Fatalf("query %d: %v", i, err)
		}
	}
	b.Stop()

	if got := e.Live(); got != 0 {
		t.Errorf("live values after stop = %d, want 0", got)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	b, _ := newTestBridge(t, bindOne)
	b.Stop()

	if _, err := b.Query(context.Background(), "q1", "1"); !stderrors.Is(err, errors.ErrChannelClosed) {
		t.Errorf("query: err = %v, want channel closed", err)
	}
	if _, err := b.FetchRows(context.Background(), 1, 0, 1); !stderrors.Is(err, errors.ErrChannelClosed) {
		t.Errorf("fetch: err = %v, want channel closed", err)
	}
	if err := b.Release(1); !stderrors.Is(err, errors.ErrChannelClosed) {
		t.Errorf("release: err = %v, want channel closed", err)
	}
	if err := b.Cancel("q1"); !stderrors.Is(err, errors.ErrChannelClosed) {
		t.Errorf("cancel: err = %v, want channel closed", err)
	}
}

func TestStartIdempotentWhileRunning(t *testing.T) {
	b, _ := newTestBridge(t, nil)
	if err := b.Start(); err != nil {
		t.Errorf("second start: %v, want nil", err)
	}
}

func TestStartAfterStopFails(t *testing.T) {
	b, _ := newTestBridge(t, nil)
	b.Stop()
	if err := b.Start(); err == nil {
		t.Error("start after stop: want error, got nil")
	}
}

func TestStopWithoutStart(t *testing.T) {
	b := New(ray.NewMem())
	b.Stop()
	b.Stop()

	if _, err := b.Query(context.Background(), "q1", "1"); !stderrors.Is(err, errors.ErrChannelClosed) {
		t.Errorf("query: err = %v, want channel closed", err)
	}
}

func TestWithLogger(t *testing.T) {
	e := ray.NewMem()
	bindOne(e)
	b := New(e, WithLogger(zap.NewNop()))
	if err := b.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer b.Stop()

	meta, err := b.Query(context.Background(), "q1", "1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	b.Release(meta.Handle)
}

type failingEngine struct {
	*ray.MemEngine
}

func (failingEngine) Init() error {
	return stderrors.New("runtime missing")
}

func TestStartInitFailure(t *testing.T) {
	b := New(failingEngine{ray.NewMem()})

	if err := b.Start(); err == nil {
		t.Fatal("start: want error, got nil")
	}
	if err := b.Start(); err == nil {
		t.Error("restart after init failure: want error, got nil")
	}
	if _, err := b.Query(context.Background(), "q1", "1"); !stderrors.Is(err, errors.ErrChannelClosed) {
		t.Errorf("query: err = %v, want channel closed", err)
	}
	b.Stop()
}

func TestQueryValue(t *testing.T) {
	b, e := newTestBridge(t, func(e *ray.MemEngine) {
		e.Bind("6*7", func() ray.Value { return ray.NewI64(42) })
		e.Bind("trades", func() ray.Value {
			return ray.NewTable([]string{"sym"}, ray.NewSymbolVector("aapl", "msft"))
		})
		bindOne(e)
	})
	ctx := context.Background()

	got, err := b.QueryValue(ctx, "q1", "6*7")
	if err != nil {
		t.Fatalf("scalar: %v", err)
	}
	if got.Type != "scalar" || got.Value != int64(42) {
		t.Errorf("scalar = %+v", got)
	}

	got, err = b.QueryValue(ctx, "q2", "trades")
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if got.Type != "table" {
		t.Errorf("table type = %q", got.Type)
	}
	summary, ok := got.Value.(map[string]any)
	if !ok || summary["rowCount"] != uint64(2) {
		t.Errorf("table value = %v", got.Value)
	}

	// QueryValue must not leak its handle.
	fence(t, b)
	if live := e.Live(); live != 0 {
		t.Errorf("live values = %d, want 0", live)
	}
}

func TestQueryContextCancelled(t *testing.T) {
	release := make(chan struct{})
	b, _ := newTestBridge(t, func(e *ray.MemEngine) {
		e.Bind("slow", func() ray.Value {
			<-release
			return ray.NewI64(1)
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Query(ctx, "q1", "slow")
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}

	// Unblock the worker so Stop can run its shutdown path.
	close(release)
}
