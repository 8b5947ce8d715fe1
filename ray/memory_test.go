package ray

import "testing"

func TestTag_String(t *testing.T) {
	tests := []struct {
		tag  Tag
		want string
	}{
		{TagI64, "i64"},
		{-TagI64, "i64"},
		{TagSymbol, "symbol"},
		{-TagF64, "f64"},
		{TagTable, "table"},
		{TagDict, "dict"},
		{TagError, "error"},
		{TagNull, "null"},
		{Tag(77), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.tag.String(); got != tt.want {
			t.Errorf("Tag(%d).String() = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestMemEngine_EvalAndRelease(t *testing.T) {
	e := NewMem()
	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	e.Bind("1+1", func() Value { return NewI64(2) })

	v := e.Eval("1+1")
	if v == nil {
		t.Fatal("Eval returned nil for bound source")
	}
	if v.Tag() != -TagI64 {
		t.Fatalf("tag = %v, want i64 atom", v.Tag())
	}
	if e.Int(v) != 2 {
		t.Fatalf("Int = %d, want 2", e.Int(v))
	}
	if e.Live() != 1 {
		t.Fatalf("Live = %d, want 1", e.Live())
	}

	e.Release(v)
	if e.Live() != 0 {
		t.Fatalf("Live after release = %d, want 0", e.Live())
	}
	if e.ReleasedCount() != 1 {
		t.Fatalf("ReleasedCount = %d, want 1", e.ReleasedCount())
	}
}

func TestMemEngine_UnboundSourceIsErrorValue(t *testing.T) {
	e := NewMem()
	v := e.Eval("no such binding")
	if v == nil || v.Tag() != TagError {
		t.Fatalf("expected error value, got %v", v)
	}
	if msg := ErrorMessage(e, v); msg != "undefined: no such binding" {
		t.Fatalf("message = %q", msg)
	}
	e.Release(v)
}

func TestMemEngine_VectorAccess(t *testing.T) {
	e := NewMem()
	v := NewI64Vector(10, 20, 30)

	if e.Count(v) != 3 {
		t.Fatalf("Count = %d", e.Count(v))
	}

	// Buffer fast path
	xs, ok := e.Ints(v)
	if !ok {
		t.Fatal("Ints refused an i64 vector")
	}
	if len(xs) != 3 || xs[0] != 10 || xs[2] != 30 {
		t.Fatalf("Ints = %v", xs)
	}

	// Generic per-index path
	el := e.At(v, 1)
	if el == nil || el.Tag() != -TagI64 || e.Int(el) != 20 {
		t.Fatalf("At(1) = %v", el)
	}
	if e.At(v, 3) != nil {
		t.Fatal("At past the end should be nil")
	}
	if e.At(v, -1) != nil {
		t.Fatal("At(-1) should be nil")
	}
}

func TestMemEngine_TableShape(t *testing.T) {
	e := NewMem()
	tbl := NewTable(
		[]string{"sym", "px"},
		NewSymbolVector("a", "b", "c"),
		NewF64Vector(1.5, 2.5, 3.5),
	)

	keys := e.Keys(tbl)
	if keys == nil || keys.Tag() != TagSymbol {
		t.Fatal("Keys should be a symbol vector")
	}
	if e.Count(keys) != 2 {
		t.Fatalf("key count = %d", e.Count(keys))
	}
	if name := e.Text(e.At(keys, 1)); name != "px" {
		t.Fatalf("second column = %q", name)
	}

	vals := e.Vals(tbl)
	if vals == nil || vals.Tag() != TagList {
		t.Fatal("Vals should be a list of column vectors")
	}
	if e.Count(tbl) != 3 {
		t.Fatalf("table row count = %d", e.Count(tbl))
	}

	col := e.Field(tbl, "px")
	if col == nil || col.Tag() != TagF64 {
		t.Fatal("Field(px) should be the f64 column")
	}
	if e.Field(tbl, "missing") != nil {
		t.Fatal("Field on unknown name should be nil")
	}
}

func TestMemEngine_DictShape(t *testing.T) {
	e := NewMem()
	d := NewDict([]string{"name", "size"}, NewSymbol("trades"), NewI64(42))

	if e.Count(d) != 2 {
		t.Fatalf("dict count = %d", e.Count(d))
	}
	v := e.Field(d, "size")
	if v == nil || e.Int(v) != 42 {
		t.Fatalf("Field(size) = %v", v)
	}
}

func TestErrorMessage_Extraction(t *testing.T) {
	e := NewMem()

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"well-formed", NewErrorValue("rank error"), "rank error"},
		{"payload-less", NewRaw(TagError), "query execution error"},
		{"not an error", NewI64(1), "query execution error"},
		{"nil", nil, "query execution error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage(e, tt.v); got != tt.want {
				t.Errorf("ErrorMessage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewSymbolBytes_LossyDecode(t *testing.T) {
	e := NewMem()
	v := NewSymbolBytes([]byte{'a', 0xff, 'b'})
	got := e.Text(v)
	if got != "a�b" {
		t.Fatalf("lossy decode = %q", got)
	}
}

func TestMemEngine_CharData(t *testing.T) {
	e := NewMem()

	s := NewString("hey")
	if e.Count(s) != 3 {
		t.Fatalf("Count = %d", e.Count(s))
	}
	if e.Text(s) != "hey" {
		t.Fatalf("Text = %q", e.Text(s))
	}
	c := e.At(s, 1)
	if c == nil || c.Tag() != -TagC8 || e.Text(c) != "e" {
		t.Fatalf("At(1) = %v", c)
	}
}
