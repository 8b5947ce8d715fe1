package ray

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// MemEngine is a pure-Go engine implementing the tagged value model without
// the native runtime. Evaluation is canned: sources are bound to value
// constructors with Bind, and Eval looks them up verbatim. It backs the
// bridge and materialize tests and `--engine memory` runs, and counts live
// values so tests can assert the release invariants.
type MemEngine struct {
	mu       sync.Mutex
	bindings map[string]func() Value

	initialized atomic.Bool
	live        atomic.Int64
	released    atomic.Int64
}

// NewMem creates an engine with no bindings.
func NewMem() *MemEngine {
	return &MemEngine{bindings: make(map[string]func() Value)}
}

// Bind registers a constructor invoked each time src is evaluated. The
// constructor runs per evaluation so every result is a fresh owned value.
func (e *MemEngine) Bind(src string, fn func() Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bindings[src] = fn
}

// Live returns the number of evaluated values not yet released.
func (e *MemEngine) Live() int64 { return e.live.Load() }

// ReleasedCount returns the number of Release calls on owned values.
func (e *MemEngine) ReleasedCount() int64 { return e.released.Load() }

func (e *MemEngine) Init() error {
	e.initialized.Store(true)
	return nil
}

func (e *MemEngine) Eval(src string) Value {
	e.mu.Lock()
	fn := e.bindings[src]
	e.mu.Unlock()

	if fn == nil {
		e.live.Add(1)
		return NewErrorValue(fmt.Sprintf("undefined: %s", src))
	}
	v := fn()
	if v != nil {
		// Nothing returned means nothing owned.
		e.live.Add(1)
	}
	return v
}

func (e *MemEngine) Release(v Value) {
	if v == nil {
		return
	}
	e.live.Add(-1)
	e.released.Add(1)
}

func (e *MemEngine) At(v Value, i int64) Value {
	m, ok := v.(*memValue)
	if !ok || i < 0 {
		return nil
	}
	switch {
	case m.tag.IsVector() && m.tag.IsIntFamily():
		if i >= int64(len(m.ints)) {
			return nil
		}
		return &memValue{tag: -m.tag, i: m.ints[i]}
	case m.tag == TagF64:
		if i >= int64(len(m.floats)) {
			return nil
		}
		return &memValue{tag: -TagF64, f: m.floats[i]}
	case m.tag == TagSymbol:
		if i >= int64(len(m.syms)) {
			return nil
		}
		return &memValue{tag: -TagSymbol, s: m.syms[i]}
	case m.tag == TagC8:
		if i >= int64(len(m.str)) {
			return nil
		}
		return &memValue{tag: -TagC8, s: string(m.str[i])}
	case m.tag == TagList:
		if i >= int64(len(m.elems)) {
			return nil
		}
		return m.elems[i]
	}
	return nil
}

func (e *MemEngine) Field(v Value, name string) Value {
	m, ok := v.(*memValue)
	if !ok {
		return nil
	}
	switch m.tag {
	case TagDict, TagTable, TagError:
		keys, kok := m.key.(*memValue)
		vals, vok := m.val.(*memValue)
		if !kok || !vok {
			return nil
		}
		for i, k := range keys.syms {
			if k == name && i < len(vals.elems) {
				return vals.elems[i]
			}
		}
	}
	return nil
}

func (e *MemEngine) Keys(v Value) Value {
	if m, ok := v.(*memValue); ok && (m.tag == TagDict || m.tag == TagTable) {
		return m.key
	}
	return nil
}

func (e *MemEngine) Vals(v Value) Value {
	if m, ok := v.(*memValue); ok && (m.tag == TagDict || m.tag == TagTable) {
		return m.val
	}
	return nil
}

func (e *MemEngine) Count(v Value) int64 {
	m, ok := v.(*memValue)
	if !ok {
		return 0
	}
	switch {
	case m.tag.IsAtom():
		return 1
	case m.tag.IsVector() && m.tag.IsIntFamily():
		return int64(len(m.ints))
	case m.tag == TagF64:
		return int64(len(m.floats))
	case m.tag == TagSymbol:
		return int64(len(m.syms))
	case m.tag == TagC8:
		return int64(len(m.str))
	case m.tag == TagList:
		return int64(len(m.elems))
	case m.tag == TagDict:
		return e.Count(m.key)
	case m.tag == TagTable:
		vals, _ := m.val.(*memValue)
		if vals == nil || len(vals.elems) == 0 {
			return 0
		}
		return e.Count(vals.elems[0])
	}
	return 0
}

func (e *MemEngine) Int(v Value) int64 {
	if m, ok := v.(*memValue); ok {
		return m.i
	}
	return 0
}

func (e *MemEngine) Float(v Value) float64 {
	if m, ok := v.(*memValue); ok {
		return m.f
	}
	return 0
}

func (e *MemEngine) Text(v Value) string {
	m, ok := v.(*memValue)
	if !ok {
		return ""
	}
	switch m.tag {
	case -TagSymbol, -TagC8:
		return m.s
	case TagC8:
		return m.str
	}
	return ""
}

func (e *MemEngine) Ints(v Value) ([]int64, bool) {
	if m, ok := v.(*memValue); ok && m.tag.IsVector() && m.tag.IsIntFamily() {
		out := make([]int64, len(m.ints))
		copy(out, m.ints)
		return out, true
	}
	return nil, false
}

func (e *MemEngine) Floats(v Value) ([]float64, bool) {
	if m, ok := v.(*memValue); ok && m.tag == TagF64 {
		out := make([]float64, len(m.floats))
		copy(out, m.floats)
		return out, true
	}
	return nil, false
}

func (e *MemEngine) Close() {
	e.initialized.Store(false)
}

// memValue is the closed in-memory rendition of a tagged engine value.
// Exactly one payload group is populated per tag family.
type memValue struct {
	tag Tag

	i int64   // int-family atoms
	f float64 // f64 atom
	s string  // symbol and char atoms

	ints   []int64   // int-family vectors
	floats []float64 // f64 vector
	syms   []string  // symbol vector
	str    string    // c8 vector
	elems  []Value   // list

	key Value // dict/table/error keys
	val Value // dict/table/error values
}

func (m *memValue) Tag() Tag { return m.tag }

// Constructors. Each returns a standalone value; ownership tracking applies
// only to values surfaced through Eval.

func NewBool(b bool) Value {
	var i int64
	if b {
		i = 1
	}
	return &memValue{tag: -TagB8, i: i}
}

func NewByte(b byte) Value { return &memValue{tag: -TagU8, i: int64(b)} }

func NewI16(v int16) Value { return &memValue{tag: -TagI16, i: int64(v)} }

func NewI32(v int32) Value { return &memValue{tag: -TagI32, i: int64(v)} }

func NewI64(v int64) Value { return &memValue{tag: -TagI64, i: v} }

// NewDate creates a date atom from a day count.
func NewDate(days int64) Value { return &memValue{tag: -TagDate, i: days} }

// NewTime creates a time atom from a millisecond count.
func NewTime(ms int64) Value { return &memValue{tag: -TagTime, i: ms} }

// NewTimestamp creates a timestamp atom from a nanosecond count.
func NewTimestamp(ns int64) Value { return &memValue{tag: -TagTimestamp, i: ns} }

func NewF64(v float64) Value { return &memValue{tag: -TagF64, f: v} }

func NewSymbol(s string) Value { return &memValue{tag: -TagSymbol, s: s} }

// NewSymbolBytes creates a symbol atom from a raw buffer, replacing invalid
// UTF-8 the way the native symbol decoder does.
func NewSymbolBytes(b []byte) Value {
	return &memValue{tag: -TagSymbol, s: decodeLossy(b)}
}

func NewChar(r rune) Value { return &memValue{tag: -TagC8, s: string(r)} }

// NewString creates a char vector.
func NewString(s string) Value { return &memValue{tag: TagC8, str: s} }

func NewI64Vector(xs ...int64) Value {
	return &memValue{tag: TagI64, ints: append([]int64(nil), xs...)}
}

// NewIntVector creates a vector of any int-family tag.
func NewIntVector(tag Tag, xs ...int64) Value {
	if !tag.IsVector() || !tag.IsIntFamily() {
		panic(fmt.Sprintf("ray: %v is not an int-family vector tag", tag))
	}
	return &memValue{tag: tag, ints: append([]int64(nil), xs...)}
}

func NewF64Vector(xs ...float64) Value {
	return &memValue{tag: TagF64, floats: append([]float64(nil), xs...)}
}

func NewSymbolVector(names ...string) Value {
	return &memValue{tag: TagSymbol, syms: append([]string(nil), names...)}
}

func NewList(vs ...Value) Value {
	return &memValue{tag: TagList, elems: append([]Value(nil), vs...)}
}

// NewTable creates a table from column names and parallel column vectors.
func NewTable(cols []string, columns ...Value) Value {
	if len(cols) != len(columns) {
		panic("ray: column name/vector count mismatch")
	}
	return &memValue{
		tag: TagTable,
		key: NewSymbolVector(cols...),
		val: NewList(columns...),
	}
}

// NewDict creates a dict from key names and parallel values.
func NewDict(keys []string, vals ...Value) Value {
	if len(keys) != len(vals) {
		panic("ray: dict key/value count mismatch")
	}
	return &memValue{
		tag: TagDict,
		key: NewSymbolVector(keys...),
		val: NewList(vals...),
	}
}

// NewErrorValue creates an error value carrying msg the way the native
// runtime does: a dict-shaped payload with a char-vector "msg" field.
func NewErrorValue(msg string) Value {
	return &memValue{
		tag: TagError,
		key: NewSymbolVector("msg"),
		val: NewList(NewString(msg)),
	}
}

func NewNull() Value { return &memValue{tag: TagNull} }

// NewRaw creates a payload-less value of an arbitrary tag, for exercising
// catch-all dispatch arms.
func NewRaw(tag Tag) Value { return &memValue{tag: tag} }

// decodeLossy converts a raw byte buffer to a string, replacing invalid
// UTF-8 sequences with U+FFFD.
func decodeLossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
