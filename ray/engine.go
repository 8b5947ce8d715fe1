package ray

// Value is an opaque engine-owned value. Values are only valid on the
// goroutine that owns the engine, and only until the root they were reached
// from is released.
type Value interface {
	// Tag returns the runtime type discriminator.
	Tag() Tag
}

// Engine is the surface of the embedded evaluation runtime. Implementations
// perform no internal synchronization: every method after Init must be
// called from one goroutine, the same one for the engine's whole lifetime.
//
// Ownership: values returned by Eval are owned by the caller and must be
// passed to Release exactly once. At, Field, Keys and Vals return borrowed
// views into their argument; borrowed values are never released and die with
// their root.
type Engine interface {
	// Init brings up the engine runtime. Must be called before any other
	// method, on the owning goroutine.
	Init() error

	// Eval evaluates source text and returns the result value, or nil when
	// the engine produced nothing. Engine-level failures come back as a
	// value with TagError, not as a Go error.
	Eval(src string) Value

	// Release frees an owned value. Releasing nil is a no-op.
	Release(v Value)

	// At returns the i-th element of a vector or list, or nil when out of
	// range or unsupported for the tag.
	At(v Value, i int64) Value

	// Field looks up a named field of a dict, table, or error value.
	Field(v Value, name string) Value

	// Keys returns the key vector of a dict or table.
	Keys(v Value) Value

	// Vals returns the value vector of a dict or table.
	Vals(v Value) Value

	// Count returns the element count: vector/list length, dict key count,
	// table row count, 1 for atoms.
	Count(v Value) int64

	// Int returns the integral payload of an int-family atom.
	Int(v Value) int64

	// Float returns the payload of an f64 atom.
	Float(v Value) float64

	// Text decodes a symbol atom, char atom, or char vector to a string.
	// Invalid UTF-8 is replaced, never an error.
	Text(v Value) string

	// Ints reads an int-family vector through its element buffer. Returns
	// false when the tag has no such buffer; callers fall back to At.
	Ints(v Value) ([]int64, bool)

	// Floats reads an f64 vector through its element buffer.
	Floats(v Value) ([]float64, bool)

	// Close tears down the engine runtime. Any values still alive are
	// invalid afterwards.
	Close()
}
