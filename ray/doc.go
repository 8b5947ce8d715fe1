// Package ray defines the surface of the embedded Rayforce evaluation
// runtime: its runtime type tags, opaque values, and the Engine interface
// the rest of raylens is written against.
//
// # Tags
//
// Every engine value carries a Tag, a runtime type discriminator:
//
//	Tag        Meaning
//	──────────────────────────────────────────
//	0          list (untyped vector)
//	1..12      typed vectors (b8 u8 i16 i32 i64 symbol date time timestamp f64 guid c8)
//	-1..-12    the corresponding atoms
//	98         table
//	99         dict
//	100        lambda
//	126        null
//	127        error
//
// # Ownership
//
// Values returned by Eval are owned by the caller and must be released
// exactly once with Release. At, Field, Keys, and Vals return borrowed
// views: they are valid only while their root is alive and are never passed
// to Release.
//
// # Thread affinity
//
// The native runtime is not thread-safe and keeps thread-local state. One
// goroutine calls Init and remains the only caller of every Engine method
// for the engine's lifetime; the bridge package enforces this by funneling
// all access through a single OS-thread-locked worker.
//
// # Implementations
//
// NewNative binds the real runtime over cgo when built with -tags rayforce,
// and a stub whose Init fails otherwise. NewMem is a pure-Go engine over the
// same value model with canned evaluation, used by tests and engine-less
// runs.
package ray
