// Package materialize converts engine-native tagged values into a
// language-agnostic tree of scalars, arrays, and objects.
//
// Conversion is tag-dispatched and closed: every tag has exactly one arm,
// with a catch-all that surfaces the raw tag instead of failing. Metadata
// conversion (Convert, ColumnNames, ColumnTypes) is eager; row data is only
// ever projected in bounded offset/count windows (Rows), so a table result
// never materializes wholesale.
//
// All functions read values through a ray.Engine and therefore inherit its
// thread affinity: callers are expected to be on the engine's owning
// goroutine. In raylens that caller is always the bridge worker.
package materialize
