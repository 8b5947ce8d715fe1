package bridge

import "github.com/RayforceDB/raylens/ray"

// handleTable maps opaque numeric handles to engine-owned values. It is
// owned exclusively by the worker goroutine and needs no locking.
type handleTable struct {
	entries map[uint64]ray.Value
	next    uint64
}

func newHandleTable() *handleTable {
	return &handleTable{
		entries: make(map[uint64]ray.Value),
		next:    1,
	}
}

// insert stores v under a fresh handle. Handles are strictly increasing
// from 1 and never reused for the table's lifetime.
func (t *handleTable) insert(v ray.Value) uint64 {
	h := t.next
	t.next++
	t.entries[h] = v
	return h
}

func (t *handleTable) get(h uint64) (ray.Value, bool) {
	v, ok := t.entries[h]
	return v, ok
}

// remove deletes the entry and returns its value for release. An absent
// handle returns false; the caller treats that as a no-op.
func (t *handleTable) remove(h uint64) (ray.Value, bool) {
	v, ok := t.entries[h]
	if ok {
		delete(t.entries, h)
	}
	return v, ok
}

func (t *handleTable) len() int {
	return len(t.entries)
}

// drain removes and returns every live value, for release on shutdown.
func (t *handleTable) drain() []ray.Value {
	values := make([]ray.Value, 0, len(t.entries))
	for h, v := range t.entries {
		values = append(values, v)
		delete(t.entries, h)
	}
	return values
}
