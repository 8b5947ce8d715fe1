package materialize

import (
	"github.com/RayforceDB/raylens/errors"
	"github.com/RayforceDB/raylens/ray"
)

// Row is one projected result row: column or field name to converted value.
type Row map[string]any

// Rows projects a bounded window of rows out of a result value.
//
// The window is [start, start+count) clamped to the value's length; an
// out-of-range start yields an empty slice, never an error. Atoms project a
// single "value" row at start 0, vectors and lists one "value" row per
// element, tables one object per row with columns in declared order, and
// dicts a single synthetic row mapping field names to values. Tags with no
// row projection fail with an unsupported-type error.
func Rows(e ray.Engine, v ray.Value, start, count uint64) ([]Row, error) {
	if v == nil {
		return nil, errors.New(errors.PhaseFetch, errors.KindInvalidHandle).
			Detail("no value").Build()
	}

	tag := v.Tag()
	switch {
	case tag.IsAtom():
		if start > 0 || count == 0 {
			return []Row{}, nil
		}
		return []Row{{"value": Convert(e, v)}}, nil

	case tag.IsVector() || tag.IsList():
		return elementRows(e, v, start, count)

	case tag == ray.TagTable:
		return tableRows(e, v, start, count)

	case tag == ray.TagDict:
		if start > 0 || count == 0 {
			return []Row{}, nil
		}
		return []Row{Row(convertDict(e, v))}, nil

	default:
		return nil, errors.New(errors.PhaseFetch, errors.KindUnsupportedType).
			Tag(tag.String()).
			Detail("no row projection for this type").
			Build()
	}
}

// elementRows projects vector/list elements, one "value" field per row.
// Numeric vectors read the element buffer; other tags fall back to per-index
// lookup. The two paths are interchangeable for identical input.
func elementRows(e ray.Engine, v ray.Value, start, count uint64) ([]Row, error) {
	length := e.Count(v)
	lo, n := window(length, start, count)

	rows := make([]Row, 0, n)
	if xs, ok := e.Ints(v); ok {
		for _, x := range xs[lo : lo+n] {
			rows = append(rows, Row{"value": x})
		}
		return rows, nil
	}
	if xs, ok := e.Floats(v); ok {
		for _, x := range xs[lo : lo+n] {
			rows = append(rows, Row{"value": x})
		}
		return rows, nil
	}

	for i := lo; i < lo+n; i++ {
		rows = append(rows, Row{"value": Convert(e, e.At(v, i))})
	}
	return rows, nil
}

func tableRows(e ray.Engine, v ray.Value, start, count uint64) ([]Row, error) {
	names := ColumnNames(e, v)
	vals := e.Vals(v)

	columns := make([]ray.Value, len(names))
	for i := range names {
		columns[i] = e.At(vals, int64(i))
	}

	length := e.Count(v)
	lo, n := window(length, start, count)

	rows := make([]Row, 0, n)
	for i := lo; i < lo+n; i++ {
		row := make(Row, len(names))
		for c, name := range names {
			row[name] = Convert(e, e.At(columns[c], i))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ColumnNames decodes the key vector of a table or dict in declared order.
func ColumnNames(e ray.Engine, v ray.Value) []string {
	keys := e.Keys(v)
	if keys == nil {
		return nil
	}
	n := e.Count(keys)
	names := make([]string, 0, n)
	for i := int64(0); i < n; i++ {
		names = append(names, e.Text(e.At(keys, i)))
	}
	return names
}

// ColumnTypes maps each column or field name to the engine type name of its
// value vector.
func ColumnTypes(e ray.Engine, v ray.Value) map[string]string {
	names := ColumnNames(e, v)
	vals := e.Vals(v)
	if vals == nil {
		return nil
	}

	types := make(map[string]string, len(names))
	for i, name := range names {
		col := e.At(vals, int64(i))
		if col == nil {
			types[name] = "unknown"
			continue
		}
		types[name] = col.Tag().String()
	}
	return types
}

/// window clamps [start, start+count) to length: the returned row count is
// min(count, length-start) when start < length, else 0.
func window(length int64, start, count uint64) (int64, int64) {
	if length < 0 || start >= uint64(length) {
		return 0, 0
	}
	lo := int64(start)
	n := length - lo
	if uint64(n) > count {
		n = int64(count)
	}
	return lo, n
}
