package materialize

import (
	"github.com/RayforceDB/raylens/ray"
)

// Convert recursively converts an engine value to a generic tree of Go
// values: nil, int64, float64, string, []any, and map[string]any. It never
// fails; tags with no conversion arm become a diagnostic object carrying the
// raw tag.
//
// Tables are deliberately not expanded here. They convert to a row-count
// summary, and rows are fetched in bounded windows through Rows.
func Convert(e ray.Engine, v ray.Value) any {
	if v == nil {
		return nil
	}

	tag := v.Tag()
	switch {
	case tag.IsAtom():
		return convertAtom(e, v, tag)
	case tag.IsVector() || tag.IsList():
		return convertElements(e, v, tag)
	case tag == ray.TagTable:
		return map[string]any{"rowCount": e.Count(v)}
	case tag == ray.TagDict:
		return convertDict(e, v)
	case tag == ray.TagError:
		return map[string]any{"error": ray.ErrorMessage(e, v)}
	case tag == ray.TagNull:
		return nil
	default:
		return map[string]any{"tag": int64(tag)}
	}
}

func convertAtom(e ray.Engine, v ray.Value, tag ray.Tag) any {
	switch {
	case tag.IsIntFamily():
		return e.Int(v)
	case tag == -ray.TagF64:
		return e.Float(v)
	case tag == -ray.TagSymbol, tag == -ray.TagC8:
		return e.Text(v)
	default:
		return map[string]any{"tag": int64(tag)}
	}
}

// convertElements materializes a vector or list as an ordered array.
// Primitive numeric vectors go through the element buffer; every other tag
// goes through per-index lookup. Both paths produce identical trees.
func convertElements(e ray.Engine, v ray.Value, tag ray.Tag) []any {
	if xs, ok := e.Ints(v); ok {
		out := make([]any, len(xs))
		for i, x := range xs {
			out[i] = x
		}
		return out
	}
	if xs, ok := e.Floats(v); ok {
		out := make([]any, len(xs))
		for i, x := range xs {
			out[i] = x
		}
		return out
	}

	n := e.Count(v)
	out := make([]any, 0, n)
	for i := int64(0); i < n; i++ {
		out = append(out, Convert(e, e.At(v, i)))
	}
	return out
}

func convertDict(e ray.Engine, v ray.Value) map[string]any {
	keys := e.Keys(v)
	vals := e.Vals(v)
	if keys == nil || vals == nil {
		return map[string]any{}
	}

	n := e.Count(keys)
	out := make(map[string]any, n)
	for i := int64(0); i < n; i++ {
		name := e.Text(e.At(keys, i))
		out[name] = Convert(e, e.At(vals, i))
	}
	return out
}
