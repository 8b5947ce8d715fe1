package ray

// ErrorMessage extracts a human-readable message from an error-tagged value.
// Extraction is best-effort: an engine error is usually a dict carrying a
// char-vector "msg" field, but malformed error values fall back to a generic
// message rather than failing.
func ErrorMessage(e Engine, v Value) string {
	if v == nil || v.Tag() != TagError {
		return "query execution error"
	}
	for _, name := range []string{"msg", "message"} {
		if f := e.Field(v, name); f != nil && f.Tag() == TagC8 {
			return e.Text(f)
		}
	}
	return "query execution error"
}
