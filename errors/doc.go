// Package errors provides structured error types for the raylens bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries call context: query id, result handle,
// engine type tag, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseFetch, errors.KindUnsupportedType).
//		Handle(h).
//		Tag("lambda").
//		Detail("no row projection for this type").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle(errors.PhaseFetch, h)
//	err := errors.Evaluation(queryID, "type mismatch")
//
// All errors implement the standard error interface and support errors.Is/As.
// The package exports one sentinel per taxonomy entry (ErrChannelClosed,
// ErrInvalidHandle, ErrInvalidInput, ErrEvaluation, ErrUnsupportedType,
// ErrCancelled) for matching without inspecting fields.
package errors
