package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEval    Phase = "eval"    // query evaluation
	PhaseFetch   Phase = "fetch"   // row window projection
	PhaseBridge  Phase = "bridge"  // command submission / lifecycle
	PhaseRuntime Phase = "runtime" // engine runtime operations
	PhaseConfig  Phase = "config"  // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindChannelClosed   Kind = "channel_closed"   // worker gone; fatal to the current call only
	KindInvalidHandle   Kind = "invalid_handle"   // unknown or already-released handle
	KindInvalidInput    Kind = "invalid_input"    // malformed source text
	KindEvaluation      Kind = "evaluation"       // engine reported an error value
	KindUnsupportedType Kind = "unsupported_type" // no row projection for this tag
	KindCancelled       Kind = "cancelled"        // result discarded due to prior cancel
	KindState           Kind = "state"            // lifecycle precondition violation
	KindInit            Kind = "init"             // engine runtime initialization
)

// Error is the structured error type used throughout raylens
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	QueryID string
	Handle  uint64
	Tag     string
	Detail  string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.QueryID != "" {
		b.WriteString(" query ")
		b.WriteString(e.QueryID)
	}
	if e.Handle != 0 {
		fmt.Fprintf(&b, " handle %d", e.Handle)
	}
	if e.Tag != "" {
		b.WriteString(" tag ")
		b.WriteString(e.Tag)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// QueryID sets the query identifier
func (b *Builder) QueryID(id string) *Builder {
	b.err.QueryID = id
	return b
}

// Handle sets the result handle
func (b *Builder) Handle(h uint64) *Builder {
	b.err.Handle = h
	return b
}

// Tag sets the engine type tag name
func (b *Builder) Tag(t string) *Builder {
	b.err.Tag = t
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ChannelClosed creates an error for a command that could not reach the
// worker, or whose response was dropped because the worker is gone.
func ChannelClosed(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindChannelClosed,
		Detail: detail,
	}
}

// InvalidHandle creates an unknown-handle error
func InvalidHandle(phase Phase, handle uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Handle: handle,
		Detail: "unknown or released handle",
	}
}

// InvalidInput creates a malformed-input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Evaluation creates an error carrying an engine-reported message
func Evaluation(queryID, msg string) *Error {
	return &Error{
		Phase:   PhaseEval,
		Kind:    KindEvaluation,
		QueryID: queryID,
		Detail:  msg,
	}
}

// Unsupported creates an error for a tag with no row projection
func Unsupported(handle uint64, tag string) *Error {
	return &Error{
		Phase:  PhaseFetch,
		Kind:   KindUnsupportedType,
		Handle: handle,
		Tag:    tag,
		Detail: "no row projection for this type",
	}
}

// Cancelled creates an error for a query whose result was discarded
func Cancelled(queryID string) *Error {
	return &Error{
		Phase:   PhaseEval,
		Kind:    KindCancelled,
		QueryID: queryID,
		Detail:  "query cancelled",
	}
}

// State creates a lifecycle precondition error
func State(detail string) *Error {
	return &Error{
		Phase:  PhaseBridge,
		Kind:   KindState,
		Detail: detail,
	}
}

// Init creates an engine initialization error
func Init(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInit,
		Detail: "initialize engine runtime",
		Cause:  cause,
	}
}

// Taxonomy sentinels for errors.Is matching. Phase participates in Is, so
// each sentinel is declared in the phase its operations report from.
var (
	ErrChannelClosed   = &Error{Phase: PhaseBridge, Kind: KindChannelClosed}
	ErrInvalidHandle   = &Error{Phase: PhaseFetch, Kind: KindInvalidHandle}
	ErrInvalidInput    = &Error{Phase: PhaseEval, Kind: KindInvalidInput}
	ErrEvaluation      = &Error{Phase: PhaseEval, Kind: KindEvaluation}
	ErrUnsupportedType = &Error{Phase: PhaseFetch, Kind: KindUnsupportedType}
	ErrCancelled       = &Error{Phase: PhaseEval, Kind: KindCancelled}
)
