package types

import "github.com/google/uuid"

// Event is the opaque payload handed to a Controller's Ingest method. The
// core only ever needs an event's pretty-printed form on egress (for the
// output latch); it never inspects an event's Document directly.
type Event interface {
	// Payload returns the structured document carried by this event.
	Payload() Document
	// EventID returns the correlation id assigned to this event at
	// construction time, for log correlation across the ingest/render
	// boundary.
	EventID() string
}

// DocumentEvent is the concrete Event implementation used throughout this
// module — a Document wrapped to satisfy the Event interface. Reference
// Builder/Controller implementations (refpipeline, fixture) and callers
// constructing events for Ingest use this directly.
type DocumentEvent struct {
	doc Document
	id  string
}

// NewEvent wraps a value as a DocumentEvent, assigning it a fresh
// correlation id.
func NewEvent(value any) DocumentEvent {
	return DocumentEvent{doc: NewDocument(value), id: uuid.New().String()}
}

// Payload implements Event.
func (e DocumentEvent) Payload() Document {
	return e.doc
}

// EventID implements Event.
func (e DocumentEvent) EventID() string {
	return e.id
}

// Result is a minimal success/failure carrier: runtimepolicy.Policy.Ingest
// wraps an accepted event in a success result before handing it to
// Controller.Ingest.
// Only the Ok constructor is exposed to callers of runtimepolicy.Policy.Ingest;
// Err exists so reference Controllers can surface ingestion-time rejects
// (e.g. a malformed event) without a panic.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err wraps a failure.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Unwrap returns the value and error. Callers check err first.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.err
}

// IsOk reports whether the result carries a value rather than an error.
func (r Result[T]) IsOk() bool {
	return r.err == nil
}
