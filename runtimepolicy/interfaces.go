package runtimepolicy

import (
	"context"

	"github.com/justapithecus/policyrt/types"
)

// PipelineExpression is the opaque compiled form a Builder hands to a
// Controller constructor. The runtime policy never inspects it; it only
// passes it through. What it actually contains (a decoder/filter/rule
// DAG) is owned entirely by the Builder/Controller collaborators, not
// by this package.
type PipelineExpression any

// Builder compiles a policy id into a pipeline expression. This is the
// interface the core consumes, not an implementation — see the builder
// and refpipeline packages for reference implementations used by this
// module's own tests and CLI.
type Builder interface {
	BuildPolicy(ctx context.Context, id types.PolicyID) (PipelineExpression, error)
}

// OutputEvent is one terminal value delivered on a Controller's output
// stream — the shape the output latch subscribes to. It shares the
// Event interface's shape (a Document on demand) since a terminal event
// is still just an event, from the output latch's point of view.
type OutputEvent = types.Event

// Controller drives events through a compiled pipeline expression and
// exposes its output and trace streams. Constructed from a
// PipelineExpression by NewController implementations the Builder and
// embedding platform own. Output and Traces are expected to deliver on
// goroutines other than the caller of Ingest or Render; Close must detach
// all subscribers before returning.
type Controller interface {
	// Ingest submits an event for non-blocking processing. Returns as
	// soon as the event is accepted, not once it has traversed the
	// pipeline.
	Ingest(ctx context.Context, event types.Result[types.Event]) error

	// Output returns the channel terminal events are delivered on.
	Output() <-chan OutputEvent

	// Traces returns the channel raw trace lines are delivered on, one
	// per emission from any operator in the pipeline.
	Traces() <-chan string

	// Close detaches all subscribers and releases resources. After Close
	// begins, no further values may be delivered on Output or Traces.
	Close() error
}

// NewControllerFunc constructs a Controller from a compiled pipeline
// expression. Policy.Build calls this exactly once per successful build;
// it is supplied by the embedding platform, injected here so Policy stays
// decoupled from any one Controller implementation.
type NewControllerFunc func(expr PipelineExpression) (Controller, error)
