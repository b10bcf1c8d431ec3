package runtimepolicy

import (
	"errors"
	"fmt"
)

// Sentinel errors for the runtime policy's taxonomy. A malformed-trace
// condition is intentionally absent: the classifier drops unparseable
// lines silently rather than raising an error.
var (
	// ErrAlreadyBuilt is returned by Build when the instance is already BUILT.
	ErrAlreadyBuilt = errors.New("policy is already built")
	// ErrNotBuilt is returned by Ingest when the instance is still UNBUILT.
	ErrNotBuilt = errors.New("policy is not built")
)

// BuildFailure wraps any error the Builder or Controller constructor
// raised during Build, carrying the policy id for a human-readable
// message — a struct with Error() and Unwrap() so callers can still
// errors.Is/As through it.
type BuildFailure struct {
	PolicyID string
	Cause    error
}

func (e *BuildFailure) Error() string {
	return fmt.Sprintf("error building policy [%s]: %v", e.PolicyID, e.Cause)
}

func (e *BuildFailure) Unwrap() error {
	return e.Cause
}

// alreadyBuiltError renders the canonical already-built message.
func alreadyBuiltError(id string) error {
	return fmt.Errorf("policy '%s' is already built: %w", id, ErrAlreadyBuilt)
}

// notBuiltError renders the canonical not-built message.
func notBuiltError(id string) error {
	return fmt.Errorf("policy '%s' is not built: %w", id, ErrNotBuilt)
}
