// Package adapter defines the policy lifecycle event-bus boundary.
//
// Adapters publish policy lifecycle notifications (built, build failed,
// closed) to downstream systems. The runtime owns adapter lifecycle;
// users provide configuration only.
package adapter

import "context"

// PolicyLifecycleEvent is the payload published when a runtime policy
// crosses a lifecycle boundary: the UNBUILT-to-BUILT transition (or its
// failure), and Close.
type PolicyLifecycleEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "policy_lifecycle"
	PolicyID        string `json:"policy_id"`
	SessionID       string `json:"session_id,omitempty"`
	Outcome         string `json:"outcome"` // built, build_failed, closed
	Timestamp       string `json:"timestamp"` // ISO 8601
	EventsIngested  int64  `json:"events_ingested"`
	EventsRejected  int64  `json:"events_rejected"`
	Error           string `json:"error,omitempty"`
}

// Adapter publishes policy lifecycle events to a downstream system.
// Implementations must be safe for single-use per policy instance.
type Adapter interface {
	// Publish sends a policy lifecycle event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *PolicyLifecycleEvent) error

	// Close releases adapter resources.
	Close() error
}
