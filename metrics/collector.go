// Package metrics provides per-policy metrics collection.
//
// The Collector accumulates counters for the lifetime of a runtime
// policy instance. It is a leaf package with no internal dependencies.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters. Returned
// by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Build lifecycle
	BuildSuccess int64
	BuildFailure int64
	AlreadyBuilt int64

	// Ingestion
	EventsIngested int64
	EventsRejected int64

	// Trace classification
	ConditionRecords int64
	VerboseRecords   int64
	MalformedTraces  int64

	// Render
	RendersByMode map[string]int64

	// Dimensions
	PolicyID  string
	SessionID string
}

// Collector accumulates metrics during a runtime policy's lifetime.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	buildSuccess int64
	buildFailure int64
	alreadyBuilt int64

	eventsIngested int64
	eventsRejected int64

	conditionRecords int64
	verboseRecords   int64
	malformedTraces  int64

	rendersByMode map[string]int64

	policyID  string
	sessionID string
}

// NewCollector creates a Collector labeled with the owning policy's
// identity.
func NewCollector(policyID, sessionID string) *Collector {
	return &Collector{
		rendersByMode: make(map[string]int64),
		policyID:      policyID,
		sessionID:     sessionID,
	}
}

// --- Build lifecycle ---

// IncBuildSuccess records a successful Build call.
func (c *Collector) IncBuildSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.buildSuccess++
	c.mu.Unlock()
}

// IncBuildFailure records a Build call that failed via the builder or
// controller constructor.
func (c *Collector) IncBuildFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.buildFailure++
	c.mu.Unlock()
}

// IncAlreadyBuilt records a Build call rejected because the instance was
// already BUILT.
func (c *Collector) IncAlreadyBuilt() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.alreadyBuilt++
	c.mu.Unlock()
}

// --- Ingestion ---

// IncEventsIngested records an event accepted by the controller.
func (c *Collector) IncEventsIngested() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsIngested++
	c.mu.Unlock()
}

// IncEventsRejected records an event rejected (NotBuilt, or the
// controller itself refused it).
func (c *Collector) IncEventsRejected() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsRejected++
	c.mu.Unlock()
}

// --- Trace classification ---

// IncConditionRecords records one condition-regex match.
func (c *Collector) IncConditionRecords() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.conditionRecords++
	c.mu.Unlock()
}

// IncVerboseRecords records one verbose-regex match.
func (c *Collector) IncVerboseRecords() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.verboseRecords++
	c.mu.Unlock()
}

// IncMalformedTraces records a trace line that matched neither pattern.
func (c *Collector) IncMalformedTraces() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.malformedTraces++
	c.mu.Unlock()
}

// --- Render ---

// IncRender records one Render call at the given debug mode name.
func (c *Collector) IncRender(mode string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rendersByMode[mode]++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	renders := make(map[string]int64, len(c.rendersByMode))
	for k, v := range c.rendersByMode {
		renders[k] = v
	}

	return Snapshot{
		BuildSuccess: c.buildSuccess,
		BuildFailure: c.buildFailure,
		AlreadyBuilt: c.alreadyBuilt,

		EventsIngested: c.eventsIngested,
		EventsRejected: c.eventsRejected,

		ConditionRecords: c.conditionRecords,
		VerboseRecords:   c.verboseRecords,
		MalformedTraces:  c.malformedTraces,

		RendersByMode: renders,

		PolicyID:  c.policyID,
		SessionID: c.sessionID,
	}
}
