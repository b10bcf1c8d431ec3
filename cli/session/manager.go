// Package session manages named runtime policy instances for the policyrt
// CLI. A session binds a caller-chosen session id to one built Policy;
// the manager owns the map and publishes lifecycle events through an
// optional adapter.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/justapithecus/policyrt/adapter"
	"github.com/justapithecus/policyrt/log"
	"github.com/justapithecus/policyrt/metrics"
	"github.com/justapithecus/policyrt/runtimepolicy"
	"github.com/justapithecus/policyrt/types"
)

// ErrSessionExists is returned by Create when the session id is already in use.
var ErrSessionExists = errors.New("session already exists")

// ErrSessionNotFound is returned by Destroy for an unknown session id.
// Get reports an unknown id with ok=false instead.
var ErrSessionNotFound = errors.New("session not found")

// ContractVersion is the lifecycle event schema version published by this manager.
const ContractVersion = "0.1.0"

// Config configures a Manager.
type Config struct {
	// Builder resolves a policy id to a pipeline expression. Required.
	Builder runtimepolicy.Builder
	// NewController constructs a Controller from a built pipeline expression. Required.
	NewController runtimepolicy.NewControllerFunc
	// Logger receives per-session diagnostics. Nil disables logging.
	Logger *log.Logger
	// Adapter, if set, receives a PolicyLifecycleEvent on build, build
	// failure, and close. Publish failures are logged, never returned.
	Adapter adapter.Adapter
}

type entry struct {
	policy  *runtimepolicy.Policy
	metrics *metrics.Collector
}

// Manager holds the set of live sessions for a policyrt process.
type Manager struct {
	cfg      Config
	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewManager constructs an empty Manager.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, sessions: make(map[string]*entry)}
}

// Create builds a new Policy for policyID under sessionID and registers it.
// On failure to build, the session is not registered.
func (m *Manager) Create(ctx context.Context, sessionID string, policyID types.PolicyID) (*runtimepolicy.Policy, error) {
	m.mu.Lock()
	if _, exists := m.sessions[sessionID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionExists)
	}

	coll := metrics.NewCollector(policyID.String(), sessionID)
	p := runtimepolicy.New(policyID, runtimepolicy.Config{
		Logger:        m.cfg.Logger,
		Metrics:       coll,
		NewController: m.cfg.NewController,
	}).WithSessionID(sessionID)
	m.mu.Unlock()

	if err := p.Build(ctx, m.cfg.Builder); err != nil {
		m.publish(ctx, sessionID, policyID, "build_failed", coll, err)
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sessionID] = &entry{policy: p, metrics: coll}
	m.mu.Unlock()

	m.publish(ctx, sessionID, policyID, "built", coll, nil)
	return p, nil
}

// Get returns the session's Policy, or false if sessionID is unknown.
func (m *Manager) Get(sessionID string) (*runtimepolicy.Policy, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return e.policy, true
}

// Metrics returns a point-in-time metrics snapshot for sessionID.
func (m *Manager) Metrics(sessionID string) (metrics.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return metrics.Snapshot{}, false
	}
	return e.metrics.Snapshot(), true
}

// List returns all registered session ids, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Destroy closes and unregisters the session's Policy.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	e, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
	}

	closeErr := e.policy.Close()
	m.publish(ctx, sessionID, e.policy.ID(), "closed", e.metrics, closeErr)
	return closeErr
}

// publish sends a lifecycle event through the configured adapter, if any.
// Publish failures are logged and otherwise swallowed: lifecycle
// notification is best-effort and must never fail a session operation.
func (m *Manager) publish(ctx context.Context, sessionID string, policyID types.PolicyID, outcome string, coll *metrics.Collector, cause error) {
	if m.cfg.Adapter == nil {
		return
	}

	snap := coll.Snapshot()
	event := &adapter.PolicyLifecycleEvent{
		ContractVersion: ContractVersion,
		EventType:       "policy_lifecycle",
		PolicyID:        policyID.String(),
		SessionID:       sessionID,
		Outcome:         outcome,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		EventsIngested:  snap.EventsIngested,
		EventsRejected:  snap.EventsRejected,
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	if err := m.cfg.Adapter.Publish(ctx, event); err != nil && m.cfg.Logger != nil {
		m.cfg.Logger.Warn("lifecycle publish failed", map[string]any{
			"session_id": sessionID,
			"policy_id":  policyID.String(),
			"outcome":    outcome,
			"error":      err.Error(),
		})
	}
}
