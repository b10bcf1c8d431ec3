// Package reader provides the read-side data access layer for the
// policyrt CLI. It isolates CLI commands from runtimepolicy/session
// internals: every inspect/list/stats command reads through here.
package reader

import (
	"fmt"

	"github.com/justapithecus/policyrt/cli/session"
	"github.com/justapithecus/policyrt/metrics"
	"github.com/justapithecus/policyrt/types"
)

// SessionSummary is one row of a session list.
type SessionSummary struct {
	SessionID string `json:"session_id"`
	PolicyID  string `json:"policy_id"`
	Built     bool   `json:"built"`
}

// InspectSessionResponse is the deep view of one session.
type InspectSessionResponse struct {
	SessionID string           `json:"session_id"`
	PolicyID  string           `json:"policy_id"`
	Built     bool             `json:"built"`
	Metrics   metrics.Snapshot `json:"metrics"`
}

// ListSessions returns a summary row for every session held by mgr.
func ListSessions(mgr *session.Manager) []SessionSummary {
	ids := mgr.List()
	out := make([]SessionSummary, 0, len(ids))
	for _, id := range ids {
		p, ok := mgr.Get(id)
		if !ok {
			continue
		}
		out = append(out, SessionSummary{
			SessionID: id,
			PolicyID:  p.ID().String(),
			Built:     p.IsBuilt(),
		})
	}
	return out
}

// InspectSession returns the deep view for sessionID.
func InspectSession(mgr *session.Manager, sessionID string) (*InspectSessionResponse, error) {
	p, ok := mgr.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, session.ErrSessionNotFound)
	}
	snap, _ := mgr.Metrics(sessionID)
	return &InspectSessionResponse{
		SessionID: sessionID,
		PolicyID:  p.ID().String(),
		Built:     p.IsBuilt(),
		Metrics:   snap,
	}, nil
}

// StatsSession returns the metrics snapshot for sessionID.
func StatsSession(mgr *session.Manager, sessionID string) (*metrics.Snapshot, error) {
	snap, ok := mgr.Metrics(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, session.ErrSessionNotFound)
	}
	return &snap, nil
}

// StatsAll returns a metrics snapshot for every registered session.
func StatsAll(mgr *session.Manager) []metrics.Snapshot {
	ids := mgr.List()
	out := make([]metrics.Snapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := mgr.Metrics(id); ok {
			out = append(out, snap)
		}
	}
	return out
}

// RenderSession renders sessionID's output and trace artifact at mode.
func RenderSession(mgr *session.Manager, sessionID string, mode types.DebugMode) (*RenderResponse, error) {
	p, ok := mgr.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, session.ErrSessionNotFound)
	}
	out, traceJSON := p.Render(mode)
	return &RenderResponse{
		SessionID: sessionID,
		Mode:      mode.String(),
		Output:    out,
		Traces:    traceJSON,
	}, nil
}

// RenderResponse is the combined output+trace artifact for one Render call.
type RenderResponse struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
	Output    string `json:"output"`
	Traces    string `json:"traces"`
}
