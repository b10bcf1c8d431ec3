package cmd

import "github.com/justapithecus/policyrt/cli/session"

// defaultManager is the package-level session manager backing every
// command. Call SetManager during process startup before running the app.
var defaultManager *session.Manager

// SetManager wires the session manager used by session/list/stats/inspect
// commands.
func SetManager(mgr *session.Manager) {
	defaultManager = mgr
}
