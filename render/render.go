// Package render implements the render formatter: a pure, stateless
// combination of latched output and buffered traces into the shape
// dictated by a caller-chosen debug mode.
package render

import (
	"encoding/json"
	"strings"

	"github.com/justapithecus/policyrt/trace"
	"github.com/justapithecus/policyrt/types"
)

// VerboseTaker is the subset of *trace.Buffer the detailed render mode
// needs: given an asset, return its unique buffered lines and clear them.
// Accepting an interface here (rather than *trace.Buffer directly) keeps
// this package testable without constructing a full buffer.
type VerboseTaker interface {
	TakeVerbose(asset string) []string
}

// Format combines output and drained trace history into (output,
// traceJSON) per the requested debug mode. Lifted out of the runtime
// policy so it stays a pure function.
//
// history must already be drained from the trace buffer by the caller —
// Format never mutates condition state, only (in detailed mode) calls
// verbose.TakeVerbose per distinct asset encountered in history.
func Format(mode types.DebugMode, output string, history []trace.HistoryEntry, verbose VerboseTaker) (string, string) {
	traceObj := make(map[string]string)

	switch mode {
	case types.OutputOnly:
		// trace stays empty

	case types.OutputAndTraces:
		for _, entry := range history {
			// Last write wins within a render when the same asset fires
			// more than once.
			traceObj[jsonPointerKey(entry.Asset)] = entry.Payload
		}

	case types.OutputAndTracesWithDetails:
		seenAsset := make(map[string]struct{})
		for _, entry := range history {
			if _, done := seenAsset[entry.Asset]; done {
				continue
			}
			seenAsset[entry.Asset] = struct{}{}

			lines := verbose.TakeVerbose(entry.Asset)
			traceObj[jsonPointerKey(entry.Asset)] = strings.Join(lines, "")
		}
	}

	traceJSON, err := json.MarshalIndent(traceObj, "", "  ")
	if err != nil {
		// traceObj is a map[string]string; marshaling cannot fail.
		traceJSON = []byte("{}")
	}
	return output, string(traceJSON)
}

// jsonPointerKey encodes an asset name as a JSON-pointer path segment per
// RFC 6901 ("~" -> "~0", "/" -> "~1"), prefixed with "/". Real asset ids
// in this domain are shaped like "<type>/<name>/<version>", so leaving
// "/" unescaped would flatten every asset into nested JSON-pointer
// segments instead of one key per asset. Escaping preserves "one trace
// key per asset" as the observable contract.
func jsonPointerKey(asset string) string {
	escaped := strings.ReplaceAll(asset, "~", "~0")
	escaped = strings.ReplaceAll(escaped, "/", "~1")
	return "/" + escaped
}
