package trace

import (
	"sort"
	"sync"
)

// HistoryEntry is one condition record in arrival order.
type HistoryEntry struct {
	Asset   string
	Payload string
}

// Buffer is the per-runtime-policy trace store: an ordered history of
// condition records plus a per-asset ordered bucket of raw verbose lines.
// All operations are serialized by a single mutex, kept independent of
// the output latch's own mutex so a slow trace drain never blocks egress.
type Buffer struct {
	mu sync.Mutex

	history []HistoryEntry
	verbose map[string][]string
}

// NewBuffer creates an empty trace buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		verbose: make(map[string][]string),
	}
}

// AppendCondition appends a condition record. No deduplication at append
// time — duplicate firings from a looping operator are preserved in
// order; render-time dedup only applies to the detailed verbose view.
func (b *Buffer) AppendCondition(asset, payload string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, HistoryEntry{Asset: asset, Payload: payload})
}

// AppendVerbose appends a raw trace line to the named asset's bucket.
func (b *Buffer) AppendVerbose(asset, raw string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verbose[asset] = append(b.verbose[asset], raw)
}

// DrainHistory returns the current condition history and empties it
// atomically, so a render never observes the same condition record twice.
func (b *Buffer) DrainHistory() []HistoryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	drained := b.history
	b.history = nil
	return drained
}

// TakeVerbose returns the unique raw lines buffered for asset, in a
// stable (lexicographic) order, and clears that asset's bucket.
// Deduplication is on byte-exact equality only.
func (b *Buffer) TakeVerbose(asset string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := b.verbose[asset]
	if len(lines) == 0 {
		return nil
	}
	delete(b.verbose, asset)

	seen := make(map[string]struct{}, len(lines))
	unique := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		unique = append(unique, l)
	}
	sort.Strings(unique)
	return unique
}

// Record applies one classification record to the buffer: a Condition
// record appends to history, a Verbose record appends to its asset's
// bucket. Trace.Classify may return both for one line; the sink that
// drives the buffer from a Controller's trace stream calls Record once
// per emitted classification.
func (b *Buffer) Record(r Record) {
	switch r.Kind {
	case Condition:
		b.AppendCondition(r.Asset, r.Payload)
	case Verbose:
		b.AppendVerbose(r.Asset, r.Payload)
	}
}
