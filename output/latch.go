// Package output implements the single-slot, last-writer-wins holder of
// a runtime policy's most recent terminal event.
package output

import "sync"

// Latch holds the pretty-printed string form of the most recently
// observed terminal event. Guarded by a mutex distinct from the trace
// buffer's, so output updates and trace bursts never contend with each
// other.
type Latch struct {
	mu    sync.Mutex
	value string
}

// NewLatch creates an empty latch.
func NewLatch() *Latch {
	return &Latch{}
}

// Set overwrites the latch with a new value. Called from the output
// subscriber callback; must hold the mutex only for the duration of the
// assignment and must never call back into the runtime policy or
// controller.
func (l *Latch) Set(value string) {
	l.mu.Lock()
	l.value = value
	l.mu.Unlock()
}

// Get returns a copy of the current value. Never partially written:
// readers always observe a complete string from some prior Set.
func (l *Latch) Get() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}
