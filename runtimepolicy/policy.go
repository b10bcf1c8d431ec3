// Package runtimepolicy implements the runtime policy execution engine:
// the stateful object that wires a Builder and a Controller together,
// owns the trace buffer and output latch, and renders a combined
// output+trace artifact for a caller-chosen debug mode.
package runtimepolicy

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/justapithecus/policyrt/log"
	"github.com/justapithecus/policyrt/metrics"
	"github.com/justapithecus/policyrt/output"
	"github.com/justapithecus/policyrt/render"
	"github.com/justapithecus/policyrt/trace"
	"github.com/justapithecus/policyrt/types"
)

type state int32

const (
	unbuilt state = iota
	built
)

// Config configures a Policy. Logger and Metrics are optional (nil
// disables logging and metrics respectively); NewController is required.
type Config struct {
	// Logger receives build/ingest/teardown diagnostics. Nil disables logging.
	Logger *log.Logger
	// Metrics, if set, tallies build/ingest/render/classification counts.
	// A nil Metrics is safe to use (every Collector method is a no-op on
	// a nil receiver).
	Metrics *metrics.Collector
	// NewController constructs a Controller from a built pipeline
	// expression. Required — Policy has no default.
	NewController NewControllerFunc
}

// Policy is the runtime policy (C4): lifecycle UNBUILT -> BUILT,
// ingests events, captures output, demultiplexes traces, and renders on
// demand. The zero value is not usable; construct with New.
type Policy struct {
	id      types.PolicyID
	meta    types.PolicyMeta
	logger  *log.Logger
	metrics *metrics.Collector

	newController NewControllerFunc

	st atomic.Int32 // state, accessed via currentState/setState

	// buildMu serializes Build/Close against each other; it is not on
	// the Ingest/Render hot path.
	buildMu    sync.Mutex
	controller Controller

	latch    *output.Latch
	traceBuf *trace.Buffer
}

// New constructs an UNBUILT runtime policy for the given policy id.
func New(id types.PolicyID, cfg Config) *Policy {
	p := &Policy{
		id:            id,
		meta:          types.PolicyMeta{PolicyID: id},
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		newController: cfg.NewController,
		latch:         output.NewLatch(),
		traceBuf:      trace.NewBuffer(),
	}
	return p
}

// WithSessionID records sessionID in the policy's metadata (cli/session
// assigns one when holding multiple instances). The policy's own log
// entries do not include it: they carry the configured Logger's context
// fields plus the policy id.
func (p *Policy) WithSessionID(sessionID string) *Policy {
	p.meta.SessionID = sessionID
	return p
}

// ID returns the policy identifier this instance was constructed with.
func (p *Policy) ID() types.PolicyID {
	return p.id
}

// currentState loads the state atomically.
func (p *Policy) currentState() state {
	return state(p.st.Load())
}

// IsBuilt reports whether Build has completed successfully.
func (p *Policy) IsBuilt() bool {
	return p.currentState() == built
}

// Build asks builder for a compiled pipeline expression, wraps it in a
// new Controller, and subscribes the output latch and trace buffer to
// the controller's streams:
//   - returns ErrAlreadyBuilt (wrapped) if already BUILT
//   - any error from the builder or controller constructor is wrapped in
//     a *BuildFailure and the instance is left UNBUILT — build never
//     partially wires subscribers on failure
//   - on success, transitions to BUILT permanently; there is no rebuild
func (p *Policy) Build(ctx context.Context, builder Builder) error {
	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	if p.currentState() == built {
		p.metrics.IncAlreadyBuilt()
		return alreadyBuiltError(p.id.String())
	}

	expr, err := builder.BuildPolicy(ctx, p.id)
	if err != nil {
		p.metrics.IncBuildFailure()
		p.logf("build failed: resolving policy", err)
		return &BuildFailure{PolicyID: p.id.String(), Cause: err}
	}

	controller, err := p.newController(expr)
	if err != nil {
		p.metrics.IncBuildFailure()
		p.logf("build failed: constructing controller", err)
		return &BuildFailure{PolicyID: p.id.String(), Cause: err}
	}

	p.controller = controller
	go p.subscribeOutput(controller.Output())
	go p.subscribeTraces(controller.Traces())

	p.st.Store(int32(built))
	p.metrics.IncBuildSuccess()
	if p.logger != nil {
		p.logger.Info("policy built", map[string]any{"policy_id": p.id.String()})
	}
	return nil
}

// subscribeOutput runs for the lifetime of the controller, latching each
// terminal event's pretty-printed payload. It holds no lock across
// iterations — each iteration only holds the latch's own mutex for the
// duration of Set: it must never call back into the controller or the
// policy.
func (p *Policy) subscribeOutput(events <-chan OutputEvent) {
	for ev := range events {
		p.latch.Set(ev.Payload().PrettyString())
	}
}

// subscribeTraces runs for the lifetime of the controller, classifying
// each raw trace line and recording the resulting records into the
// trace buffer. A line classifying into both a Condition and a Verbose
// record is recorded into both.
func (p *Policy) subscribeTraces(lines <-chan string) {
	for line := range lines {
		records := trace.Classify(line)
		if len(records) == 0 {
			p.metrics.IncMalformedTraces()
			continue
		}
		for _, r := range records {
			p.traceBuf.Record(r)
			if r.Kind == trace.Condition {
				p.metrics.IncConditionRecords()
			} else {
				p.metrics.IncVerboseRecords()
			}
		}
	}
}

// Ingest hands event to the controller for non-blocking submission. It
// returns as soon as the event is accepted; it does not wait for the
// event to traverse the pipeline.
func (p *Policy) Ingest(ctx context.Context, event types.Event) error {
	if p.currentState() != built {
		p.metrics.IncEventsRejected()
		return notBuiltError(p.id.String())
	}

	p.buildMu.Lock()
	controller := p.controller
	p.buildMu.Unlock()
	if controller == nil {
		p.metrics.IncEventsRejected()
		return notBuiltError(p.id.String())
	}

	if err := controller.Ingest(ctx, types.Ok[types.Event](event)); err != nil {
		p.metrics.IncEventsRejected()
		p.logf("ingest rejected", err)
		return err
	}
	p.metrics.IncEventsIngested()
	if p.logger != nil {
		p.logger.Debug("event ingested", map[string]any{
			"policy_id": p.id.String(),
			"event_id":  event.EventID(),
		})
	}
	return nil
}

// Render acquires the output latch, then drains the trace buffer's
// condition history (in that order — the stated lock order), and formats
// the combined artifact for mode. After Render returns, the condition
// history is empty; detailed mode also clears the verbose bucket of
// every asset it touched.
//
// Render makes no cross-render atomicity promise: two concurrent Render
// calls may interleave. Callers that need that guarantee must serialize
// their own calls to Render.
func (p *Policy) Render(mode types.DebugMode) (out string, traceJSON string) {
	p.metrics.IncRender(mode.String())
	currentOutput := p.latch.Get()
	history := p.traceBuf.DrainHistory()
	return render.Format(mode, currentOutput, history, p.traceBuf)
}

// Close tears down the controller and, transitively, its subscriptions.
// No further traces may be delivered once Close begins. Safe to call on
// an UNBUILT policy (a no-op).
func (p *Policy) Close() error {
	p.buildMu.Lock()
	controller := p.controller
	p.controller = nil
	p.buildMu.Unlock()

	if controller == nil {
		return nil
	}
	if p.logger != nil {
		p.logger.Info("policy closed", map[string]any{"policy_id": p.id.String()})
	}
	return controller.Close()
}

func (p *Policy) logf(message string, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(message, map[string]any{
		"policy_id": p.id.String(),
		"error":     err.Error(),
	})
}
