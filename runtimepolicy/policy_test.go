package runtimepolicy_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/justapithecus/policyrt/runtimepolicy"
	"github.com/justapithecus/policyrt/types"
)

// fakeController is a minimal, fully in-memory Controller double. Ingest
// pushes a scripted output event and/or trace lines onto the output and
// trace channels; Close closes both, ending the policy's subscriber
// goroutines.
type fakeController struct {
	mu       sync.Mutex
	outCh    chan runtimepolicy.OutputEvent
	traceCh  chan string
	closed   bool
	ingested []types.Event

	// script maps a probe value (the ingested event's payload) to the
	// output value and trace lines to emit in response.
	onIngest func(event types.Event) (output any, traces []string)
}

func newFakeController(onIngest func(types.Event) (any, []string)) *fakeController {
	return &fakeController{
		outCh:    make(chan runtimepolicy.OutputEvent),
		traceCh:  make(chan string),
		onIngest: onIngest,
	}
}

func (c *fakeController) Ingest(ctx context.Context, event types.Result[types.Event]) error {
	ev, err := event.Unwrap()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("controller closed")
	}
	c.ingested = append(c.ingested, ev)
	c.mu.Unlock()

	if c.onIngest == nil {
		return nil
	}
	output, traces := c.onIngest(ev)
	if output != nil {
		c.outCh <- types.NewEvent(output)
	}
	for _, line := range traces {
		c.traceCh <- line
	}
	return nil
}

func (c *fakeController) Output() <-chan runtimepolicy.OutputEvent { return c.outCh }
func (c *fakeController) Traces() <-chan string                    { return c.traceCh }

func (c *fakeController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.outCh)
	close(c.traceCh)
	return nil
}

// fakeBuilder resolves any policy id to a preset expression, or fails if
// failWith is set.
type fakeBuilder struct {
	expr     runtimepolicy.PipelineExpression
	failWith error
	calls    int
}

func (b *fakeBuilder) BuildPolicy(ctx context.Context, id types.PolicyID) (runtimepolicy.PipelineExpression, error) {
	b.calls++
	if b.failWith != nil {
		return nil, b.failWith
	}
	return b.expr, nil
}

// waitUntil polls cond until it returns true or the timeout elapses,
// failing the test on timeout. Subscriber goroutines deliver
// asynchronously, so tests observe their effect this way rather than via
// a direct synchronization handle.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestPolicy_IngestBeforeBuild(t *testing.T) {
	p := runtimepolicy.New(types.PolicyID("policy/x/0"), runtimepolicy.Config{
		NewController: func(expr runtimepolicy.PipelineExpression) (runtimepolicy.Controller, error) {
			return newFakeController(nil), nil
		},
	})

	err := p.Ingest(t.Context(), types.NewEvent(map[string]any{"a": 1}))
	if err == nil || !strings.Contains(err.Error(), "not built") {
		t.Fatalf("Ingest before Build = %v, want error containing %q", err, "not built")
	}

	output, traceJSON := p.Render(types.OutputOnly)
	if output != "" || traceJSON != "{}" {
		t.Errorf("Render before Build = (%q, %q), want (\"\", \"{}\")", output, traceJSON)
	}
}

func TestPolicy_HappyPathCompact(t *testing.T) {
	controller := newFakeController(func(types.Event) (any, []string) {
		return map[string]any{"a": 1}, []string{"[decoder/d/0] [condition]:matched"}
	})
	p := runtimepolicy.New(types.PolicyID("policy/x/0"), runtimepolicy.Config{
		NewController: func(runtimepolicy.PipelineExpression) (runtimepolicy.Controller, error) {
			return controller, nil
		},
	})

	if err := p.Build(t.Context(), &fakeBuilder{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := p.Ingest(t.Context(), types.NewEvent(nil)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	var output, traceJSON string
	waitUntil(t, time.Second, func() bool {
		output, traceJSON = p.Render(types.OutputAndTraces)
		return output != ""
	})

	if want := "{\n  \"a\": 1\n}\n"; output != want {
		t.Errorf("output = %q, want %q", output, want)
	}
	if !strings.Contains(traceJSON, `"/decoder~1d~10": "matched"`) {
		t.Errorf("traceJSON = %q, want it to contain the escaped decoder key", traceJSON)
	}
}

func TestPolicy_HistoryClearsAcrossRenders(t *testing.T) {
	controller := newFakeController(func(types.Event) (any, []string) {
		return map[string]any{"a": 1}, []string{"[decoder/d/0] [condition]:matched"}
	})
	p := runtimepolicy.New(types.PolicyID("policy/x/0"), runtimepolicy.Config{
		NewController: func(runtimepolicy.PipelineExpression) (runtimepolicy.Controller, error) {
			return controller, nil
		},
	})
	_ = p.Build(t.Context(), &fakeBuilder{})
	_ = p.Ingest(t.Context(), types.NewEvent(nil))

	waitUntil(t, time.Second, func() bool {
		_, traceJSON := p.Render(types.OutputAndTraces)
		return traceJSON != "{}"
	})

	output, traceJSON := p.Render(types.OutputAndTraces)
	if traceJSON != "{}" {
		t.Errorf("second render traceJSON = %q, want {} (history must clear)", traceJSON)
	}
	if want := "{\n  \"a\": 1\n}\n"; output != want {
		t.Errorf("second render output = %q, want %q (output persists)", output, want)
	}
}

func TestPolicy_DetailedDedup(t *testing.T) {
	controller := newFakeController(func(types.Event) (any, []string) {
		return map[string]any{}, []string{
			"[f/x/0] hit",
			"[f/x/0] hit",
			"[f/x/0] hit",
			"[f/x/0] miss",
			// A detailed render only visits assets with a condition record
			// in the drained history, so the asset also fires one.
			"[f/x/0] [condition]:hit",
		}
	})
	p := runtimepolicy.New(types.PolicyID("policy/x/0"), runtimepolicy.Config{
		NewController: func(runtimepolicy.PipelineExpression) (runtimepolicy.Controller, error) {
			return controller, nil
		},
	})
	_ = p.Build(t.Context(), &fakeBuilder{})
	_ = p.Ingest(t.Context(), types.NewEvent(nil))

	var traceJSON string
	waitUntil(t, time.Second, func() bool {
		_, traceJSON = p.Render(types.OutputAndTracesWithDetails)
		return traceJSON != "{}"
	})

	if !strings.Contains(traceJSON, "[f/x/0] hit[f/x/0] miss") {
		t.Errorf("traceJSON = %q, want deduped concatenation of hit+miss", traceJSON)
	}
}

func TestPolicy_DoubleBuild(t *testing.T) {
	controller := newFakeController(func(types.Event) (any, []string) {
		return map[string]any{"a": 1}, nil
	})
	builder := &fakeBuilder{}
	p := runtimepolicy.New(types.PolicyID("policy/x/0"), runtimepolicy.Config{
		NewController: func(runtimepolicy.PipelineExpression) (runtimepolicy.Controller, error) {
			return controller, nil
		},
	})

	if err := p.Build(t.Context(), builder); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	err := p.Build(t.Context(), builder)
	if err == nil || !strings.Contains(err.Error(), "already built") {
		t.Fatalf("second Build = %v, want error containing %q", err, "already built")
	}
	if builder.calls != 1 {
		t.Errorf("builder called %d times, want 1 (second Build must short-circuit)", builder.calls)
	}

	if err := p.Ingest(t.Context(), types.NewEvent(nil)); err != nil {
		t.Errorf("Ingest after failed rebuild = %v, want nil (first build's pipeline still usable)", err)
	}
}

func TestPolicy_MalformedTracesIgnored(t *testing.T) {
	controller := newFakeController(func(types.Event) (any, []string) {
		return map[string]any{}, []string{"not a trace", "[broken"}
	})
	p := runtimepolicy.New(types.PolicyID("policy/x/0"), runtimepolicy.Config{
		NewController: func(runtimepolicy.PipelineExpression) (runtimepolicy.Controller, error) {
			return controller, nil
		},
	})
	_ = p.Build(t.Context(), &fakeBuilder{})
	_ = p.Ingest(t.Context(), types.NewEvent(nil))

	waitUntil(t, time.Second, func() bool {
		output, _ := p.Render(types.OutputOnly)
		return output != ""
	})

	_, traceJSON := p.Render(types.OutputAndTracesWithDetails)
	if traceJSON != "{}" {
		t.Errorf("traceJSON = %q, want {} (malformed lines never classify)", traceJSON)
	}
}

func TestPolicy_BuildFailurePropagates(t *testing.T) {
	p := runtimepolicy.New(types.PolicyID("policy/x/0"), runtimepolicy.Config{
		NewController: func(runtimepolicy.PipelineExpression) (runtimepolicy.Controller, error) {
			t.Fatal("NewController must not be called when BuildPolicy fails")
			return nil, nil
		},
	})

	cause := errors.New("catalog lookup failed")
	err := p.Build(t.Context(), &fakeBuilder{failWith: cause})
	if err == nil || !errors.Is(err, cause) {
		t.Fatalf("Build = %v, want an error wrapping %v", err, cause)
	}
	if p.IsBuilt() {
		t.Error("IsBuilt() = true after a failed Build")
	}

	if err := p.Ingest(t.Context(), types.NewEvent(nil)); err == nil {
		t.Error("Ingest after failed Build should still be NotBuilt")
	}
}

func TestPolicy_CloseIsIdempotentAndSafeWhenUnbuilt(t *testing.T) {
	p := runtimepolicy.New(types.PolicyID("policy/x/0"), runtimepolicy.Config{
		NewController: func(runtimepolicy.PipelineExpression) (runtimepolicy.Controller, error) {
			return newFakeController(nil), nil
		},
	})
	if err := p.Close(); err != nil {
		t.Fatalf("Close on UNBUILT policy: %v", err)
	}

	if err := p.Build(t.Context(), &fakeBuilder{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
