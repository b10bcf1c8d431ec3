// Package fixture provides a deterministic, script-driven Controller for
// exercising a runtime policy without a live pipeline: every ingested
// event replays the same pre-recorded sequence of output and trace
// frames, decoded from a length-prefixed msgpack script with
// github.com/justapithecus/policyrt/ipc — the same wire format the
// refpipeline executor-boundary simulation uses.
package fixture

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/justapithecus/policyrt/ipc"
	"github.com/justapithecus/policyrt/runtimepolicy"
	"github.com/justapithecus/policyrt/types"
)

// Script is the PipelineExpression a Builder for this package hands to
// NewController: a length-prefixed msgpack byte stream of trace/output
// frames, replayed once per Ingest call.
type Script []byte

// Builder resolves any policy id to the same fixed script. Useful in
// tests and CLI demos that want reproducible output without constructing
// a real asset chain.
type Builder struct {
	script Script
}

// NewBuilder constructs a Builder that always resolves to script.
func NewBuilder(script Script) *Builder {
	return &Builder{script: script}
}

// BuildPolicy implements runtimepolicy.Builder.
func (b *Builder) BuildPolicy(ctx context.Context, id types.PolicyID) (runtimepolicy.PipelineExpression, error) {
	return b.script, nil
}

// Controller replays its script's frames on every Ingest call.
type Controller struct {
	script Script

	outCh   chan runtimepolicy.OutputEvent
	traceCh chan string

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewController adapts fixture to runtimepolicy.NewControllerFunc.
func NewController(expr runtimepolicy.PipelineExpression) (runtimepolicy.Controller, error) {
	script, ok := expr.(Script)
	if !ok {
		return nil, fmt.Errorf("fixture: unexpected pipeline expression type %T", expr)
	}
	return &Controller{
		script:  script,
		outCh:   make(chan runtimepolicy.OutputEvent),
		traceCh: make(chan string),
	}, nil
}

// Ingest replays the script on a fresh goroutine, ignoring the ingested
// event's own payload — the fixture's entire purpose is a deterministic,
// input-independent reply for driving the runtime policy in isolation.
func (c *Controller) Ingest(ctx context.Context, event types.Result[types.Event]) error {
	if _, err := event.Unwrap(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("fixture: controller is closed")
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.replay()
	}()
	return nil
}

func (c *Controller) replay() {
	dec := ipc.NewFrameDecoder(bytes.NewReader(c.script))
	for {
		// A framing error here is a fixture authoring bug, not a runtime
		// condition worth surfacing through the trace channel; stop
		// replay silently either way.
		payload, err := dec.ReadFrame()
		if err != nil {
			return
		}

		frame, err := ipc.DecodeFrame(payload)
		if err != nil {
			continue
		}

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		switch f := frame.(type) {
		case *types.TraceFrame:
			c.traceCh <- f.Line
		case *types.OutputFrame:
			c.outCh <- types.NewEvent(f.Value)
		}
	}
}

func (c *Controller) Output() <-chan runtimepolicy.OutputEvent { return c.outCh }
func (c *Controller) Traces() <-chan string                    { return c.traceCh }

// Close marks the controller closed and waits for in-flight replays to
// observe it, then closes the channels.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()
	close(c.outCh)
	close(c.traceCh)
	return nil
}

// Event describes one frame to splice into a Script, in emission order.
// Exactly one of Line or Output should be set.
type Event struct {
	Line   string
	Output any
}

// BuildScript assembles a Script from a sequence of trace lines and
// output values, in order.
func BuildScript(events ...Event) (Script, error) {
	var buf bytes.Buffer
	for _, ev := range events {
		var frame []byte
		var err error
		switch {
		case ev.Output != nil:
			frame, err = ipc.EncodeOutputFrame(ev.Output)
		default:
			frame, err = ipc.EncodeTraceFrame(ev.Line)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(frame)
	}
	return Script(buf.Bytes()), nil
}
