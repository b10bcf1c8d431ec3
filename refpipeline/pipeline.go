package refpipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/justapithecus/policyrt/ipc"
	"github.com/justapithecus/policyrt/runtimepolicy"
	"github.com/justapithecus/policyrt/types"
)

// MapBuilder resolves a policy id to one of a fixed set of registered
// chains. It is the simplest possible runtimepolicy.Builder: a lookup,
// nothing more.
type MapBuilder struct {
	chains map[types.PolicyID]Chain
}

// NewMapBuilder constructs a MapBuilder over the given chains, keyed by
// policy id.
func NewMapBuilder(chains map[types.PolicyID]Chain) *MapBuilder {
	return &MapBuilder{chains: chains}
}

// BuildPolicy implements runtimepolicy.Builder.
func (b *MapBuilder) BuildPolicy(ctx context.Context, id types.PolicyID) (runtimepolicy.PipelineExpression, error) {
	chain, ok := b.chains[id]
	if !ok {
		return nil, fmt.Errorf("no chain registered for policy %q", id)
	}
	return chain, nil
}

// Controller drives events through a Chain, simulating the executor-
// process boundary with an in-process io.Pipe: each ingested event runs
// the chain on its own goroutine (standing in for a child process) and
// writes length-prefixed msgpack trace/output frames into the pipe; a
// single demultiplexing goroutine reads them back out and republishes
// them on the typed channels the runtime policy subscribes to.
type Controller struct {
	assets []Asset

	pw *io.PipeWriter
	pr *io.PipeReader

	outCh   chan runtimepolicy.OutputEvent
	traceCh chan string

	mu        sync.Mutex
	closed    bool
	inFlight  sync.WaitGroup
	demuxDone chan struct{}
}

// NewController adapts refpipeline to runtimepolicy.NewControllerFunc.
func NewController(expr runtimepolicy.PipelineExpression) (runtimepolicy.Controller, error) {
	chain, ok := expr.(Chain)
	if !ok {
		return nil, fmt.Errorf("refpipeline: unexpected pipeline expression type %T", expr)
	}

	pr, pw := io.Pipe()
	c := &Controller{
		assets:    chain.Assets,
		pr:        pr,
		pw:        pw,
		outCh:     make(chan runtimepolicy.OutputEvent),
		traceCh:   make(chan string),
		demuxDone: make(chan struct{}),
	}
	go c.demux()
	return c, nil
}

// demux reads frames off the pipe and republishes them on the typed
// channels until the pipe is closed.
func (c *Controller) demux() {
	defer close(c.demuxDone)
	defer close(c.outCh)
	defer close(c.traceCh)

	dec := ipc.NewFrameDecoder(c.pr)
	for {
		payload, err := dec.ReadFrame()
		if err != nil {
			return
		}
		frame, err := ipc.DecodeFrame(payload)
		if err != nil {
			// A frame that fails to decode is dropped rather than
			// terminating the stream; it is not a framing-level error.
			continue
		}
		switch f := frame.(type) {
		case *types.TraceFrame:
			c.traceCh <- f.Line
		case *types.OutputFrame:
			c.outCh <- types.NewEvent(f.Value)
		}
	}
}

// Ingest implements runtimepolicy.Controller. It runs the chain
// asynchronously and returns once the run has been scheduled, not once
// it completes.
func (c *Controller) Ingest(ctx context.Context, event types.Result[types.Event]) error {
	ev, err := event.Unwrap()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("refpipeline: controller is closed")
	}
	c.inFlight.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.inFlight.Done()
		c.run(ev)
	}()
	return nil
}

func (c *Controller) run(ev types.Event) {
	doc := ev.Payload()
	for _, asset := range c.assets {
		out, lines, keep := asset.Transform(doc)
		for _, line := range lines {
			frame, err := ipc.EncodeTraceFrame(line)
			if err != nil {
				continue
			}
			if _, err := c.pw.Write(frame); err != nil {
				return
			}
		}
		if !keep {
			return
		}
		doc = out
	}

	frame, err := ipc.EncodeOutputFrame(doc.Value())
	if err != nil {
		return
	}
	_, _ = c.pw.Write(frame)
}

func (c *Controller) Output() <-chan runtimepolicy.OutputEvent { return c.outCh }
func (c *Controller) Traces() <-chan string                    { return c.traceCh }

// Close stops accepting new events, waits for in-flight chain runs to
// finish writing their frames, then closes the pipe so demux exits.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.inFlight.Wait()
	_ = c.pw.Close()
	<-c.demuxDone
	return nil
}
