package trace_test

import (
	"sync"
	"testing"

	"github.com/justapithecus/policyrt/trace"
)

func TestBuffer_AppendConditionPreservesDuplicatesAndOrder(t *testing.T) {
	b := trace.NewBuffer()

	b.AppendCondition("a", "one")
	b.AppendCondition("b", "two")
	b.AppendCondition("a", "one")

	got := b.DrainHistory()
	want := []trace.HistoryEntry{
		{Asset: "a", Payload: "one"},
		{Asset: "b", Payload: "two"},
		{Asset: "a", Payload: "one"},
	}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBuffer_DrainHistoryClears(t *testing.T) {
	b := trace.NewBuffer()
	b.AppendCondition("a", "one")

	first := b.DrainHistory()
	if len(first) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(first))
	}

	second := b.DrainHistory()
	if len(second) != 0 {
		t.Fatalf("expected drained history to be empty, got %d entries", len(second))
	}
}

func TestBuffer_TakeVerboseDedupsAndClears(t *testing.T) {
	b := trace.NewBuffer()

	b.AppendVerbose("f/x/0", "[f/x/0] hit")
	b.AppendVerbose("f/x/0", "[f/x/0] hit")
	b.AppendVerbose("f/x/0", "[f/x/0] hit")
	b.AppendVerbose("f/x/0", "[f/x/0] miss")

	lines := b.TakeVerbose("f/x/0")
	if len(lines) != 2 {
		t.Fatalf("expected 2 unique lines, got %d: %v", len(lines), lines)
	}

	// second take returns nothing: bucket was cleared
	if lines2 := b.TakeVerbose("f/x/0"); lines2 != nil {
		t.Errorf("expected nil after clearing, got %v", lines2)
	}
}

func TestBuffer_TakeVerboseUnknownAsset(t *testing.T) {
	b := trace.NewBuffer()
	if lines := b.TakeVerbose("missing"); lines != nil {
		t.Errorf("expected nil for unknown asset, got %v", lines)
	}
}

func TestBuffer_RecordDispatchesByKind(t *testing.T) {
	b := trace.NewBuffer()

	for _, r := range trace.Classify("[a] [condition]:payload") {
		b.Record(r)
	}

	history := b.DrainHistory()
	if len(history) != 1 || history[0] != (trace.HistoryEntry{Asset: "a", Payload: "payload"}) {
		t.Fatalf("history = %+v", history)
	}

	verbose := b.TakeVerbose("a")
	if len(verbose) != 1 || verbose[0] != "[a] [condition]:payload" {
		t.Fatalf("verbose = %+v", verbose)
	}
}

func TestBuffer_ConcurrentAppends(t *testing.T) {
	b := trace.NewBuffer()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.AppendCondition("asset", "payload")
		}()
		go func() {
			defer wg.Done()
			b.AppendVerbose("asset", "[asset] payload")
		}()
	}
	wg.Wait()

	if history := b.DrainHistory(); len(history) != 50 {
		t.Errorf("expected 50 history entries, got %d", len(history))
	}
	if verbose := b.TakeVerbose("asset"); len(verbose) != 1 {
		t.Errorf("expected 1 unique verbose line, got %d", len(verbose))
	}
}
