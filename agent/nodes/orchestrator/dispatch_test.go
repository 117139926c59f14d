package orchestratornode

import (
	"context"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
)

func TestDispatchPreservesAssignmentOrder(t *testing.T) {
	t.Parallel()

	completed := make(chan string, 3)
	handlers := map[string]contractx.Handler{
		"kb":  &fakeHandler{name: "kb", result: "R1", delay: 60 * time.Millisecond, done: completed},
		"db":  &fakeHandler{name: "db", result: "R2", delay: 30 * time.Millisecond, done: completed},
		"web": &fakeHandler{name: "web", result: "R3", done: completed},
	}
	st := newState("q", contractx.AssignmentSet{
		{Agent: "kb", Command: "c1"},
		{Agent: "db", Command: "c2"},
		{Agent: "web", Command: "c3"},
	})

	out, err := Dispatch(context.Background(), st, handlers, DispatchOptions{})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	close(completed)

	var order []string
	for name := range completed {
		order = append(order, name)
	}
	if len(order) != 3 || order[0] != "web" || order[2] != "kb" {
		t.Fatalf("unexpected completion order: %v", order)
	}

	want := []string{"R1", "R2", "R3"}
	for i, a := range out.Assignments {
		if !a.HasResult() || a.ResultText() != want[i] {
			t.Fatalf("assignments[%d] result = %q, want %q", i, a.ResultText(), want[i])
		}
	}
	if out.Stage != statex.StageAggregating {
		t.Fatalf("unexpected stage: %s", out.Stage)
	}
}

func TestDispatchSameAgentKeepsSeparateSlots(t *testing.T) {
	t.Parallel()

	kb := &fakeHandler{}
	st := newState("q", contractx.AssignmentSet{
		{Agent: "kb", Command: "menu"},
		{Agent: "kb", Command: "hours"},
	})

	out, err := Dispatch(context.Background(), st, map[string]contractx.Handler{"kb": kb}, DispatchOptions{MaxParallel: 1})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if kb.calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", kb.calls())
	}
	if out.Assignments[0].ResultText() != "result:menu" || out.Assignments[1].ResultText() != "result:hours" {
		t.Fatalf("unexpected results: %q %q", out.Assignments[0].ResultText(), out.Assignments[1].ResultText())
	}
}

func TestDispatchIsolatesHandlerFailure(t *testing.T) {
	t.Parallel()

	handlers := map[string]contractx.Handler{
		"kb": &fakeHandler{err: errBoom},
		"db": &fakeHandler{result: "rows"},
	}
	st := newState("q", contractx.AssignmentSet{
		{Agent: "kb", Command: "a"},
		{Agent: "db", Command: "b"},
	})

	out, err := Dispatch(context.Background(), st, handlers, DispatchOptions{})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	failed := out.Assignments[0].ResultText()
	if !IsErrorMarker(failed) || !strings.Contains(failed, "kb") || !strings.Contains(failed, "boom") {
		t.Fatalf("unexpected error marker: %q", failed)
	}
	if out.Assignments[1].ResultText() != "rows" {
		t.Fatalf("unexpected result: %q", out.Assignments[1].ResultText())
	}
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	t.Parallel()

	handlers := map[string]contractx.Handler{
		"kb": &fakeHandler{panicMsg: "nil map"},
	}
	st := newState("q", contractx.AssignmentSet{{Agent: "kb", Command: "a"}})

	out, err := Dispatch(context.Background(), st, handlers, DispatchOptions{})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	got := out.Assignments[0].ResultText()
	if !IsErrorMarker(got) || !strings.Contains(got, "nil map") {
		t.Fatalf("unexpected marker: %q", got)
	}
}

func TestDispatchMissingHandlerWritesMarker(t *testing.T) {
	t.Parallel()

	st := newState("q", contractx.AssignmentSet{{Agent: "web", Command: "a"}})
	out, err := Dispatch(context.Background(), st, map[string]contractx.Handler{}, DispatchOptions{})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !IsErrorMarker(out.Assignments[0].ResultText()) {
		t.Fatalf("expected marker, got %q", out.Assignments[0].ResultText())
	}
}

func TestDispatchTimeoutAbandonsOutstandingCalls(t *testing.T) {
	t.Parallel()

	handlers := map[string]contractx.Handler{
		"kb": &fakeHandler{result: "fast"},
		"db": &fakeHandler{block: true},
	}
	st := newState("q", contractx.AssignmentSet{
		{Agent: "kb", Command: "a"},
		{Agent: "db", Command: "b"},
	})

	started := time.Now()
	out, err := Dispatch(context.Background(), st, handlers, DispatchOptions{Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("dispatch did not respect timeout: %s", elapsed)
	}
	if out.Assignments[0].ResultText() != "fast" {
		t.Fatalf("unexpected result: %q", out.Assignments[0].ResultText())
	}
	if got := out.Assignments[1].ResultText(); !IsErrorMarker(got) || !strings.Contains(got, "deadline exceeded") {
		t.Fatalf("unexpected marker: %q", got)
	}
	if len(out.Assignments.Pending()) != 0 {
		t.Fatal("no assignment may stay pending after fan-in")
	}
}

func TestDispatchCallerCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	handlers := map[string]contractx.Handler{"db": &fakeHandler{block: true}}
	st := newState("q", contractx.AssignmentSet{{Agent: "db", Command: "b"}})

	time.AfterFunc(20*time.Millisecond, cancel)
	out, err := Dispatch(ctx, st, handlers, DispatchOptions{})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := out.Assignments[0].ResultText(); !strings.Contains(got, "canceled") {
		t.Fatalf("unexpected marker: %q", got)
	}
}

func TestErrorMarkerTruncates(t *testing.T) {
	t.Parallel()

	marker := errorMarker("kb", errString(strings.Repeat("x", 500)))
	if len([]rune(marker)) > maxDiagnosticRunes+len("[error] kb: ...") {
		t.Fatalf("marker too long: %d", len(marker))
	}
}

type errString string

func (e errString) Error() string { return string(e) }
