package orchestratornode

import (
	"context"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
)

func TestAggregateWaitsForPendingResults(t *testing.T) {
	t.Parallel()

	synth := &fakeSynthesizer{out: "summary"}
	st := newState("q", contractx.AssignmentSet{
		{Agent: "kb", Result: strptr("R1")},
		{Agent: "db"},
	})

	out, err := Aggregate(context.Background(), st, synth, testCatalog())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if _, done := out.FinalResponse(); done {
		t.Fatal("final response must not be set while waiting")
	}
	if len(synth.reqs) != 0 {
		t.Fatal("synthesizer must not be called while waiting")
	}
	if !strings.Contains(strings.Join(out.Trace(), "\n"), "waiting for [db]") {
		t.Fatalf("expected waiting trace, got %v", out.Trace())
	}

	gout, err := FinalizeReply(out)
	if err != nil || !gout.Waiting {
		t.Fatalf("FinalizeReply() = %#v, %v", gout, err)
	}
}

func TestAggregateZeroAssignments(t *testing.T) {
	t.Parallel()

	st := newState("q", nil)
	out, err := Aggregate(context.Background(), st, &fakeSynthesizer{}, testCatalog())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if reply, done := out.FinalResponse(); !done || reply != "" {
		t.Fatalf("FinalResponse() = %q, %v", reply, done)
	}
}

func TestAggregateSinglePassThrough(t *testing.T) {
	t.Parallel()

	synth := &fakeSynthesizer{out: "should not be used"}
	st := newState("q", contractx.AssignmentSet{{Agent: "kb", Result: strptr("R")}})

	out, err := Aggregate(context.Background(), st, synth, testCatalog())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if reply, _ := out.FinalResponse(); reply != "R" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(synth.reqs) != 0 {
		t.Fatalf("expected no synthesis, got %d", len(synth.reqs))
	}
}

func TestAggregateSingleStructuredSummarizes(t *testing.T) {
	t.Parallel()

	synth := &fakeSynthesizer{out: "  Two lattes sold today ☕  "}
	st := newState("how many lattes?", contractx.AssignmentSet{{Agent: "db", Result: strptr("qty\n2")}})

	out, err := Aggregate(context.Background(), st, synth, testCatalog())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if reply, _ := out.FinalResponse(); reply != "Two lattes sold today ☕" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(synth.reqs) != 1 {
		t.Fatalf("expected one synthesis call, got %d", len(synth.reqs))
	}
	req := synth.reqs[0]
	if req.Kind != contractx.SynthesisSingle || req.Question != "how many lattes?" {
		t.Fatalf("unexpected request: %#v", req)
	}
	if len(req.Outputs) != 1 || req.Outputs[0].Result != "qty\n2" {
		t.Fatalf("unexpected outputs: %#v", req.Outputs)
	}
}

func TestAggregateSingleStructuredFallsBackToRaw(t *testing.T) {
	t.Parallel()

	synth := &fakeSynthesizer{err: errBoom}
	st := newState("q", contractx.AssignmentSet{{Agent: "db", Result: strptr("qty\n2")}})

	out, err := Aggregate(context.Background(), st, synth, testCatalog())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if reply, _ := out.FinalResponse(); reply != "qty\n2" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestAggregateMultiDropsEmptyResultsInOrder(t *testing.T) {
	t.Parallel()

	synth := &fakeSynthesizer{out: "combined"}
	st := newState("q", contractx.AssignmentSet{
		{Agent: "kb", Result: strptr("R1")},
		{Agent: "web", Result: strptr("")},
		{Agent: "db", Result: strptr("R3")},
	})

	out, err := Aggregate(context.Background(), st, synth, testCatalog())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if reply, _ := out.FinalResponse(); reply != "combined" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(synth.reqs) != 1 {
		t.Fatalf("expected one synthesis call, got %d", len(synth.reqs))
	}
	got := synth.reqs[0].Outputs
	if synth.reqs[0].Kind != contractx.SynthesisMulti || len(got) != 2 {
		t.Fatalf("unexpected request: %#v", synth.reqs[0])
	}
	if got[0].Agent != "kb" || got[1].Agent != "db" {
		t.Fatalf("outputs out of order: %#v", got)
	}
}

func TestAggregateMultiFallsBackToRawResults(t *testing.T) {
	t.Parallel()

	synth := &fakeSynthesizer{err: errBoom}
	st := newState("q", contractx.AssignmentSet{
		{Agent: "kb", Result: strptr("R1")},
		{Agent: "db", Result: strptr("R2")},
	})

	out, err := Aggregate(context.Background(), st, synth, testCatalog())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	reply, _ := out.FinalResponse()
	if reply != "[kb]: R1\n\n[db]: R2" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestAggregateMultiAllEmpty(t *testing.T) {
	t.Parallel()

	synth := &fakeSynthesizer{out: "x"}
	st := newState("q", contractx.AssignmentSet{
		{Agent: "kb", Result: strptr("")},
		{Agent: "db", Result: strptr("  ")},
	})

	out, err := Aggregate(context.Background(), st, synth, testCatalog())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if reply, _ := out.FinalResponse(); reply != ReplyGenericFailure {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(synth.reqs) != 0 {
		t.Fatal("synthesizer must not be called without outputs")
	}
}
