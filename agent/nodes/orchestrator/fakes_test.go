package orchestratornode

import (
	"context"
	"errors"
	"sync"
	"time"

	catalogx "github.com/tanpawarit/fanout-concierge/agent/catalog"
	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
)

type fakeHandler struct {
	mu       sync.Mutex
	result   string
	err      error
	delay    time.Duration
	block    bool
	panicMsg string
	commands []string
	done     chan<- string
	name     string
}

func (f *fakeHandler) Handle(ctx context.Context, command string) (string, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.done != nil {
		f.done <- f.name
	}
	if f.err != nil {
		return "", f.err
	}
	if f.result != "" {
		return f.result, nil
	}
	return "result:" + command, nil
}

func (f *fakeHandler) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands)
}

type fakeSynthesizer struct {
	mu   sync.Mutex
	out  string
	err  error
	reqs []contractx.SynthesisRequest
}

func (f *fakeSynthesizer) Summarize(ctx context.Context, req contractx.SynthesisRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

var errBoom = errors.New("boom")

func testCatalog() *catalogx.Catalog {
	c, err := catalogx.New(catalogx.Agent{},
		catalogx.Agent{Name: "kb"},
		catalogx.Agent{Name: "db", Structured: true},
		catalogx.Agent{Name: "web"},
	)
	if err != nil {
		panic(err)
	}
	return c
}

func newState(message string, set contractx.AssignmentSet) *statex.RequestState {
	st := statex.NewRequestState("run-test", message, nil, 0, time.Now)
	st.Assignments = set
	return st
}

func strptr(s string) *string {
	return &s
}
