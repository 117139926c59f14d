package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
)

// DefaultHistoryLimit caps the turns carried into a run.
const DefaultHistoryLimit = 20

var (
	ErrAlreadyFinalized = errors.New("final response already set")
	ErrNilRequestState  = errors.New("request state is nil")
)

// Stage is the orchestration state machine position of a run.
type Stage string

const (
	StageClassifying Stage = "CLASSIFYING"
	StageRouting     Stage = "ROUTING"
	StageDispatching Stage = "DISPATCHING"
	StageAggregating Stage = "AGGREGATING"
	StageTerminal    Stage = "TERMINAL"
)

// RequestState is the unit of work for one inbound message. It is owned by a
// single run and never shared across runs.
type RequestState struct {
	RunID   string
	Message string
	History []contractx.Turn
	Now     time.Time

	Assignments contractx.AssignmentSet
	Stage       Stage
	// Targets are the distinct agents chosen by the router.
	Targets []string

	caller        context.Context
	failure       error
	finalResponse string
	finalized     bool
	trace         []string
	clock         func() time.Time
}

func NewRequestState(runID, message string, history []contractx.Turn, limit int, now func() time.Time) *RequestState {
	if now == nil {
		now = time.Now
	}
	return &RequestState{
		RunID:   runID,
		Message: message,
		History: TrimHistory(history, limit),
		Now:     now().UTC(),
		Stage:   StageClassifying,
		clock:   now,
	}
}

// BindCaller records the context of whoever waits for this run. Steps that
// wait on outside work stop when it is done, while the run itself goes on to
// produce a reply from what was collected.
func (s *RequestState) BindCaller(ctx context.Context) {
	if s != nil {
		s.caller = ctx
	}
}

// CallerContext returns the bound caller context, or fallback when none is
// bound.
func (s *RequestState) CallerContext(fallback context.Context) context.Context {
	if s == nil || s.caller == nil {
		return fallback
	}
	return s.caller
}

// Finalize sets the final response exactly once.
func (s *RequestState) Finalize(reply string) error {
	if s == nil {
		return ErrNilRequestState
	}
	if s.finalized {
		return ErrAlreadyFinalized
	}
	s.finalResponse = reply
	s.finalized = true
	s.Stage = StageTerminal
	return nil
}

// Fail records the error that aborted the run; the first failure wins.
func (s *RequestState) Fail(err error) error {
	if s != nil && s.failure == nil {
		s.failure = err
	}
	return err
}

func (s *RequestState) Failure() error {
	if s == nil {
		return nil
	}
	return s.failure
}

func (s *RequestState) FinalResponse() (string, bool) {
	if s == nil {
		return "", false
	}
	return s.finalResponse, s.finalized
}

// Tracef appends one "[time] [component] message" entry.
func (s *RequestState) Tracef(component, format string, args ...any) {
	if s == nil {
		return
	}
	ts := s.clock().UTC().Format(time.RFC3339)
	s.trace = append(s.trace, fmt.Sprintf("[%s] [%s] %s", ts, component, fmt.Sprintf(format, args...)))
}

// Trace returns a copy of the trace entries.
func (s *RequestState) Trace() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.trace...)
}

// TrimHistory copies the most recent limit turns; limit <= 0 uses the default.
func TrimHistory(history []contractx.Turn, limit int) []contractx.Turn {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return append([]contractx.Turn(nil), history...)
}

// AppendExchange records a user/assistant exchange and keeps the last limit turns.
func AppendExchange(history []contractx.Turn, user, assistant string, limit int) []contractx.Turn {
	next := make([]contractx.Turn, 0, len(history)+2)
	next = append(next, history...)
	next = append(next,
		contractx.Turn{Role: contractx.RoleUser, Content: user},
		contractx.Turn{Role: contractx.RoleAssistant, Content: assistant},
	)
	return TrimHistory(next, limit)
}
