package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
)

// Decision is the router outcome for one assignment set.
type Decision struct {
	Next    statex.Stage
	Targets []string
	Reply   string
}

// Decide maps an assignment set to the next stage. A terminal entry overrides
// every other entry in the set.
func Decide(set contractx.AssignmentSet) Decision {
	if len(set) == 0 {
		return Decision{Next: statex.StageTerminal}
	}

	terminal := -1
	for i, a := range set {
		if !a.IsTerminal() {
			continue
		}
		if a.Finish || terminal < 0 || !set[terminal].Finish {
			terminal = i
		}
	}
	if terminal >= 0 {
		return Decision{Next: statex.StageTerminal, Reply: set[terminal].Command}
	}

	seen := make(map[string]struct{}, len(set))
	targets := make([]string, 0, len(set))
	for _, a := range set {
		if _, ok := seen[a.Agent]; ok {
			continue
		}
		seen[a.Agent] = struct{}{}
		targets = append(targets, a.Agent)
	}
	return Decision{Next: statex.StageDispatching, Targets: targets}
}

func Route(in *statex.RequestState) (*statex.RequestState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: request state is nil", contractx.ErrValidation)
	}
	in.Stage = statex.StageRouting

	d := Decide(in.Assignments)
	switch d.Next {
	case statex.StageTerminal:
		if dropped := len(in.Assignments) - countTerminal(in.Assignments); dropped > 0 {
			in.Tracef("Router", "terminal reply overrides %d delegated assignment(s)", dropped)
		}
		if err := in.Finalize(d.Reply); err != nil {
			return nil, err
		}
		in.Tracef("Router", "finish without dispatch")
	default:
		in.Targets = d.Targets
		in.Stage = statex.StageDispatching
		in.Tracef("Router", "dispatch targets=%v assignments=%d", d.Targets, len(in.Assignments))
	}
	return in, nil
}

func countTerminal(set contractx.AssignmentSet) int {
	n := 0
	for _, a := range set {
		if a.IsTerminal() {
			n++
		}
	}
	return n
}
