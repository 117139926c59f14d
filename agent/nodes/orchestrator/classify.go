package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	catalogx "github.com/tanpawarit/fanout-concierge/agent/catalog"
	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
)

// Classify replaces the assignment set with the classifier output once it
// passes catalog validation.
func Classify(
	ctx context.Context,
	in *statex.RequestState,
	classifier contractx.Classifier,
	catalog *catalogx.Catalog,
) (*statex.RequestState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: request state is nil", contractx.ErrValidation)
	}
	in.Stage = statex.StageClassifying

	set, err := classifier.Classify(ctx, in.Message, in.History)
	if err != nil {
		if !errors.Is(err, contractx.ErrClassification) {
			err = fmt.Errorf("%w: %v", contractx.ErrClassification, err)
		}
		in.Tracef("Classifier", "error: %v", err)
		log.Warn().Err(err).Str("run_id", in.RunID).Msg("classification failed")
		return nil, in.Fail(err)
	}

	if err := catalog.Validate(set); err != nil {
		in.Tracef("Classifier", "rejected assignments: %v", err)
		log.Warn().Err(err).Str("run_id", in.RunID).Msg("assignment validation failed")
		return nil, in.Fail(err)
	}

	in.Assignments = set.Clone()
	for i := range in.Assignments {
		in.Assignments[i].Result = nil
	}
	in.Stage = statex.StageRouting
	in.Tracef("Classifier", "assignments=%s", describeAssignments(in.Assignments))
	return in, nil
}

func describeAssignments(set contractx.AssignmentSet) string {
	if len(set) == 0 {
		return "[]"
	}
	out := "["
	for i, a := range set {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s(finish=%t)", a.Agent, a.Finish)
	}
	return out + "]"
}
