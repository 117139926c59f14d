package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	catalogx "github.com/tanpawarit/fanout-concierge/agent/catalog"
	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
	metricsx "github.com/tanpawarit/fanout-concierge/pkg/metrics"
)

// Aggregate turns the reported results into the final response. It leaves the
// state untouched while any assignment is still waiting for its result.
func Aggregate(
	ctx context.Context,
	in *statex.RequestState,
	synthesizer contractx.Synthesizer,
	catalog *catalogx.Catalog,
) (*statex.RequestState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: request state is nil", contractx.ErrValidation)
	}
	if _, done := in.FinalResponse(); done {
		return in, nil
	}
	in.Stage = statex.StageAggregating

	if waiting := in.Assignments.Pending(); len(waiting) > 0 {
		in.Tracef("Aggregator", "waiting for %v", waiting)
		return in, nil
	}

	reply := strings.TrimSpace(aggregateReply(ctx, in, synthesizer, catalog))
	if err := in.Finalize(reply); err != nil {
		return nil, err
	}
	return in, nil
}

func aggregateReply(
	ctx context.Context,
	in *statex.RequestState,
	synthesizer contractx.Synthesizer,
	catalog *catalogx.Catalog,
) string {
	set := in.Assignments

	switch {
	case len(set) == 0:
		in.Tracef("Aggregator", "no assignments")
		return ""

	case len(set) == 1 && !catalog.IsStructured(set[0].Agent):
		in.Tracef("Aggregator", "single agent %s, pass through", set[0].Agent)
		return set[0].ResultText()

	case len(set) == 1:
		raw := set[0].ResultText()
		summary, err := summarize(ctx, synthesizer, contractx.SynthesisRequest{
			Kind:     contractx.SynthesisSingle,
			Question: in.Message,
			Outputs:  []contractx.AgentOutput{{Agent: set[0].Agent, Result: raw}},
		})
		if err != nil {
			in.Tracef("Aggregator", "summary of %s failed, returning raw result: %v", set[0].Agent, err)
			log.Warn().Err(err).Str("run_id", in.RunID).Msg("single synthesis failed")
			if strings.TrimSpace(raw) == "" {
				return ReplyGenericFailure
			}
			return raw
		}
		in.Tracef("Aggregator", "summarized %s output", set[0].Agent)
		return summary
	}

	outputs := make([]contractx.AgentOutput, 0, len(set))
	for _, a := range set {
		if r := a.ResultText(); strings.TrimSpace(r) != "" {
			outputs = append(outputs, contractx.AgentOutput{Agent: a.Agent, Result: r})
		}
	}
	if len(outputs) == 0 {
		in.Tracef("Aggregator", "all %d agents returned empty results", len(set))
		return ReplyGenericFailure
	}

	summary, err := summarize(ctx, synthesizer, contractx.SynthesisRequest{
		Kind:     contractx.SynthesisMulti,
		Question: in.Message,
		Outputs:  outputs,
	})
	if err != nil {
		in.Tracef("Aggregator", "combined summary failed, returning raw results: %v", err)
		log.Warn().Err(err).Str("run_id", in.RunID).Msg("multi synthesis failed")
		return joinOutputs(outputs)
	}
	in.Tracef("Aggregator", "summarized %d agent outputs", len(outputs))
	return summary
}

func summarize(ctx context.Context, synthesizer contractx.Synthesizer, req contractx.SynthesisRequest) (string, error) {
	if synthesizer == nil {
		metricsx.ObserveSynthesis(string(req.Kind), metricsx.StatusFallback)
		return "", fmt.Errorf("%w: no synthesizer configured", contractx.ErrSynthesis)
	}
	out, err := synthesizer.Summarize(ctx, req)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty summary")
	}
	if err != nil {
		metricsx.ObserveSynthesis(string(req.Kind), metricsx.StatusFallback)
		if !errors.Is(err, contractx.ErrSynthesis) {
			err = fmt.Errorf("%w: %v", contractx.ErrSynthesis, err)
		}
		return "", err
	}
	metricsx.ObserveSynthesis(string(req.Kind), metricsx.StatusOK)
	return out, nil
}

func joinOutputs(outputs []contractx.AgentOutput) string {
	parts := make([]string, 0, len(outputs))
	for _, o := range outputs {
		parts = append(parts, fmt.Sprintf("[%s]: %s", o.Agent, strings.TrimSpace(o.Result)))
	}
	return strings.Join(parts, "\n\n")
}
