package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
)

type synthesizerImpl struct {
	single compose.Runnable[map[string]any, *schema.Message]
	multi  compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.Synthesizer = (*synthesizerImpl)(nil)

func newSynthesizer(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	singlePrompt string,
	multiPrompt string,
) (*synthesizerImpl, error) {
	single, err := compileTextLLMGraph(ctx, chatModel, singlePrompt, "aggregator.single_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile single synthesis graph: %v", contractx.ErrModelInvoke, err)
	}
	multi, err := compileTextLLMGraph(ctx, chatModel, multiPrompt, "aggregator.multi_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile multi synthesis graph: %v", contractx.ErrModelInvoke, err)
	}
	return &synthesizerImpl{single: single, multi: multi}, nil
}

func (s *synthesizerImpl) Summarize(ctx context.Context, req contractx.SynthesisRequest) (string, error) {
	if len(req.Outputs) == 0 {
		return "", fmt.Errorf("%w: nothing to summarize", contractx.ErrSynthesis)
	}

	runner := s.multi
	input := renderMulti(req)
	if req.Kind == contractx.SynthesisSingle {
		runner = s.single
		input = renderSingle(req)
	}

	msg, err := runner.Invoke(ctx, map[string]any{"input": input})
	if err != nil {
		return "", fmt.Errorf("%w: %w: %s synthesis: %v", contractx.ErrSynthesis, contractx.ErrModelInvoke, req.Kind, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: %s synthesis returned empty content", contractx.ErrSynthesis, req.Kind)
	}
	return strings.TrimSpace(msg.Content), nil
}

func renderSingle(req contractx.SynthesisRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User question: %s\n", req.Question)
	b.WriteString("Database output:\n")
	b.WriteString(req.Outputs[0].Result)
	return b.String()
}

func renderMulti(req contractx.SynthesisRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User question: %s\n", req.Question)
	b.WriteString("Agent outputs:\n")
	for _, o := range req.Outputs {
		fmt.Fprintf(&b, "[%s]: %s\n", o.Agent, o.Result)
	}
	return b.String()
}
