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

// Prompter runs one system prompt template against a chat model and returns
// the reply text. Handlers use it for their model calls.
type Prompter struct {
	name   string
	runner compose.Runnable[map[string]any, *schema.Message]
}

func NewPrompter(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt, name string) (*Prompter, error) {
	runner, err := compileTextLLMGraph(ctx, chatModel, systemPrompt, name+".model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s graph: %v", contractx.ErrModelInvoke, name, err)
	}
	return &Prompter{name: name, runner: runner}, nil
}

// Complete fills the system prompt with vars and sends input as the user turn.
func (p *Prompter) Complete(ctx context.Context, vars map[string]any, input string) (string, error) {
	payload := make(map[string]any, len(vars)+1)
	for k, v := range vars {
		payload[k] = v
	}
	payload["input"] = input

	msg, err := p.runner.Invoke(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("%w: %s invoke: %v", contractx.ErrModelInvoke, p.name, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: %s returned no message", contractx.ErrSchemaViolation, p.name)
	}
	return strings.TrimSpace(msg.Content), nil
}
