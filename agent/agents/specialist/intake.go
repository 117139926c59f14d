package specialist

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	catalogx "github.com/tanpawarit/fanout-concierge/agent/catalog"
	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
)

const nowLayout = "2006-01-02 15:04:05"

type intakeImpl struct {
	runner  compose.Runnable[map[string]any, intakeLLMOutput]
	catalog *catalogx.Catalog
	now     func() time.Time
}

type intakeLLMOutput struct {
	Assignments []intakeAssignment `json:"assignments"`
}

type intakeAssignment struct {
	Agent   string `json:"agent"`
	Command string `json:"command"`
	Finish  bool   `json:"finish"`
}

var _ contractx.Classifier = (*intakeImpl)(nil)

func newIntake(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	catalog *catalogx.Catalog,
) (*intakeImpl, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: intake requires an agent catalog", contractx.ErrValidation)
	}
	runner, err := compileStructuredLLMGraph[intakeLLMOutput](ctx, chatModel, systemPrompt, "intake.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile intake graph: %v", contractx.ErrModelInvoke, err)
	}
	return &intakeImpl{runner: runner, catalog: catalog, now: time.Now}, nil
}

// Classify asks the intake model for assignments. Catalog validation is left
// to the engine.
func (c *intakeImpl) Classify(ctx context.Context, message string, history []contractx.Turn) (contractx.AssignmentSet, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is empty", contractx.ErrClassification)
	}

	now := c.now().Format(nowLayout)
	out, err := c.runner.Invoke(ctx, map[string]any{
		"now":          now,
		"capabilities": c.catalog.Capabilities(),
		"examples":     c.catalog.Examples(now),
		"agent_names":  strings.Join(c.catalog.AllowedNames(), ", "),
		historyKey:     historyMessages(history),
		"input":        message,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w: intake invoke: %v", contractx.ErrClassification, contractx.ErrModelInvoke, err)
	}

	set := make(contractx.AssignmentSet, 0, len(out.Assignments))
	for i, a := range out.Assignments {
		agent := strings.TrimSpace(a.Agent)
		if agent == "" {
			return nil, fmt.Errorf("%w: %w: assignments[%d] has no agent", contractx.ErrClassification, contractx.ErrSchemaViolation, i)
		}
		set = append(set, contractx.Assignment{
			Agent:   agent,
			Command: a.Command,
			Finish:  a.Finish,
		})
	}
	return set, nil
}
