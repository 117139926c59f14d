package specialist

import (
	"context"

	catalogx "github.com/tanpawarit/fanout-concierge/agent/catalog"
	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	llmx "github.com/tanpawarit/fanout-concierge/agent/llm"
	promptx "github.com/tanpawarit/fanout-concierge/agent/prompt"
)

// Registry holds every model-backed component, one chat model per role.
type Registry struct {
	Intake     contractx.Classifier
	Aggregator contractx.Synthesizer
	Knowledge  *Prompter
	Database   *Prompter
}

func NewRegistry(ctx context.Context, cfg llmx.Config, catalog *catalogx.Catalog) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()

	intakeModel, err := cfg.ChatModel(ctx, llmx.RoleIntake)
	if err != nil {
		return nil, err
	}
	knowledgeModel, err := cfg.ChatModel(ctx, llmx.RoleKnowledge)
	if err != nil {
		return nil, err
	}
	databaseModel, err := cfg.ChatModel(ctx, llmx.RoleDatabase)
	if err != nil {
		return nil, err
	}
	aggregatorModel, err := cfg.ChatModel(ctx, llmx.RoleAggregator)
	if err != nil {
		return nil, err
	}

	intake, err := newIntake(ctx, intakeModel, prompts.Intake, catalog)
	if err != nil {
		return nil, err
	}
	aggregator, err := newSynthesizer(ctx, aggregatorModel, prompts.SummarizeSingle, prompts.SummarizeMulti)
	if err != nil {
		return nil, err
	}
	knowledge, err := NewPrompter(ctx, knowledgeModel, prompts.Knowledge, "knowledge")
	if err != nil {
		return nil, err
	}
	database, err := NewPrompter(ctx, databaseModel, prompts.SQL, "database")
	if err != nil {
		return nil, err
	}

	return &Registry{
		Intake:     intake,
		Aggregator: aggregator,
		Knowledge:  knowledge,
		Database:   database,
	}, nil
}
