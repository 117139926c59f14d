package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"

	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	openrouterx "github.com/tanpawarit/fanout-concierge/pkg/openrouter"
)

// Role names a model consumer. Each role may override the default model
// and temperature.
type Role string

const (
	RoleIntake     Role = "intake"
	RoleKnowledge  Role = "knowledge"
	RoleDatabase   Role = "database"
	RoleAggregator Role = "aggregator"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	MaxRetries         int           `envconfig:"MAX_RETRIES" split_words:"true" default:"2"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	IntakeModel     string  `envconfig:"INTAKE_MODEL" split_words:"true"`
	KnowledgeModel  string  `envconfig:"KNOWLEDGE_MODEL" split_words:"true"`
	DatabaseModel   string  `envconfig:"DATABASE_MODEL" split_words:"true"`
	AggregatorModel string  `envconfig:"AGGREGATOR_MODEL" split_words:"true"`
	EmbeddingModel  string  `envconfig:"EMBEDDING_MODEL" split_words:"true" default:"openai/text-embedding-3-small"`
	IntakeTemp      float32 `envconfig:"INTAKE_TEMPERATURE" split_words:"true" default:"0"`
	KnowledgeTemp   float32 `envconfig:"KNOWLEDGE_TEMPERATURE" split_words:"true" default:"-1"`
	DatabaseTemp    float32 `envconfig:"DATABASE_TEMPERATURE" split_words:"true" default:"0"`
	AggregatorTemp  float32 `envconfig:"AGGREGATOR_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// Endpoint is the connection shared by every role.
func (c Config) Endpoint() openrouterx.Endpoint {
	return openrouterx.Endpoint{
		BaseURL:    strings.TrimSpace(c.BaseURL),
		APIKey:     strings.TrimSpace(c.APIKey),
		Timeout:    c.Timeout,
		MaxRetries: c.MaxRetries,
		SiteURL:    strings.TrimSpace(c.SiteURL),
		SiteName:   strings.TrimSpace(c.SiteName),
	}
}

// ModelFor resolves the model and temperature of a role. Empty role
// overrides and negative temperatures fall back to the defaults.
func (c Config) ModelFor(role Role) openrouterx.Model {
	m := openrouterx.Model{
		Name:        strings.TrimSpace(c.Model),
		Temperature: c.Temperature,
		MaxTokens:   c.MaxCompletionToken,
	}

	var name string
	temp := float32(-1)
	switch role {
	case RoleIntake:
		name, temp = c.IntakeModel, c.IntakeTemp
	case RoleKnowledge:
		name, temp = c.KnowledgeModel, c.KnowledgeTemp
	case RoleDatabase:
		name, temp = c.DatabaseModel, c.DatabaseTemp
	case RoleAggregator:
		name, temp = c.AggregatorModel, c.AggregatorTemp
	}
	if v := strings.TrimSpace(name); v != "" {
		m.Name = v
	}
	if temp >= 0 {
		m.Temperature = temp
	}
	return m
}

// ChatModel creates the chat model serving role.
func (c Config) ChatModel(ctx context.Context, role Role) (model.ToolCallingChatModel, error) {
	cm, err := openrouterx.NewChatModel(ctx, c.Endpoint(), c.ModelFor(role))
	if err != nil {
		return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
	}
	return cm, nil
}

// EmbeddingClient returns the SDK client and model name for the embeddings
// endpoint.
func (c Config) EmbeddingClient() (*openaisdk.Client, string, error) {
	client := openrouterx.NewClient(c.Endpoint())
	if client == nil {
		return nil, "", fmt.Errorf("%w: embedding client needs an api key", contractx.ErrValidation)
	}
	return client, strings.TrimSpace(c.EmbeddingModel), nil
}
