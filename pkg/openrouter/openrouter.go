// Package openrouter builds model clients for OpenRouter or any
// OpenAI-compatible endpoint.
package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Models that reject reasoning output unless it is explicitly excluded.
var reasoningExcluded = map[string]bool{
	"x-ai/grok-4.1-fast": true,
}

// Endpoint is the connection every model of a process shares.
type Endpoint struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	// SiteURL and SiteName are sent as OpenRouter attribution headers.
	SiteURL  string
	SiteName string
}

// Model selects one model served by an Endpoint.
type Model struct {
	Name        string
	Temperature float32
	MaxTokens   int
}

func (ep Endpoint) baseURL() string {
	if v := strings.TrimRight(strings.TrimSpace(ep.BaseURL), "/"); v != "" {
		return v
	}
	return DefaultBaseURL
}

func (ep Endpoint) headers() map[string]string {
	h := map[string]string{}
	if v := strings.TrimSpace(ep.SiteURL); v != "" {
		h["HTTP-Referer"] = v
	}
	if v := strings.TrimSpace(ep.SiteName); v != "" {
		h["X-Title"] = v
	}
	return h
}

// HTTPClient returns the client both the chat models and the SDK client send
// through. It carries the attribution headers and the endpoint timeout.
func (ep Endpoint) HTTPClient() *http.Client {
	var transport http.RoundTripper = http.DefaultTransport
	if h := ep.headers(); len(h) > 0 {
		transport = &headerTransport{base: transport, headers: h}
	}
	return &http.Client{Timeout: ep.Timeout, Transport: transport}
}

// NewChatModel creates the eino chat model for m.
func NewChatModel(ctx context.Context, ep Endpoint, m Model) (model.ToolCallingChatModel, error) {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return nil, fmt.Errorf("openrouter: model name is required")
	}
	if strings.TrimSpace(ep.APIKey) == "" {
		return nil, fmt.Errorf("openrouter: api key is required for %s", name)
	}

	temperature := m.Temperature
	conf := &openaimodel.ChatModelConfig{
		BaseURL:     ep.baseURL(),
		APIKey:      strings.TrimSpace(ep.APIKey),
		Model:       name,
		Temperature: &temperature,
		Timeout:     ep.Timeout,
		HTTPClient:  ep.HTTPClient(),
	}
	if m.MaxTokens > 0 {
		maxTokens := m.MaxTokens
		conf.MaxTokens = &maxTokens
	}
	if reasoningExcluded[name] {
		conf.ExtraFields = map[string]any{
			"reasoning": map[string]any{"exclude": true, "effort": "none"},
		}
	}

	cm, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create chat model %s: %w", name, err)
	}
	return cm, nil
}

// NewClient creates an OpenAI SDK client for the non-chat endpoints, such as
// embeddings. It returns nil without an API key.
func NewClient(ep Endpoint) *openaisdk.Client {
	key := strings.TrimSpace(ep.APIKey)
	if key == "" {
		return nil
	}

	client := openaisdk.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(ep.baseURL()),
		option.WithHTTPClient(ep.HTTPClient()),
		option.WithMaxRetries(ep.MaxRetries),
	)
	return &client
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
