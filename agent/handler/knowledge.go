package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
)

const noContext = "(no relevant passages found)"

type KnowledgeHandler struct {
	retriever Retriever
	completer Completer
}

var _ contractx.Handler = (*KnowledgeHandler)(nil)

func NewKnowledgeHandler(retriever Retriever, completer Completer) (*KnowledgeHandler, error) {
	if retriever == nil || completer == nil {
		return nil, errors.New("knowledge handler requires a retriever and a completer")
	}
	return &KnowledgeHandler{retriever: retriever, completer: completer}, nil
}

// Handle answers command from the retrieved passages only.
func (h *KnowledgeHandler) Handle(ctx context.Context, command string) (string, error) {
	chunks, err := h.retriever.Retrieve(ctx, command)
	if err != nil {
		return "", fmt.Errorf("retrieve passages: %w", err)
	}

	passages := make([]string, 0, len(chunks))
	for _, c := range chunks {
		passages = append(passages, fmt.Sprintf("[%s#%d]\n%s", c.Source, c.Seq, strings.TrimSpace(c.Content)))
	}
	contextText := noContext
	if len(passages) > 0 {
		contextText = strings.Join(passages, "\n\n---\n\n")
	}
	log.Debug().Int("passages", len(passages)).Msg("knowledge context assembled")

	answer, err := h.completer.Complete(ctx, map[string]any{"context": contextText}, command)
	if err != nil {
		return "", err
	}
	return answer, nil
}
