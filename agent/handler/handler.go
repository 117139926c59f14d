package handler

import (
	"context"
	"errors"

	knowledgex "github.com/tanpawarit/fanout-concierge/agent/knowledge"
)

// ErrCannotAnswer is returned when a handler decides the request is outside
// what its data can answer.
var ErrCannotAnswer = errors.New("cannot answer this request with the available data")

// Completer is the model call a handler makes. specialist.Prompter
// implements it.
type Completer interface {
	Complete(ctx context.Context, vars map[string]any, input string) (string, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]knowledgex.ScoredChunk, error)
}
