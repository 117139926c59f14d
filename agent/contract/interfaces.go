package contract

import "context"

type Classifier interface {
	Classify(ctx context.Context, message string, history []Turn) (AssignmentSet, error)
}

type Handler interface {
	Handle(ctx context.Context, command string) (string, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, command string) (string, error)

func (f HandlerFunc) Handle(ctx context.Context, command string) (string, error) {
	return f(ctx, command)
}

type Synthesizer interface {
	Summarize(ctx context.Context, req SynthesisRequest) (string, error)
}
