package orchestratornode

import (
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
)

var ErrInvalidMessage = errors.New("message is empty")

// Replies used when a run cannot produce an answer of its own.
const (
	ReplyApology        = "Sorry, I could not understand your request. Could you rephrase it?"
	ReplyGenericFailure = "Sorry, something went wrong while preparing your answer. Please try again."
	ReplyEmptyMessage   = "Please type a message."
)

type GraphInput struct {
	State *statex.RequestState
}

type GraphOutput struct {
	Reply   string
	Waiting bool
}

func ValidateRequest(in GraphInput) (*statex.RequestState, error) {
	if in.State == nil {
		return nil, fmt.Errorf("%w: request state is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(in.State.Message) == "" {
		return nil, in.State.Fail(ErrInvalidMessage)
	}
	in.State.Tracef("Request", "run=%s input=%q history=%d", in.State.RunID, in.State.Message, len(in.State.History))
	return in.State, nil
}
