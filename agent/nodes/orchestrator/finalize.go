package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
)

func FinalizeReply(in *statex.RequestState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: request state is nil", contractx.ErrValidation)
	}

	reply, done := in.FinalResponse()
	if !done {
		return GraphOutput{Waiting: true}, nil
	}
	return GraphOutput{Reply: reply}, nil
}
