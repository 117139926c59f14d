package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/fanout-concierge/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
)

const (
	nodeValidate  = "validate_request"
	nodeClassify  = "classify"
	nodeRoute     = "route"
	nodeFinish    = "finish"
	nodeDispatch  = "dispatch"
	nodeAggregate = "aggregate"
)

func (e *Engine) compileRunGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodeValidate,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*statex.RequestState, error) {
			return nodex.ValidateRequest(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidate, err)
	}

	if err := graph.AddLambdaNode(nodeClassify,
		compose.InvokableLambda(func(ctx context.Context, in *statex.RequestState) (*statex.RequestState, error) {
			return nodex.Classify(in.CallerContext(ctx), in, e.classifier, e.catalog)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeClassify, err)
	}

	if err := graph.AddLambdaNode(nodeRoute,
		compose.InvokableLambda(func(ctx context.Context, in *statex.RequestState) (*statex.RequestState, error) {
			return nodex.Route(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeRoute, err)
	}

	if err := graph.AddLambdaNode(nodeFinish,
		compose.InvokableLambda(func(ctx context.Context, in *statex.RequestState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeFinish, err)
	}

	if err := graph.AddLambdaNode(nodeDispatch,
		compose.InvokableLambda(func(ctx context.Context, in *statex.RequestState) (*statex.RequestState, error) {
			return nodex.Dispatch(in.CallerContext(ctx), in, e.handlers, e.dispatchOpts)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeDispatch, err)
	}

	if err := graph.AddLambdaNode(nodeAggregate,
		compose.InvokableLambda(func(ctx context.Context, in *statex.RequestState) (nodex.GraphOutput, error) {
			st, err := nodex.Aggregate(ctx, in, e.synthesizer, e.catalog)
			if err != nil {
				return nodex.GraphOutput{}, err
			}
			return nodex.FinalizeReply(st)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeAggregate, err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *statex.RequestState) (string, error) {
			if in != nil && in.Stage == statex.StageDispatching {
				return nodeDispatch, nil
			}
			return nodeFinish, nil
		},
		map[string]bool{
			nodeFinish:   true,
			nodeDispatch: true,
		},
	)
	if err := graph.AddBranch(nodeRoute, branch); err != nil {
		return nil, fmt.Errorf("add route branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodeValidate},
		{nodeValidate, nodeClassify},
		{nodeClassify, nodeRoute},
		{nodeFinish, compose.END},
		{nodeDispatch, nodeAggregate},
		{nodeAggregate, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.run"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
