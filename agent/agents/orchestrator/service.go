package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	catalogx "github.com/tanpawarit/fanout-concierge/agent/catalog"
	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	nodex "github.com/tanpawarit/fanout-concierge/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
	metricsx "github.com/tanpawarit/fanout-concierge/pkg/metrics"
)

type Config struct {
	HistoryLimit    int           `envconfig:"HISTORY_LIMIT" split_words:"true" default:"20"`
	DispatchTimeout time.Duration `envconfig:"DISPATCH_TIMEOUT" split_words:"true" default:"60s"`
	MaxParallel     int           `envconfig:"MAX_PARALLEL" split_words:"true" default:"0"`
	CatalogPath     string        `envconfig:"CATALOG_PATH" split_words:"true"`
}

// Result is what a caller gets back from one run.
type Result struct {
	FinalResponse string   `json:"final_response"`
	Trace         []string `json:"trace"`
}

// Engine runs the classify -> route -> dispatch -> aggregate workflow. It holds
// only read-only collaborators and is safe for concurrent runs.
type Engine struct {
	classifier  contractx.Classifier
	synthesizer contractx.Synthesizer
	catalog     *catalogx.Catalog
	handlers    map[string]contractx.Handler

	historyLimit int
	dispatchOpts nodex.DispatchOptions

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

func New(
	classifier contractx.Classifier,
	synthesizer contractx.Synthesizer,
	catalog *catalogx.Catalog,
	handlers map[string]contractx.Handler,
	cfg Config,
) (*Engine, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if catalog == nil {
		return nil, errors.New("agent catalog is required")
	}
	if missing := catalog.MissingHandlers(handlers); len(missing) > 0 {
		return nil, fmt.Errorf("%w: no handler registered for %s", contractx.ErrValidation, strings.Join(missing, ", "))
	}
	if unknown := catalog.Unknown(handlers); len(unknown) > 0 {
		return nil, fmt.Errorf("%w: handlers not in catalog: %s", contractx.ErrValidation, strings.Join(unknown, ", "))
	}

	registered := make(map[string]contractx.Handler, len(handlers))
	for name, h := range handlers {
		registered[name] = h
	}

	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = statex.DefaultHistoryLimit
	}

	e := &Engine{
		classifier:   classifier,
		synthesizer:  synthesizer,
		catalog:      catalog,
		handlers:     registered,
		historyLimit: historyLimit,
		dispatchOpts: nodex.DispatchOptions{
			Timeout:     cfg.DispatchTimeout,
			MaxParallel: cfg.MaxParallel,
		},
		now:   time.Now,
		newID: uuid.NewString,
	}

	graphRunner, err := e.compileRunGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.graphRunner = graphRunner

	return e, nil
}

// Run handles one inbound message. It never returns an error: failures are
// turned into a reply and recorded in the trace.
func (e *Engine) Run(ctx context.Context, message string, history []contractx.Turn) (res Result) {
	st := statex.NewRequestState(e.newID(), message, history, e.historyLimit, e.now)
	logger := log.With().Str("run_id", st.RunID).Logger()

	defer func() {
		if r := recover(); r != nil {
			st.Tracef("Engine", "internal failure: %v", r)
			logger.Error().Interface("panic", r).Msg("orchestration run panicked")
			metricsx.ObserveRun("failure")
			res = Result{FinalResponse: nodex.ReplyGenericFailure, Trace: st.Trace()}
		}
	}()

	// The graph runs detached from caller cancellation so a cancelled fan-in
	// still reaches the aggregator; classify and dispatch wait on ctx.
	st.BindCaller(ctx)
	out, err := e.graphRunner.Invoke(context.WithoutCancel(ctx), nodex.GraphInput{State: st})
	if err != nil {
		reply, outcome := recoverReply(st, err)
		st.Tracef("Engine", "run aborted: %v", err)
		logger.Warn().Err(err).Str("outcome", outcome).Msg("orchestration run aborted")
		metricsx.ObserveRun(outcome)
		return Result{FinalResponse: reply, Trace: st.Trace()}
	}

	if out.Waiting {
		st.Tracef("Engine", "run ended while results were pending")
		metricsx.ObserveRun("waiting")
		return Result{FinalResponse: "", Trace: st.Trace()}
	}

	outcome := "terminal"
	if len(st.Targets) > 0 {
		outcome = "aggregated"
	}
	metricsx.ObserveRun(outcome)
	logger.Info().Str("outcome", outcome).Int("assignments", len(st.Assignments)).Msg("orchestration run finished")
	return Result{FinalResponse: out.Reply, Trace: st.Trace()}
}

func recoverReply(st *statex.RequestState, err error) (string, string) {
	cause := st.Failure()
	if cause == nil {
		cause = err
	}
	switch {
	case errors.Is(cause, nodex.ErrInvalidMessage):
		return nodex.ReplyEmptyMessage, "invalid"
	case errors.Is(cause, contractx.ErrValidation), errors.Is(cause, contractx.ErrClassification):
		return nodex.ReplyApology, "apology"
	default:
		return nodex.ReplyGenericFailure, "failure"
	}
}
