package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
	metricsx "github.com/tanpawarit/fanout-concierge/pkg/metrics"
)

const maxDiagnosticRunes = 200

// DispatchOptions bounds one fan-out.
type DispatchOptions struct {
	// Timeout caps the fan-in wait; zero means only the caller context applies.
	Timeout time.Duration
	// MaxParallel limits concurrent handler calls; zero runs one task per assignment.
	MaxParallel int
}

type dispatchJob struct {
	index      int
	assignment contractx.Assignment
	handler    contractx.Handler
}

type handlerReport struct {
	index   int
	result  string
	err     error
	elapsed time.Duration
}

// Dispatch invokes the handler of every assignment concurrently and returns
// once each assignment carries a result or an error marker.
func Dispatch(
	ctx context.Context,
	in *statex.RequestState,
	handlers map[string]contractx.Handler,
	opts DispatchOptions,
) (*statex.RequestState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: request state is nil", contractx.ErrValidation)
	}
	in.Stage = statex.StageDispatching

	fanOut(ctx, in, handlers, opts)

	in.Stage = statex.StageAggregating
	return in, nil
}

func fanOut(
	ctx context.Context,
	in *statex.RequestState,
	handlers map[string]contractx.Handler,
	opts DispatchOptions,
) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	set := in.Assignments
	outstanding := make(map[int]struct{}, len(set))
	jobs := make([]dispatchJob, 0, len(set))
	for i := range set {
		if set[i].HasResult() {
			continue
		}
		outstanding[i] = struct{}{}
		jobs = append(jobs, dispatchJob{index: i, assignment: set[i], handler: handlers[set[i].Agent]})
	}
	if len(jobs) == 0 {
		return
	}

	// Buffered so abandoned tasks can still report and exit.
	reports := make(chan handlerReport, len(outstanding))

	p := pool.New()
	if opts.MaxParallel > 0 {
		p = p.WithMaxGoroutines(opts.MaxParallel)
	}
	go func() {
		for _, job := range jobs {
			p.Go(func() {
				reports <- invokeHandler(ctx, job.index, job.assignment, job.handler)
			})
		}
		p.Wait()
	}()

	for len(outstanding) > 0 {
		select {
		case r := <-reports:
			delete(outstanding, r.index)
			recordReport(in, r)
		case <-ctx.Done():
			for i := range set {
				if _, ok := outstanding[i]; !ok {
					continue
				}
				agent := set[i].Agent
				marker := errorMarker(agent, fmt.Errorf("handler call abandoned: %w", ctx.Err()))
				set[i].Result = &marker
				in.Tracef("Dispatcher", "agent=%s index=%d abandoned: %v", agent, i, ctx.Err())
				metricsx.ObserveHandler(agent, metricsx.StatusAbandoned, 0)
				log.Warn().Str("run_id", in.RunID).Str("agent", agent).Int("index", i).Err(ctx.Err()).Msg("handler call abandoned")
			}
			return
		}
	}
}

func invokeHandler(ctx context.Context, index int, a contractx.Assignment, h contractx.Handler) handlerReport {
	started := time.Now()
	r := handlerReport{index: index}

	switch {
	case h == nil:
		r.err = fmt.Errorf("no handler registered")
	case ctx.Err() != nil:
		r.err = ctx.Err()
	default:
		var catcher panics.Catcher
		catcher.Try(func() {
			r.result, r.err = h.Handle(ctx, a.Command)
		})
		if rec := catcher.Recovered(); rec != nil {
			r.result = ""
			r.err = fmt.Errorf("handler panic: %v", rec.Value)
		}
	}
	if r.err != nil {
		r.err = &contractx.HandlerError{Agent: a.Agent, Err: r.err}
	}
	r.elapsed = time.Since(started)
	return r
}

func recordReport(in *statex.RequestState, r handlerReport) {
	a := &in.Assignments[r.index]
	if r.err != nil {
		cause := r.err
		var herr *contractx.HandlerError
		if errors.As(r.err, &herr) {
			cause = herr.Err
		}
		marker := errorMarker(a.Agent, cause)
		a.Result = &marker
		in.Tracef("Dispatcher", "agent=%s index=%d failed in %s: %v", a.Agent, r.index, r.elapsed.Round(time.Millisecond), r.err)
		metricsx.ObserveHandler(a.Agent, metricsx.StatusError, r.elapsed)
		log.Warn().Str("run_id", in.RunID).Str("agent", a.Agent).Int("index", r.index).Err(r.err).Msg("handler failed")
		return
	}

	result := r.result
	a.Result = &result
	in.Tracef("Dispatcher", "agent=%s index=%d done in %s", a.Agent, r.index, r.elapsed.Round(time.Millisecond))
	metricsx.ObserveHandler(a.Agent, metricsx.StatusOK, r.elapsed)
	log.Debug().Str("run_id", in.RunID).Str("agent", a.Agent).Int("index", r.index).Dur("elapsed", r.elapsed).Msg("handler done")
}

// errorMarker is the short diagnostic stored in place of a failed result.
func errorMarker(agent string, err error) string {
	msg := "unknown error"
	if err != nil {
		msg = strings.Join(strings.Fields(err.Error()), " ")
	}
	if utf8.RuneCountInString(msg) > maxDiagnosticRunes {
		msg = string([]rune(msg)[:maxDiagnosticRunes]) + "..."
	}
	return fmt.Sprintf("[error] %s: %s", agent, msg)
}

// IsErrorMarker reports whether a result was synthesized by the dispatcher.
func IsErrorMarker(result string) bool {
	return strings.HasPrefix(result, "[error] ")
}
