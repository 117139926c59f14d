package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	orchestrator "github.com/tanpawarit/fanout-concierge/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
)

// FallbackReply is shown when a run produces no reply of its own.
const FallbackReply = "Sorry, I did not understand your question. Please try again."

type Runner interface {
	Run(ctx context.Context, message string, history []contractx.Turn) orchestrator.Result
}

type Reply struct {
	Text     string   `json:"reply"`
	Fallback bool     `json:"fallback"`
	Trace    []string `json:"trace"`
}

// Service keeps per-session history around engine runs.
type Service struct {
	runner Runner
	store  statex.HistoryStore
	limit  int
}

func NewService(runner Runner, store statex.HistoryStore, limit int) *Service {
	if limit <= 0 {
		limit = statex.DefaultHistoryLimit
	}
	return &Service{runner: runner, store: store, limit: limit}
}

func (s *Service) Reply(ctx context.Context, sessionID, message string) (Reply, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Reply{}, statex.ErrInvalidSession
	}

	history, err := s.store.Load(ctx, sessionID)
	if err != nil && !errors.Is(err, statex.ErrHistoryNotFound) {
		return Reply{}, fmt.Errorf("load history: %w", err)
	}

	res := s.runner.Run(ctx, message, history)

	reply := Reply{Text: res.FinalResponse, Trace: res.Trace}
	if strings.TrimSpace(reply.Text) == "" {
		reply.Text = FallbackReply
		reply.Fallback = true
	}

	next := statex.AppendExchange(history, message, reply.Text, s.limit)
	if err := s.store.Save(context.WithoutCancel(ctx), sessionID, next); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("history not saved")
	}
	return reply, nil
}

func (s *Service) Reset(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}
