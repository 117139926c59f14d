package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tanpawarit/fanout-concierge/agent/session"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
)

const maxBodyBytes = 64 << 10

type Replier interface {
	Reply(ctx context.Context, sessionID, message string) (session.Reply, error)
	Reset(ctx context.Context, sessionID string) error
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type Handler struct {
	chat        Replier
	exposeTrace bool
}

func NewHandler(chat Replier, exposeTrace bool) *Handler {
	return &Handler{chat: chat, exposeTrace: exposeTrace}
}

// Routes returns the full HTTP surface including health and metrics.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/chat", h.handleChat)
	mux.HandleFunc("DELETE /v1/chat/{session_id}", h.handleReset)

	return Chain(Recovery(), Logging())(mux)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		BadRequest(w, "session_id is required")
		return
	}

	reply, err := h.chat.Reply(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, statex.ErrInvalidSession) {
			BadRequest(w, err.Error())
			return
		}
		InternalError(w, err)
		return
	}
	if !h.exposeTrace {
		reply.Trace = nil
	}
	Success(w, reply)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.Reset(r.Context(), r.PathValue("session_id")); err != nil {
		InternalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
