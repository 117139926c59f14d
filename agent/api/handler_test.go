package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tanpawarit/fanout-concierge/agent/session"
)

type fakeReplier struct {
	reply    session.Reply
	err      error
	panics   bool
	sessions []string
	resets   []string
}

func (f *fakeReplier) Reply(ctx context.Context, sessionID, message string) (session.Reply, error) {
	if f.panics {
		panic("boom")
	}
	f.sessions = append(f.sessions, sessionID)
	return f.reply, f.err
}

func (f *fakeReplier) Reset(ctx context.Context, sessionID string) error {
	f.resets = append(f.resets, sessionID)
	return nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChatReturnsReply(t *testing.T) {
	t.Parallel()

	chat := &fakeReplier{reply: session.Reply{Text: "Hello!", Trace: []string{"t1"}}}
	h := NewHandler(chat, false).Routes()

	rec := do(t, h, http.MethodPost, "/v1/chat", `{"session_id":"s1","message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data session.Reply `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Text != "Hello!" || resp.Data.Trace != nil {
		t.Fatalf("unexpected body: %+v", resp.Data)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestChatExposesTraceWhenEnabled(t *testing.T) {
	t.Parallel()

	chat := &fakeReplier{reply: session.Reply{Text: "x", Trace: []string{"t1"}}}
	rec := do(t, NewHandler(chat, true).Routes(), http.MethodPost, "/v1/chat", `{"session_id":"s1","message":"hi"}`)
	if !strings.Contains(rec.Body.String(), `"trace":["t1"]`) {
		t.Fatalf("expected trace in body: %s", rec.Body.String())
	}
}

func TestChatValidatesBody(t *testing.T) {
	t.Parallel()

	h := NewHandler(&fakeReplier{}, false).Routes()
	for _, body := range []string{`not json`, `{"message":"hi"}`, `{"session_id":"s","extra":1}`} {
		rec := do(t, h, http.MethodPost, "/v1/chat", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestChatInternalError(t *testing.T) {
	t.Parallel()

	h := NewHandler(&fakeReplier{err: errors.New("redis down")}, false).Routes()
	rec := do(t, h, http.MethodPost, "/v1/chat", `{"session_id":"s1","message":"hi"}`)
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "redis") {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestChatRecoversPanic(t *testing.T) {
	t.Parallel()

	h := NewHandler(&fakeReplier{panics: true}, false).Routes()
	rec := do(t, h, http.MethodPost, "/v1/chat", `{"session_id":"s1","message":"hi"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestResetAndHealth(t *testing.T) {
	t.Parallel()

	chat := &fakeReplier{}
	h := NewHandler(chat, false).Routes()

	if rec := do(t, h, http.MethodDelete, "/v1/chat/s9", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(chat.resets) != 1 || chat.resets[0] != "s9" {
		t.Fatalf("unexpected resets: %v", chat.resets)
	}
	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", rec.Code)
	}
}
