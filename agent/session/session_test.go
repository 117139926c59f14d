package session

import (
	"context"
	"errors"
	"testing"

	orchestrator "github.com/tanpawarit/fanout-concierge/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
	statex "github.com/tanpawarit/fanout-concierge/agent/state"
)

type fakeRunner struct {
	replies []string
	seen    [][]contractx.Turn
}

func (f *fakeRunner) Run(ctx context.Context, message string, history []contractx.Turn) orchestrator.Result {
	f.seen = append(f.seen, append([]contractx.Turn(nil), history...))
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return orchestrator.Result{FinalResponse: reply, Trace: []string{"trace:" + message}}
}

func TestReplyPersistsHistory(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{replies: []string{"Hello!", "We open at 8."}}
	store := statex.NewMemoryStore(0)
	svc := NewService(runner, store, 0)

	if _, err := svc.Reply(context.Background(), "s1", "hi"); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	got, err := svc.Reply(context.Background(), "s1", "when do you open?")
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if got.Text != "We open at 8." || got.Fallback {
		t.Fatalf("unexpected reply: %+v", got)
	}

	if len(runner.seen[1]) != 2 || runner.seen[1][0].Content != "hi" || runner.seen[1][1].Content != "Hello!" {
		t.Fatalf("unexpected history on second run: %+v", runner.seen[1])
	}

	history, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 || history[3].Role != contractx.RoleAssistant {
		t.Fatalf("unexpected stored history: %+v", history)
	}
}

func TestReplyEmptyUsesFallback(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeRunner{replies: []string{"  "}}, statex.NewMemoryStore(0), 0)
	got, err := svc.Reply(context.Background(), "s1", "???")
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if got.Text != FallbackReply || !got.Fallback {
		t.Fatalf("unexpected reply: %+v", got)
	}
}

func TestReplyCapsHistory(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{replies: []string{"a", "b", "c"}}
	store := statex.NewMemoryStore(0)
	svc := NewService(runner, store, 4)
	for _, msg := range []string{"1", "2", "3"} {
		if _, err := svc.Reply(context.Background(), "s1", msg); err != nil {
			t.Fatal(err)
		}
	}

	history, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 || history[0].Content != "2" {
		t.Fatalf("unexpected capped history: %+v", history)
	}
}

func TestReplyRequiresSession(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeRunner{}, statex.NewMemoryStore(0), 0)
	if _, err := svc.Reply(context.Background(), " ", "hi"); !errors.Is(err, statex.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

type ctxStore struct {
	*statex.MemoryStore
}

func (s ctxStore) Save(ctx context.Context, sessionID string, history []contractx.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.Save(ctx, sessionID, history)
}

func TestReplySavesAfterCallerCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := ctxStore{statex.NewMemoryStore(0)}
	svc := NewService(&fakeRunner{replies: []string{"partial answer"}}, store, 0)
	if _, err := svc.Reply(ctx, "s1", "hi"); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}

	history, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(history) != 2 || history[1].Content != "partial answer" {
		t.Fatalf("unexpected stored history: %+v", history)
	}
}
