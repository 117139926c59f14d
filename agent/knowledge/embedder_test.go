package knowledge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	openrouterx "github.com/tanpawarit/fanout-concierge/pkg/openrouter"
)

func TestOpenAIEmbedderOrdersByIndex(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	var gotTitle string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		gotTitle = r.Header.Get("X-Title")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"object": "list",
			"model": "embed-model",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0, 1]},
				{"object": "embedding", "index": 0, "embedding": [1, 0]}
			],
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`)
	}))
	defer srv.Close()

	client := openrouterx.NewClient(openrouterx.Endpoint{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		SiteName: "concierge",
	})
	if client == nil {
		t.Fatal("expected client")
	}

	embedder, err := NewOpenAIEmbedder(client, "embed-model")
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder() error = %v", err)
	}

	vectors, err := embedder.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
	if gotBody["model"] != "embed-model" {
		t.Fatalf("unexpected request model: %v", gotBody["model"])
	}
	if gotTitle != "concierge" {
		t.Fatalf("expected X-Title header, got %q", gotTitle)
	}
}

func TestNewOpenAIEmbedderRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := NewOpenAIEmbedder(nil, "m"); err == nil {
		t.Fatal("expected error for nil client")
	}
	if openrouterx.NewClient(openrouterx.Endpoint{}) != nil {
		t.Fatal("expected nil client without api key")
	}
}
