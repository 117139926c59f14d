package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientSendsAttributionHeaders(t *testing.T) {
	t.Parallel()

	var referer, title string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("HTTP-Referer")
		title = r.Header.Get("X-Title")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ep := Endpoint{SiteURL: " https://example.com ", SiteName: "concierge"}
	resp, err := ep.HTTPClient().Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if referer != "https://example.com" || title != "concierge" {
		t.Fatalf("unexpected headers: referer=%q title=%q", referer, title)
	}
}

func TestEndpointBaseURLDefault(t *testing.T) {
	t.Parallel()

	if got := (Endpoint{}).baseURL(); got != DefaultBaseURL {
		t.Fatalf("baseURL() = %q", got)
	}
	if got := (Endpoint{BaseURL: "http://local/v1/"}).baseURL(); got != "http://local/v1" {
		t.Fatalf("baseURL() = %q", got)
	}
}

func TestNewChatModelRequiresNameAndKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := NewChatModel(ctx, Endpoint{APIKey: "k"}, Model{}); err == nil {
		t.Fatal("expected error without model name")
	}
	if _, err := NewChatModel(ctx, Endpoint{}, Model{Name: "m"}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := NewChatModel(ctx, Endpoint{APIKey: "k"}, Model{Name: "x-ai/grok-4.1-fast", MaxTokens: 100}); err != nil {
		t.Fatalf("NewChatModel() error = %v", err)
	}
}

func TestNewClientNeedsKey(t *testing.T) {
	t.Parallel()

	if NewClient(Endpoint{}) != nil {
		t.Fatal("expected nil client without api key")
	}
	if NewClient(Endpoint{APIKey: "k"}) == nil {
		t.Fatal("expected client")
	}
}
