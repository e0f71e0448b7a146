package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLocalProvider_AvailableWhenReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewLocal(srv.URL, "local-model")
	if !p.Available(context.Background()) {
		t.Fatalf("expected local provider to be available against a reachable server")
	}
}

func TestLocalProvider_UnavailableWhenUnreachable(t *testing.T) {
	// Port 1 is reserved and nothing listens there; the dial will fail fast.
	p := NewLocal("http://127.0.0.1:1", "local-model")
	if p.Available(context.Background()) {
		t.Fatalf("expected local provider to be unavailable when the host can't be reached")
	}
}

func TestLocalProvider_UnavailableWhenUnconfigured(t *testing.T) {
	p := NewLocal("", "local-model")
	if p.Available(context.Background()) {
		t.Fatalf("expected local provider to be unavailable with no base URL configured")
	}
}

func TestOpenAIProvider_AvailableRequiresAPIKey(t *testing.T) {
	withKey := NewOpenAI("sk-test", "gpt-4o-mini", "")
	if !withKey.Available(context.Background()) {
		t.Fatalf("expected hosted provider to be available with an API key set")
	}

	withoutKey := NewOpenAI("", "gpt-4o-mini", "")
	if withoutKey.Available(context.Background()) {
		t.Fatalf("expected hosted provider to be unavailable with no API key")
	}
}
