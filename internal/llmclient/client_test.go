package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sseServer(t *testing.T, chunks []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("ResponseWriter does not support flushing")
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func TestStreamChatCompletionAccumulatesDeltas(t *testing.T) {
	srv := sseServer(t, []string{
		`{"choices":[{"delta":{"content":"hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
	})
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Model: "test-model"})
	var got strings.Builder
	err := c.StreamChatCompletion(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, func(s string) {
		got.WriteString(s)
	})
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}
	if got.String() != "hello" {
		t.Fatalf("accumulated = %q, want %q", got.String(), "hello")
	}
}

func TestStreamChatCompletionNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"bad key"}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	err := c.StreamChatCompletion(context.Background(), "m", nil, func(string) {})
	if err == nil {
		t.Fatal("StreamChatCompletion() error = nil, want non-nil")
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("LLS_OPENAI_MODEL", "")
	t.Setenv("LLS_OPENAI_BASE_URL", "")
	t.Setenv("LLS_OPENAI_API_KEY", "")
	cfg := ConfigFromEnv()
	if cfg.Model != "gpt-4o-mini" || cfg.BaseURL != "https://api.openai.com" || cfg.APIKey != "" {
		t.Fatalf("ConfigFromEnv() = %+v, want defaults", cfg)
	}
}
