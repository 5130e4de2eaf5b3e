package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newFakeOpenAI(t *testing.T, handler func(w http.ResponseWriter, req chatRequest)) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		handler(w, req)
	}))
	t.Cleanup(server.Close)
	return server
}

func writeChoice(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	body, _ := json.Marshal(content)
	fmt.Fprintf(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, body)
}

func newTestCompleter(t *testing.T, server *httptest.Server, key string) *OpenAICompleter {
	t.Helper()

	c, err := NewOpenAICompleter(key, server.URL+"/v1/", "", nil, log.New(io.Discard))
	if err != nil {
		t.Fatalf("failed to create completer: %v", err)
	}
	return c
}

func TestOpenAICompleter(t *testing.T) {
	t.Run("MissingKey", func(t *testing.T) {
		if _, err := NewOpenAICompleter("", "", "", nil, nil); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Complete", func(t *testing.T) {
		var got chatRequest
		server := newFakeOpenAI(t, func(w http.ResponseWriter, req chatRequest) {
			got = req
			writeChoice(w, "hello")
		})
		c := newTestCompleter(t, server, "test-key")

		content, err := c.Complete(context.Background(), "be brief", "say hi", 0.7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if content != "hello" {
			t.Errorf("expected 'hello', got %q", content)
		}

		if got.Model != DefaultModel {
			t.Errorf("expected model %s, got %s", DefaultModel, got.Model)
		}
		if got.Temperature != 0.7 {
			t.Errorf("expected temperature 0.7, got %v", got.Temperature)
		}
		if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "say hi" {
			t.Errorf("unexpected messages: %+v", got.Messages)
		}
	})

	t.Run("EmptyContent", func(t *testing.T) {
		server := newFakeOpenAI(t, func(w http.ResponseWriter, req chatRequest) {
			writeChoice(w, "  ")
		})
		c := newTestCompleter(t, server, "test-key")

		if _, err := c.Complete(context.Background(), "s", "u", 0.6); !errors.Is(err, shared.ErrUpstreamFormat) {
			t.Errorf("expected ErrUpstreamFormat, got %v", err)
		}
	})

	t.Run("NoChoices", func(t *testing.T) {
		server := newFakeOpenAI(t, func(w http.ResponseWriter, req chatRequest) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4","choices":[]}`)
		})
		c := newTestCompleter(t, server, "test-key")

		if _, err := c.Complete(context.Background(), "s", "u", 0.6); !errors.Is(err, shared.ErrUpstreamFormat) {
			t.Errorf("expected ErrUpstreamFormat, got %v", err)
		}
	})

	t.Run("APIError", func(t *testing.T) {
		server := newFakeOpenAI(t, nil)
		c := newTestCompleter(t, server, "wrong-key")

		_, err := c.Complete(context.Background(), "s", "u", 0.6)
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		server := newFakeOpenAI(t, nil)
		c := newTestCompleter(t, server, "test-key")
		server.Close()

		_, err := c.Complete(context.Background(), "s", "u", 0.6)
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})
}
