package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/upb/multichat/services/providers"
)

// capture records every request body the fake upstream receives
type capture struct {
	hits   int32
	bodies []string
	auth   string
	path   string
}

func newTestServer(t *testing.T, c *capture, status int, reply string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&c.hits, 1)
		body, _ := io.ReadAll(r.Body)
		c.bodies = append(c.bodies, string(body))
		c.auth = r.Header.Get("Authorization")
		c.path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return server
}

const okReply = `{
	"id": "chatcmpl-123",
	"model": "gpt-4o",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "4"}, "finish_reason": "length"}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 1, "total_tokens": 13}
}`

func TestNewOpenAIAdapter(t *testing.T) {
	adapter := NewOpenAIAdapter(providers.ProviderConfig{})

	if adapter.Name() != "openai" {
		t.Errorf("Name() = %s, want openai", adapter.Name())
	}
	if adapter.Label() != "OpenAI" {
		t.Errorf("Label() = %s, want OpenAI", adapter.Label())
	}
	if adapter.opts.DefaultMaxTokens != 2048 {
		t.Errorf("DefaultMaxTokens = %d, want 2048", adapter.opts.DefaultMaxTokens)
	}
}

func TestOpenAIAdapter_MissingCredential(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	c := &capture{}
	server := newTestServer(t, c, http.StatusOK, okReply)

	adapter := NewOpenAIAdapter(providers.ProviderConfig{})
	_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Endpoint: server.URL,
		Model:    "gpt-4o",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})

	if err == nil {
		t.Fatal("Expected error but got none")
	}
	if err.Error() != "Error: OPENAI_API_KEY not found in environment variables" {
		t.Errorf("error = %q", err.Error())
	}
	if !providers.IsCredentialError(err) {
		t.Errorf("expected credential error, got kind %q", providers.KindOf(err))
	}
	if atomic.LoadInt32(&c.hits) != 0 {
		t.Errorf("upstream was called %d times, want 0", c.hits)
	}
}

func TestOpenAIAdapter_ChatCompletion(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	c := &capture{}
	server := newTestServer(t, c, http.StatusOK, okReply)

	adapter := NewOpenAIAdapter(providers.ProviderConfig{Timeout: 5 * time.Second})
	resp, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Endpoint:           server.URL + "/",
		Model:              "gpt-4o",
		Messages:           []providers.Message{{Role: "user", Content: "2+2?"}},
		PersonaDescription: "Be concise.",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if c.path != "/chat/completions" {
		t.Errorf("path = %s, want /chat/completions", c.path)
	}
	if c.auth != "Bearer sk-test" {
		t.Errorf("Authorization = %s", c.auth)
	}

	var sent OpenAIChatRequest
	if err := json.Unmarshal([]byte(c.bodies[0]), &sent); err != nil {
		t.Fatalf("failed to decode request body: %v", err)
	}

	want := []OpenAIMessage{
		{Role: "system", Content: "Be concise."},
		{Role: "user", Content: "2+2?"},
	}
	if len(sent.Messages) != len(want) {
		t.Fatalf("sent %d messages, want %d", len(sent.Messages), len(want))
	}
	for i := range want {
		if sent.Messages[i] != want[i] {
			t.Errorf("message[%d] = %+v, want %+v", i, sent.Messages[i], want[i])
		}
	}
	if sent.MaxTokens != 2048 {
		t.Errorf("max_tokens = %d, want 2048", sent.MaxTokens)
	}
	if sent.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", sent.Temperature)
	}

	if resp.Content != "4" {
		t.Errorf("Content = %s, want 4", resp.Content)
	}
	if resp.FinishReason != "length" {
		t.Errorf("FinishReason = %s, want length", resp.FinishReason)
	}
	if resp.Usage == nil || resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 1 || resp.Usage.TotalTokens != 13 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
}

func TestOpenAIAdapter_ModelConfigOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	c := &capture{}
	server := newTestServer(t, c, http.StatusOK, `{"choices": []}`)

	temp := 0.2
	adapter := NewOpenAIAdapter(providers.ProviderConfig{})
	resp, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Endpoint:    server.URL,
		Model:       "gpt-4o",
		Messages:    []providers.Message{{Role: "user", Content: "hi"}},
		ModelConfig: providers.ModelConfig{ID: "gpt-4o", MaxTokens: 512, Temperature: &temp},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var sent OpenAIChatRequest
	_ = json.Unmarshal([]byte(c.bodies[0]), &sent)
	if sent.MaxTokens != 512 || sent.Temperature != 0.2 {
		t.Errorf("sent max_tokens=%d temperature=%v", sent.MaxTokens, sent.Temperature)
	}
	if len(sent.Messages) != 1 {
		t.Errorf("expected no system message, got %d messages", len(sent.Messages))
	}

	// Missing fields degrade to empty values
	if resp.Content != "" || resp.FinishReason != "stop" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOpenAIAdapter_ErrorResponses(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		kind    providers.ErrorKind
	}{
		{
			name:    "500 without body",
			status:  http.StatusInternalServerError,
			body:    "",
			wantMsg: "Error: OpenAI API returned status code 500",
			kind:    providers.KindTransport,
		},
		{
			name:    "401 with error object",
			status:  http.StatusUnauthorized,
			body:    `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key"}}`,
			wantMsg: "Error: OpenAI API returned status code 401 - Incorrect API key provided",
			kind:    providers.KindTransport,
		},
		{
			name:    "429 with string error",
			status:  http.StatusTooManyRequests,
			body:    `{"error": "slow down"}`,
			wantMsg: "Error: OpenAI API returned status code 429 - slow down",
			kind:    providers.KindTransport,
		},
		{
			name:    "malformed success body",
			status:  http.StatusOK,
			body:    `{"choices": [`,
			wantMsg: "Error: failed to parse response",
			kind:    providers.KindParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &capture{}
			server := newTestServer(t, c, tt.status, tt.body)

			adapter := NewOpenAIAdapter(providers.ProviderConfig{})
			_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
				Endpoint: server.URL,
				Model:    "gpt-4o",
				Messages: []providers.Message{{Role: "user", Content: "hi"}},
			})

			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.HasPrefix(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want prefix %q", err.Error(), tt.wantMsg)
			}
			if providers.KindOf(err) != tt.kind {
				t.Errorf("kind = %q, want %q", providers.KindOf(err), tt.kind)
			}
		})
	}
}

func TestOpenAIAdapter_TransportError(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	adapter := NewOpenAIAdapter(providers.ProviderConfig{})
	_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Endpoint: url,
		Model:    "gpt-4o",
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
	})

	if !providers.IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "Error: ") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestOpenAIAdapter_AttachmentsInlinedOnce(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	c := &capture{}
	server := newTestServer(t, c, http.StatusOK, okReply)

	att := providers.Attachment{
		Filename: "main.go", Extension: ".go", IsText: true,
		Content: "package main // MARKER-42", Status: providers.AttachmentOK,
	}

	adapter := NewOpenAIAdapter(providers.ProviderConfig{})
	_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Endpoint:    server.URL,
		Model:       "gpt-4o",
		Messages:    []providers.Message{{Role: "user", Content: "review this"}},
		Attachments: []providers.Attachment{att},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if n := strings.Count(c.bodies[0], "MARKER-42"); n != 1 {
		t.Errorf("attachment content appears %d times, want 1", n)
	}
}

func TestNewCompatibleAdapter(t *testing.T) {
	t.Setenv("ACME_API_KEY", "")

	adapter := NewCompatibleAdapter(Options{Name: "acme", Label: "Acme", APIKeyEnv: "ACME_API_KEY"}, providers.ProviderConfig{})

	if adapter.opts.DefaultMaxTokens != 2048 {
		t.Errorf("DefaultMaxTokens = %d, want 2048", adapter.opts.DefaultMaxTokens)
	}

	_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{Model: "m"})
	if err == nil || err.Error() != "Error: ACME_API_KEY not found in environment variables" {
		t.Errorf("error = %v", err)
	}
}
