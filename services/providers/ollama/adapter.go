// Package ollama adapts a local or self-hosted Ollama server. No
// credential is required.
package ollama

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/upb/multichat/services/attachments"
	"github.com/upb/multichat/services/providers"
)

const (
	defaultBaseURL     = "http://localhost:11434"
	defaultTemperature = 0.7
)

// OllamaAdapter implements the Provider interface for Ollama's /api/chat
type OllamaAdapter struct {
	config providers.ProviderConfig
	client *providers.HTTPClient
}

// NewOllamaAdapter creates a new Ollama adapter
func NewOllamaAdapter(config providers.ProviderConfig) *OllamaAdapter {
	return &OllamaAdapter{
		config: config,
		client: providers.NewHTTPClient(config),
	}
}

// Name returns the provider name
func (a *OllamaAdapter) Name() string {
	return "ollama"
}

// Label returns the display name used in error text
func (a *OllamaAdapter) Label() string {
	return "Ollama"
}

// ChatCompletion performs a non-streaming chat request
func (a *OllamaAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	ollamaReq := a.buildOllamaRequest(req)
	url := providers.ResolveBaseURL(req.Endpoint, a.config.BaseURL, defaultBaseURL) + "/api/chat"

	raw, err := a.client.PostJSON(ctx, url, nil, ollamaReq)
	if err != nil {
		return nil, providers.NewTransportError(a.Name(), err)
	}

	if !raw.OK() {
		return nil, a.handleErrorResponse(raw.StatusCode, raw.Body)
	}

	var ollamaResp OllamaChatResponse
	if err := json.Unmarshal(raw.Body, &ollamaResp); err != nil {
		return nil, providers.NewParseError(a.Name(), err)
	}

	return &providers.ChatResponse{
		Content:      ollamaResp.Message.Content,
		Model:        req.Model,
		Usage:        &providers.Usage{TotalTokens: ollamaResp.TotalTokens},
		FinishReason: ollamaResp.DoneReason,
	}, nil
}

// buildOllamaRequest keeps assistant and system roles and maps anything else to user
func (a *OllamaAdapter) buildOllamaRequest(req *providers.ChatRequest) *OllamaChatRequest {
	msgs := attachments.ForRequest(req)

	ollamaReq := &OllamaChatRequest{
		Model:    req.Model,
		Messages: make([]OllamaMessage, 0, len(msgs)+1),
		Stream:   false,
		Options: OllamaOptions{
			Temperature: req.ModelConfig.TemperatureOr(defaultTemperature),
			NumPredict:  req.ModelConfig.MaxTokens,
		},
	}

	if req.PersonaDescription != "" {
		ollamaReq.Messages = append(ollamaReq.Messages, OllamaMessage{
			Role:    providers.RoleSystem,
			Content: req.PersonaDescription,
		})
	}

	for _, msg := range msgs {
		role := providers.RoleUser
		switch msg.Role {
		case providers.RoleAssistant, providers.RoleSystem:
			role = msg.Role
		}
		ollamaReq.Messages = append(ollamaReq.Messages, OllamaMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	return ollamaReq
}

func (a *OllamaAdapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp OllamaErrorResponse
	detail := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		detail = errResp.Error
	}
	return providers.NewStatusError(a.Name(), a.Label(), statusCode, strings.TrimSpace(detail))
}

// Ollama-specific request/response types

type OllamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []OllamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  OllamaOptions   `json:"options"`
}

type OllamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OllamaOptions carries sampling options; num_predict is only sent when
// the model config sets max_tokens
type OllamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type OllamaChatResponse struct {
	Model       string        `json:"model"`
	Message     OllamaMessage `json:"message"`
	Done        bool          `json:"done"`
	DoneReason  string        `json:"done_reason"`
	TotalTokens int           `json:"total_tokens"`
}

type OllamaErrorResponse struct {
	Error string `json:"error"`
}
