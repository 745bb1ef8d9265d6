// Package anthropic adapts the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/upb/multichat/services/attachments"
	"github.com/upb/multichat/services/providers"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultMaxTokens = 4096
	apiKeyEnv        = "ANTHROPIC_API_KEY"
	apiVersion       = "2023-06-01"
)

// AnthropicAdapter implements the Provider interface for Anthropic
type AnthropicAdapter struct {
	config providers.ProviderConfig
	client *providers.HTTPClient
}

// NewAnthropicAdapter creates a new Anthropic adapter
func NewAnthropicAdapter(config providers.ProviderConfig) *AnthropicAdapter {
	return &AnthropicAdapter{
		config: config,
		client: providers.NewHTTPClient(config),
	}
}

// Name returns the provider name
func (a *AnthropicAdapter) Name() string {
	return "anthropic"
}

// Label returns the display name used in error text
func (a *AnthropicAdapter) Label() string {
	return "Anthropic"
}

// ChatCompletion performs a Messages API request. The persona goes into
// the top-level system field, which the API places before every turn.
func (a *AnthropicAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, providers.NewCredentialError(a.Name(), apiKeyEnv)
	}

	anthropicReq := a.buildAnthropicRequest(req)

	raw, err := a.client.PostJSON(ctx, a.messagesURL(req.Endpoint), map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": apiVersion,
	}, anthropicReq)
	if err != nil {
		return nil, providers.NewTransportError(a.Name(), err)
	}

	if !raw.OK() {
		return nil, a.handleErrorResponse(raw.StatusCode, raw.Body)
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(raw.Body, &anthropicResp); err != nil {
		return nil, providers.NewParseError(a.Name(), err)
	}

	return a.convertToUnifiedResponse(&anthropicResp, req), nil
}

func (a *AnthropicAdapter) messagesURL(endpoint string) string {
	base := providers.ResolveBaseURL(endpoint, a.config.BaseURL, defaultBaseURL)
	if strings.HasSuffix(base, "/v1") {
		return base + "/messages"
	}
	return base + "/v1/messages"
}

// buildAnthropicRequest maps assistant turns to assistant and everything else to user
func (a *AnthropicAdapter) buildAnthropicRequest(req *providers.ChatRequest) *AnthropicRequest {
	msgs := attachments.ForRequest(req)

	anthropicReq := &AnthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.ModelConfig.MaxTokensOr(defaultMaxTokens),
		System:      req.PersonaDescription,
		Messages:    make([]AnthropicMessage, 0, len(msgs)),
		Temperature: req.ModelConfig.Temperature,
	}

	for _, msg := range msgs {
		role := providers.RoleUser
		if msg.Role == providers.RoleAssistant {
			role = providers.RoleAssistant
		}
		anthropicReq.Messages = append(anthropicReq.Messages, AnthropicMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	return anthropicReq
}

func (a *AnthropicAdapter) convertToUnifiedResponse(anthropicResp *AnthropicResponse, req *providers.ChatRequest) *providers.ChatResponse {
	resp := &providers.ChatResponse{
		Model: req.Model,
		Usage: &providers.Usage{
			InputTokens:  anthropicResp.Usage.InputTokens,
			OutputTokens: anthropicResp.Usage.OutputTokens,
			TotalTokens:  anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens,
		},
		FinishReason: anthropicResp.StopReason,
	}

	if len(anthropicResp.Content) > 0 {
		resp.Content = anthropicResp.Content[0].Text
	}

	return resp
}

func (a *AnthropicAdapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp AnthropicErrorResponse
	detail := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		detail = errResp.Error.Message
	}
	return providers.NewStatusError(a.Name(), a.Label(), statusCode, strings.TrimSpace(detail))
}

// Anthropic-specific request/response types

type AnthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []AnthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AnthropicResponse struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Role       string                 `json:"role"`
	Model      string                 `json:"model"`
	Content    []AnthropicContentPart `json:"content"`
	StopReason string                 `json:"stop_reason"`
	Usage      AnthropicUsage         `json:"usage"`
}

type AnthropicContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type AnthropicErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
