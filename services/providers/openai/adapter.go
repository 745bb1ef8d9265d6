package openai

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/upb/multichat/services/attachments"
	"github.com/upb/multichat/services/providers"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultMaxTokens   = 2048
	defaultTemperature = 0.7
)

// Options describes one OpenAI-compatible upstream
type Options struct {
	// Name is the registry id
	Name string

	// Label appears in error text, e.g. "OpenAI API returned status code 500"
	Label string

	// APIKeyEnv is the environment variable holding the bearer token
	APIKeyEnv string

	// DefaultBaseURL is used when neither the request nor the config sets one
	DefaultBaseURL string

	// DefaultMaxTokens applies when the model config has no max_tokens
	DefaultMaxTokens int
}

// DefaultOptions returns the options for api.openai.com
func DefaultOptions() Options {
	return Options{
		Name:             "openai",
		Label:            "OpenAI",
		APIKeyEnv:        "OPENAI_API_KEY",
		DefaultBaseURL:   defaultBaseURL,
		DefaultMaxTokens: defaultMaxTokens,
	}
}

// OpenAIAdapter implements the Provider interface for the Chat Completions API
// and any upstream that speaks the same wire format
type OpenAIAdapter struct {
	opts   Options
	config providers.ProviderConfig
	client *providers.HTTPClient
}

// NewOpenAIAdapter creates a new OpenAI adapter
func NewOpenAIAdapter(config providers.ProviderConfig) *OpenAIAdapter {
	return NewCompatibleAdapter(DefaultOptions(), config)
}

// NewCompatibleAdapter creates an adapter for an OpenAI-compatible upstream
func NewCompatibleAdapter(opts Options, config providers.ProviderConfig) *OpenAIAdapter {
	if opts.DefaultMaxTokens == 0 {
		opts.DefaultMaxTokens = defaultMaxTokens
	}
	return &OpenAIAdapter{
		opts:   opts,
		config: config,
		client: providers.NewHTTPClient(config),
	}
}

// Name returns the provider name
func (a *OpenAIAdapter) Name() string {
	return a.opts.Name
}

// Label returns the display name used in error text
func (a *OpenAIAdapter) Label() string {
	return a.opts.Label
}

// ChatCompletion performs a chat completion request
func (a *OpenAIAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	apiKey := os.Getenv(a.opts.APIKeyEnv)
	if apiKey == "" {
		return nil, providers.NewCredentialError(a.Name(), a.opts.APIKeyEnv)
	}

	openaiReq := a.buildOpenAIRequest(req)
	url := providers.ResolveBaseURL(req.Endpoint, a.config.BaseURL, a.opts.DefaultBaseURL) + "/chat/completions"

	raw, err := a.client.PostJSON(ctx, url, map[string]string{
		"Authorization": "Bearer " + apiKey,
	}, openaiReq)
	if err != nil {
		return nil, providers.NewTransportError(a.Name(), err)
	}

	if !raw.OK() {
		return nil, a.handleErrorResponse(raw.StatusCode, raw.Body)
	}

	var openaiResp OpenAIChatResponse
	if err := json.Unmarshal(raw.Body, &openaiResp); err != nil {
		return nil, providers.NewParseError(a.Name(), err)
	}

	return a.convertToUnifiedResponse(&openaiResp, req), nil
}

// buildOpenAIRequest converts unified request to OpenAI format
func (a *OpenAIAdapter) buildOpenAIRequest(req *providers.ChatRequest) *OpenAIChatRequest {
	msgs := attachments.ForRequest(req)

	openaiReq := &OpenAIChatRequest{
		Model:       req.Model,
		Messages:    make([]OpenAIMessage, 0, len(msgs)+1),
		MaxTokens:   req.ModelConfig.MaxTokensOr(a.opts.DefaultMaxTokens),
		Temperature: req.ModelConfig.TemperatureOr(defaultTemperature),
	}

	if req.PersonaDescription != "" {
		openaiReq.Messages = append(openaiReq.Messages, OpenAIMessage{
			Role:    providers.RoleSystem,
			Content: req.PersonaDescription,
		})
	}

	for _, msg := range msgs {
		openaiReq.Messages = append(openaiReq.Messages, OpenAIMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return openaiReq
}

// convertToUnifiedResponse converts OpenAI response to unified format
func (a *OpenAIAdapter) convertToUnifiedResponse(openaiResp *OpenAIChatResponse, req *providers.ChatRequest) *providers.ChatResponse {
	resp := &providers.ChatResponse{
		Model: req.Model,
		Usage: &providers.Usage{
			InputTokens:  openaiResp.Usage.PromptTokens,
			OutputTokens: openaiResp.Usage.CompletionTokens,
			TotalTokens:  openaiResp.Usage.TotalTokens,
		},
		FinishReason: "stop",
	}

	if len(openaiResp.Choices) > 0 {
		choice := openaiResp.Choices[0]
		resp.Content = choice.Message.Content
		if choice.FinishReason != "" {
			resp.FinishReason = choice.FinishReason
		}
	}

	return resp
}

// handleErrorResponse builds the status error, appending the upstream
// message when the body carries one
func (a *OpenAIAdapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp OpenAIErrorResponse
	detail := ""
	if err := json.Unmarshal(body, &errResp); err == nil && len(errResp.Error) > 0 {
		var apiErr OpenAIError
		var text string
		switch {
		case json.Unmarshal(errResp.Error, &apiErr) == nil:
			detail = apiErr.Message
		case json.Unmarshal(errResp.Error, &text) == nil:
			detail = text
		}
	}

	return providers.NewStatusError(a.Name(), a.Label(), statusCode, strings.TrimSpace(detail))
}

// OpenAI-specific request/response types

type OpenAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenAIChatResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAIErrorResponse keeps the error raw since compatible servers
// send either an object or a bare string
type OpenAIErrorResponse struct {
	Error json.RawMessage `json:"error"`
}

type OpenAIError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"`
}
