// Package google adapts the Gemini generateContent API. Gemini has no
// system role, so a persona is sent as a priming user turn followed by
// a canned model acknowledgment.
package google

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"strings"

	"github.com/upb/multichat/services/attachments"
	"github.com/upb/multichat/services/providers"
)

const (
	defaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultMaxTokens = 8192
	apiKeyEnv        = "GOOGLE_API_KEY"

	roleModel = "model"

	// ContinuePrompt is sent when the conversation is empty or ends with a model turn
	ContinuePrompt = "Please continue"

	// Acknowledgment is the synthetic model turn that follows the persona
	Acknowledgment = "I'll follow these instructions in our conversation."
)

// PrimingTurn renders the persona as the opening user turn
func PrimingTurn(persona string) string {
	return "System instructions: " + persona + "\n\nPlease acknowledge these instructions."
}

// GoogleAdapter implements the Provider interface for Google Gemini
type GoogleAdapter struct {
	config providers.ProviderConfig
	client *providers.HTTPClient
}

// NewGoogleAdapter creates a new Google adapter
func NewGoogleAdapter(config providers.ProviderConfig) *GoogleAdapter {
	return &GoogleAdapter{
		config: config,
		client: providers.NewHTTPClient(config),
	}
}

// Name returns the provider name
func (a *GoogleAdapter) Name() string {
	return "google"
}

// Label returns the display name used in error text
func (a *GoogleAdapter) Label() string {
	return "Google"
}

// ChatCompletion performs a generateContent request
func (a *GoogleAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, providers.NewCredentialError(a.Name(), apiKeyEnv)
	}

	geminiReq := a.buildGeminiRequest(req)

	raw, err := a.client.PostJSON(ctx, a.generateURL(req), map[string]string{
		"x-goog-api-key": apiKey,
	}, geminiReq)
	if err != nil {
		return nil, providers.NewTransportError(a.Name(), err)
	}

	if !raw.OK() {
		return nil, a.handleErrorResponse(raw.StatusCode, raw.Body)
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(raw.Body, &geminiResp); err != nil {
		return nil, providers.NewParseError(a.Name(), err)
	}

	return a.convertToUnifiedResponse(&geminiResp, req), nil
}

func (a *GoogleAdapter) generateURL(req *providers.ChatRequest) string {
	base := providers.ResolveBaseURL(req.Endpoint, a.config.BaseURL, defaultBaseURL)
	model := strings.TrimPrefix(req.Model, "models/")
	return base + "/models/" + url.PathEscape(model) + ":generateContent"
}

// buildGeminiRequest maps assistant to model and every other role to user
func (a *GoogleAdapter) buildGeminiRequest(req *providers.ChatRequest) *GeminiRequest {
	msgs := attachments.ForRequest(req)

	geminiReq := &GeminiRequest{
		Contents: make([]GeminiContent, 0, len(msgs)+3),
		GenerationConfig: GeminiGenerationConfig{
			MaxOutputTokens: req.ModelConfig.MaxTokensOr(defaultMaxTokens),
			Temperature:     req.ModelConfig.Temperature,
		},
	}

	if req.PersonaDescription != "" {
		geminiReq.Contents = append(geminiReq.Contents,
			newContent(providers.RoleUser, PrimingTurn(req.PersonaDescription)),
			newContent(roleModel, Acknowledgment),
		)
	}

	for _, msg := range msgs {
		role := providers.RoleUser
		if msg.Role == providers.RoleAssistant {
			role = roleModel
		}
		geminiReq.Contents = append(geminiReq.Contents, newContent(role, msg.Content))
	}

	if len(msgs) == 0 || msgs[len(msgs)-1].Role == providers.RoleAssistant {
		geminiReq.Contents = append(geminiReq.Contents, newContent(providers.RoleUser, ContinuePrompt))
	}

	return geminiReq
}

func newContent(role, text string) GeminiContent {
	return GeminiContent{Role: role, Parts: []GeminiPart{{Text: text}}}
}

// convertToUnifiedResponse joins the text parts of the first candidate.
// Token usage is not reported.
func (a *GoogleAdapter) convertToUnifiedResponse(geminiResp *GeminiResponse, req *providers.ChatRequest) *providers.ChatResponse {
	resp := &providers.ChatResponse{
		Model:        req.Model,
		FinishReason: "stop",
	}

	if len(geminiResp.Candidates) == 0 {
		return resp
	}

	candidate := geminiResp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	resp.Content = text.String()

	if candidate.FinishReason != "" {
		resp.FinishReason = strings.ToLower(candidate.FinishReason)
	}

	return resp
}

func (a *GoogleAdapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp GeminiErrorResponse
	detail := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		detail = errResp.Error.Message
	}
	return providers.NewStatusError(a.Name(), a.Label(), statusCode, strings.TrimSpace(detail))
}

// Gemini-specific request/response types

type GeminiRequest struct {
	Contents         []GeminiContent        `json:"contents"`
	GenerationConfig GeminiGenerationConfig `json:"generationConfig"`
}

type GeminiContent struct {
	Role  string       `json:"role"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type GeminiResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
}

type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type GeminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
