package providers

import (
	"context"
	"time"
)

// Roles used in a conversation
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Attachment status values
const (
	AttachmentOK      = "ok"
	AttachmentError   = "error"
	AttachmentWarning = "warning"
)

// Provider represents one upstream LLM API behind a single normalized operation
type Provider interface {
	// Name returns the registry id (e.g., "openai", "anthropic", "ollama")
	Name() string

	// Label returns the human-readable name used in error text (e.g., "OpenAI")
	Label() string

	// ChatCompletion translates the request to the upstream wire format,
	// performs exactly one HTTP round trip and parses the reply
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Message represents a single turn in a conversation
type Message struct {
	// Role can be "system", "user", or "assistant"
	Role string `json:"role" validate:"required"`

	// Content is the turn text
	Content string `json:"content"`
}

// Attachment is a processed file record ready to be inlined into a conversation
type Attachment struct {
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Extension string `json:"extension"`
	IsText    bool   `json:"is_text"`
	Content   string `json:"content,omitempty"`

	// Status is one of "ok", "error" or "warning"; Message explains the
	// non-ok statuses
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Inlinable reports whether the attachment content may be merged into a conversation
func (a Attachment) Inlinable() bool {
	if a.Status == AttachmentError || a.Status == AttachmentWarning {
		return false
	}
	return a.IsText && a.Content != ""
}

// ModelConfig holds the per-model overrides resolved from the catalog.
// The zero value means "use the adapter defaults".
type ModelConfig struct {
	ID          string                 `json:"id" yaml:"id" validate:"required"`
	Name        string                 `json:"name" yaml:"name"`
	MaxTokens   int                    `json:"max_tokens,omitempty" yaml:"max_tokens" validate:"gte=0"`
	Temperature *float64               `json:"temperature,omitempty" yaml:"temperature"`
	Extra       map[string]interface{} `json:"extra,omitempty" yaml:",inline"`
}

// MaxTokensOr returns the configured max_tokens or the given default
func (m ModelConfig) MaxTokensOr(def int) int {
	if m.MaxTokens > 0 {
		return m.MaxTokens
	}
	return def
}

// TemperatureOr returns the configured temperature or the given default
func (m ModelConfig) TemperatureOr(def float64) float64 {
	if m.Temperature != nil {
		return *m.Temperature
	}
	return def
}

// ChatRequest is the provider-agnostic request handed to an adapter
type ChatRequest struct {
	// Endpoint is the resolved base URL; adapters fall back to their own default when empty
	Endpoint string

	// Model identifier (e.g., "gpt-4o", "claude-3-5-sonnet-latest")
	Model string

	// Messages in conversational order
	Messages []Message

	// PersonaDescription is the system instruction; empty means none
	PersonaDescription string

	// ModelConfig carries catalog overrides such as max_tokens
	ModelConfig ModelConfig

	// Attachments to inline into the first user turn
	Attachments []Attachment

	// AttachmentsMerged is set when Messages already contain the attachment text
	AttachmentsMerged bool
}

// ChatResponse is the normalized adapter reply
type ChatResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	Usage        *Usage `json:"usage,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Usage represents token usage statistics. A nil *Usage means the
// provider did not report any.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// CompletionResult is what the dispatch layer hands back to callers.
// A non-empty Error marks a failed attempt; Text then repeats the same message.
type CompletionResult struct {
	Text         string        `json:"text"`
	Model        string        `json:"model,omitempty"`
	Provider     string        `json:"provider,omitempty"`
	Usage        *Usage        `json:"usage,omitempty"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Error        string        `json:"error,omitempty"`
	Latency      time.Duration `json:"latency"`
}

// Failed reports whether the result carries an error
func (r *CompletionResult) Failed() bool {
	return r.Error != ""
}

// ProviderConfig holds common construction options for adapters
type ProviderConfig struct {
	// BaseURL overrides the adapter's default endpoint
	BaseURL string

	// Timeout for a single upstream request
	Timeout time.Duration

	// Additional headers sent on every request
	Headers map[string]string
}

// DefaultProviderConfig returns the configuration used when none is supplied
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout: 120 * time.Second,
		Headers: make(map[string]string),
	}
}
