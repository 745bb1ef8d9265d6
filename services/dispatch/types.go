package dispatch

import (
	"github.com/upb/multichat/services/providers"
)

// Request is one provider-agnostic chat turn to dispatch
type Request struct {
	// ProviderID is the catalog key (e.g., "OpenAI", "Ollama")
	ProviderID string `json:"provider" validate:"required"`

	// ModelID selects the model; unknown ids fall back to adapter defaults
	ModelID string `json:"model" validate:"required"`

	// PersonaID selects the system instruction; unknown ids use the generic settings
	PersonaID string `json:"persona,omitempty"`

	// Messages in conversational order. They are never modified.
	Messages []providers.Message `json:"messages" validate:"dive"`

	// Attachments to inline into the first user turn
	Attachments []providers.Attachment `json:"attachments,omitempty"`
}

// ProviderInfo is the public view of a configured provider
type ProviderInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Configured is false when the provider's credential variable is unset
	Configured bool `json:"configured"`
}

// ModelInfo is the public view of a configured model
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
