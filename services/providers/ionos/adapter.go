// Package ionos adapts the IONOS AI Model Hub, which speaks the OpenAI
// Chat Completions wire format.
package ionos

import (
	"github.com/upb/multichat/services/providers"
	"github.com/upb/multichat/services/providers/openai"
)

const (
	defaultBaseURL   = "https://openai.inference.de-txl.ionos.com/v1"
	defaultMaxTokens = 2048
)

// Options returns the OpenAI-compatible options for IONOS
func Options() openai.Options {
	return openai.Options{
		Name:             "ionos",
		Label:            "IONOS",
		APIKeyEnv:        "IONOS_API_KEY",
		DefaultBaseURL:   defaultBaseURL,
		DefaultMaxTokens: defaultMaxTokens,
	}
}

// NewIONOSAdapter creates a new IONOS adapter
func NewIONOSAdapter(config providers.ProviderConfig) *openai.OpenAIAdapter {
	return openai.NewCompatibleAdapter(Options(), config)
}
