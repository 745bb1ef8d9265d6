package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider is a test implementation of the Provider interface
type MockProvider struct {
	name  string
	calls int
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Label() string {
	return "Mock " + m.name
}

func (m *MockProvider) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.calls++
	return &ChatResponse{Content: "This is a mock response", Model: req.Model}, nil
}

func TestRegistry_RegisterProvider(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.RegisterProvider(NewMockProvider("openai")))
	assert.Equal(t, 1, registry.Count())

	err := registry.RegisterProvider(NewMockProvider("OpenAI"))
	assert.ErrorIs(t, err, ErrProviderAlreadyRegistered)

	assert.Error(t, registry.RegisterProvider(nil))
	assert.Error(t, registry.RegisterProvider(NewMockProvider("  ")))
}

func TestRegistry_GetProvider(t *testing.T) {
	registry := NewRegistry()
	mock := NewMockProvider("ollama")
	require.NoError(t, registry.RegisterProvider(mock))

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "exact id", id: "ollama"},
		{name: "catalog casing", id: "Ollama"},
		{name: "surrounding spaces", id: " ollama "},
		{name: "unknown id", id: "bedrock", wantErr: true},
		{name: "empty id", id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := registry.GetProvider(tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrProviderNotFound)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Same(t, mock, p)
		})
	}
}

func TestRegistry_ListProviders(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"openai", "anthropic", "ollama"} {
		require.NoError(t, registry.RegisterProvider(NewMockProvider(name)))
	}

	assert.Equal(t, []string{"anthropic", "ollama", "openai"}, registry.ListProviders())
}
