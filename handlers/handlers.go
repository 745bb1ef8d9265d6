// Package handlers holds the thin HTTP layer: decode, validate, call a
// service, write the JSON envelope.
package handlers

import (
	"context"

	"github.com/upb/multichat/config"
	"github.com/upb/multichat/models"
	"github.com/upb/multichat/services/chat"
	"github.com/upb/multichat/services/dispatch"
	"github.com/upb/multichat/services/providers"
)

// DispatchService is the subset of dispatch.Service used by the handlers
type DispatchService interface {
	Dispatch(ctx context.Context, req *dispatch.Request) *providers.CompletionResult
	ListProviders() []dispatch.ProviderInfo
	ListModels(providerID string) []dispatch.ModelInfo
	ListPersonas() []config.Persona
	Catalog() *config.Catalog
}

// ChatService is the subset of chat.Service used by the handlers
type ChatService interface {
	Send(ctx context.Context, session *chat.Session, text string) (*chat.Reply, error)
	Resume(ctx context.Context, chatID string) (*models.ChatRecord, error)
	List(ctx context.Context) ([]models.ChatMeta, error)
	Delete(ctx context.Context, chatID string) error
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}
