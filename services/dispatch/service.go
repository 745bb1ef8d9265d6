// Package dispatch resolves a chat request against the catalog and hands it
// to the matching provider adapter. Every call yields a CompletionResult;
// failures are reported in the result rather than as errors.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/multichat/config"
	"github.com/upb/multichat/services/attachments"
	"github.com/upb/multichat/services/providers"
)

// DefaultTimeout bounds a provider call when neither the catalog nor the caller sets one
const DefaultTimeout = 120 * time.Second

// Service dispatches chat requests to provider adapters
type Service struct {
	catalog        *config.Catalog
	registry       *providers.Registry
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// NewService creates a new dispatch service
func NewService(catalog *config.Catalog, registry *providers.Registry, defaultTimeout time.Duration, logger *zap.Logger) *Service {
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog:        catalog,
		registry:       registry,
		defaultTimeout: defaultTimeout,
		logger:         logger,
	}
}

// Catalog returns the read-only catalog snapshot
func (s *Service) Catalog() *config.Catalog {
	return s.catalog
}

// Dispatch sends the conversation to the requested provider
func (s *Service) Dispatch(ctx context.Context, req *Request) *providers.CompletionResult {
	start := time.Now()
	dispatchID := uuid.New().String()

	s.logger.Info("dispatching chat completion",
		zap.String("dispatch_id", dispatchID),
		zap.String("provider", req.ProviderID),
		zap.String("model", req.ModelID),
		zap.String("persona", req.PersonaID),
		zap.Int("messages", len(req.Messages)),
		zap.Int("attachments", len(req.Attachments)))

	desc, adapter, ok := s.resolveProvider(req.ProviderID)
	if !ok {
		msg := fmt.Sprintf("Error: Provider %s not available", req.ProviderID)
		s.logger.Warn("provider not available",
			zap.String("dispatch_id", dispatchID),
			zap.String("provider", req.ProviderID))
		return s.failure(req, msg, msg, start)
	}

	chatReq := s.buildChatRequest(desc, req)

	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.invoke(callCtx, adapter, chatReq)
	if err != nil {
		return s.handleError(dispatchID, req, err, start)
	}

	result := &providers.CompletionResult{
		Text:         resp.Content,
		Model:        req.ModelID,
		Provider:     req.ProviderID,
		Usage:        resp.Usage,
		FinishReason: resp.FinishReason,
		Latency:      time.Since(start),
	}

	fields := []zap.Field{
		zap.String("dispatch_id", dispatchID),
		zap.String("provider", req.ProviderID),
		zap.String("model", req.ModelID),
		zap.Int64("latency_ms", result.Latency.Milliseconds()),
		zap.String("finish_reason", result.FinishReason),
	}
	if resp.Usage != nil {
		fields = append(fields, zap.Int("tokens", resp.Usage.TotalTokens))
	}
	s.logger.Info("chat completion finished", fields...)

	return result
}

// resolveProvider requires both a catalog entry and a registered adapter
func (s *Service) resolveProvider(id string) (config.ProviderDescriptor, providers.Provider, bool) {
	desc, ok := s.catalog.Provider(id)
	if !ok || s.registry == nil {
		return config.ProviderDescriptor{}, nil, false
	}
	adapter, err := s.registry.GetProvider(id)
	if err != nil {
		return config.ProviderDescriptor{}, nil, false
	}
	return desc, adapter, true
}

// buildChatRequest resolves persona, endpoint and model config, and merges
// attachments into a copy of the caller's turns
func (s *Service) buildChatRequest(desc config.ProviderDescriptor, req *Request) *providers.ChatRequest {
	msgs := make([]providers.Message, len(req.Messages))
	copy(msgs, req.Messages)

	return &providers.ChatRequest{
		Endpoint:           config.ExpandEndpoint(desc.Endpoint),
		Model:              req.ModelID,
		Messages:           attachments.Merge(msgs, req.Attachments),
		PersonaDescription: s.catalog.PersonaDescription(req.PersonaID),
		ModelConfig:        s.catalog.Model(req.ProviderID, req.ModelID),
		Attachments:        req.Attachments,
		AttachmentsMerged:  true,
	}
}

// invoke calls the adapter, converting a panic into an error
func (s *Service) invoke(ctx context.Context, adapter providers.Provider, req *providers.ChatRequest) (resp *providers.ChatResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("%v", r)
		}
	}()

	resp, err = adapter.ChatCompletion(ctx, req)
	if err == nil && resp == nil {
		err = errors.New("empty response from provider")
	}
	return resp, err
}

func (s *Service) handleError(dispatchID string, req *Request, err error, start time.Time) *providers.CompletionResult {
	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		s.logger.Warn("chat completion failed",
			zap.String("dispatch_id", dispatchID),
			zap.String("provider", req.ProviderID),
			zap.String("model", req.ModelID),
			zap.String("kind", string(provErr.Kind)),
			zap.Int("status_code", provErr.StatusCode),
			zap.Error(err))
		return s.failure(req, err.Error(), err.Error(), start)
	}

	s.logger.Error("provider call raised an unexpected error",
		zap.String("dispatch_id", dispatchID),
		zap.String("provider", req.ProviderID),
		zap.String("model", req.ModelID),
		zap.Error(err))
	return s.failure(req, fmt.Sprintf("Error calling %s API: %s", req.ProviderID, err.Error()), err.Error(), start)
}

func (s *Service) failure(req *Request, text, errMsg string, start time.Time) *providers.CompletionResult {
	return &providers.CompletionResult{
		Text:     text,
		Model:    req.ModelID,
		Provider: req.ProviderID,
		Error:    errMsg,
		Latency:  time.Since(start),
	}
}

// ListProviders returns the configured providers in catalog order
func (s *Service) ListProviders() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(s.catalog.Providers))
	for _, p := range s.catalog.Providers {
		configured := true
		if p.APIKeyEnv != "" {
			configured = os.Getenv(p.APIKeyEnv) != ""
		}
		out = append(out, ProviderInfo{ID: p.ID, Name: p.DisplayName(), Configured: configured})
	}
	return out
}

// ListModels returns the models configured for a provider. An unknown
// provider yields an empty list.
func (s *Service) ListModels(providerID string) []ModelInfo {
	models := s.catalog.Models(providerID)
	out := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		out = append(out, ModelInfo{ID: m.ID, Name: name})
	}
	return out
}

// ListPersonas returns the configured personas
func (s *Service) ListPersonas() []config.Persona {
	out := make([]config.Persona, len(s.catalog.Personas))
	copy(out, s.catalog.Personas)
	return out
}
