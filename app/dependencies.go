package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/multichat/config"
	"github.com/upb/multichat/middleware"
	"github.com/upb/multichat/repositories"
	"github.com/upb/multichat/repositories/bolt"
	"github.com/upb/multichat/repositories/file"
	"github.com/upb/multichat/repositories/postgres"
	"github.com/upb/multichat/services/chat"
	"github.com/upb/multichat/services/dispatch"
	"github.com/upb/multichat/services/files"
	"github.com/upb/multichat/services/providers"
	"github.com/upb/multichat/services/providers/anthropic"
	"github.com/upb/multichat/services/providers/google"
	"github.com/upb/multichat/services/providers/ionos"
	"github.com/upb/multichat/services/providers/ollama"
	"github.com/upb/multichat/services/providers/openai"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Catalog *config.Catalog
	Logger  *zap.Logger
	DB      *postgres.DB // nil unless the postgres history backend is selected

	// Provider adapters
	Registry *providers.Registry

	// Repositories
	History repositories.ChatHistoryRepository

	// Services
	Files    *files.Handler
	Dispatch *dispatch.Service
	Chat     *chat.Service

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.Catalog = config.LoadCatalog(cfg.Providers.CatalogPath, logger)

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initHistory(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize chat history: %w", err)
	}

	deps.initServices(cfg)
	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.Int("providers", deps.Registry.Count()),
		zap.String("history_backend", cfg.History.Backend))
	return deps, nil
}

// initProviders registers one adapter per supported provider. The HTTP
// client timeout must not undercut the longest per-provider catalog timeout.
func (d *Dependencies) initProviders(cfg *config.Config) error {
	timeout := cfg.Providers.Timeout
	for _, desc := range d.Catalog.Providers {
		if desc.Timeout > timeout {
			timeout = desc.Timeout
		}
	}

	pc := providers.DefaultProviderConfig()
	if timeout > 0 {
		pc.Timeout = timeout
	}

	registry := providers.NewRegistry()
	adapters := []providers.Provider{
		openai.NewOpenAIAdapter(pc),
		anthropic.NewAnthropicAdapter(pc),
		google.NewGoogleAdapter(pc),
		ionos.NewIONOSAdapter(pc),
		ollama.NewOllamaAdapter(pc),
	}
	for _, adapter := range adapters {
		if err := registry.RegisterProvider(adapter); err != nil {
			return fmt.Errorf("register %s: %w", adapter.Name(), err)
		}
		d.Logger.Debug("provider registered", zap.String("provider", adapter.Name()))
	}

	for _, desc := range d.Catalog.Providers {
		if _, err := registry.GetProvider(desc.ID); err != nil {
			d.Logger.Warn("catalog provider has no adapter", zap.String("provider", desc.ID))
		}
	}

	d.Registry = registry
	return nil
}

// initHistory opens the configured conversation store
func (d *Dependencies) initHistory(ctx context.Context, cfg *config.Config) error {
	switch cfg.History.Backend {
	case config.HistoryBackendFile, "":
		repo, err := file.NewChatRepository(cfg.History.Dir, d.Logger)
		if err != nil {
			return err
		}
		d.History = repo

	case config.HistoryBackendBolt:
		repo, err := bolt.NewChatRepository(cfg.History.BoltPath, d.Logger)
		if err != nil {
			return err
		}
		d.History = repo

	case config.HistoryBackendPostgres:
		db, err := postgres.NewDB(cfg.Database, d.Logger)
		if err != nil {
			return err
		}
		if err := db.InitSchema(ctx); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		d.DB = db
		d.History = postgres.NewChatRepository(db, d.Logger)

	default:
		return fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}

	d.Logger.Info("chat history initialized", zap.String("backend", cfg.History.Backend))
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) {
	d.Files = files.NewHandler(d.Catalog.FileHandling, d.Logger)
	d.Dispatch = dispatch.NewService(d.Catalog, d.Registry, cfg.Providers.Timeout, d.Logger)
	d.Chat = chat.NewService(d.Dispatch, d.History, d.Logger)
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if !cfg.AuthEnabled() {
		d.Logger.Warn("AUTH_JWT_SECRET not set, API routes are unauthenticated")
		d.AuthMiddleware = middleware.NewAuthMiddleware(nil, d.Logger)
		return
	}
	validator := middleware.NewHMACValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	d.Logger.Info("bearer token auth enabled", zap.String("issuer", cfg.Auth.Issuer))
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.History != nil {
		done := make(chan error, 1)
		go func() { done <- d.History.Close() }()
		select {
		case err := <-done:
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to close chat history: %w", err))
			} else {
				d.Logger.Info("chat history closed")
			}
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("closing chat history: %w", ctx.Err()))
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
