package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upb/multichat/app"
	"github.com/upb/multichat/handlers"
	"github.com/upb/multichat/middleware"
	"github.com/upb/multichat/utils"
)

// requestTimeout bounds routes that never call a provider
const requestTimeout = 60 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.History, deps.Registry.Count(), deps.Logger)
	catalog := handlers.NewCatalogHandler(deps.Dispatch, deps.Logger)
	completion := handlers.NewCompletionHandler(deps.Dispatch, deps.Logger)
	chats := handlers.NewChatHandler(deps.Chat, deps.Logger)
	uploads := handlers.NewFileHandler(deps.Files, deps.Logger)

	// Health check endpoints
	r.With(chimw.Timeout(requestTimeout)).Get("/healthz", health.HandleHealth)
	r.With(chimw.Timeout(requestTimeout)).Get("/readyz", health.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)

		// Catalog
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))
			r.Get("/providers", catalog.HandleListProviders)
			r.Get("/providers/{id}/models", catalog.HandleListModels)
			r.Get("/personas", catalog.HandleListPersonas)
			r.Get("/ui", catalog.HandleUI)
		})

		// Provider calls are bounded by the per-provider timeout instead
		r.Post("/chat/completions", completion.HandleChatCompletion)

		// Conversations
		r.Route("/chats", func(r chi.Router) {
			r.Post("/messages", chats.HandleSendMessage)
			r.Group(func(r chi.Router) {
				r.Use(chimw.Timeout(requestTimeout))
				r.Get("/", chats.HandleListChats)
				r.Get("/{id}", chats.HandleGetChat)
				r.Delete("/{id}", chats.HandleDeleteChat)
			})
		})

		r.Post("/files", uploads.HandleUpload)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
