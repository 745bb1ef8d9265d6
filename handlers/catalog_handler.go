package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upb/multichat/config"
	"github.com/upb/multichat/utils"
)

// UIResponse is the display configuration served to chat front ends
type UIResponse struct {
	config.UIConfig
	FileHandling config.FileHandlingConfig `json:"file_handling"`
}

// CatalogHandler serves the read-only provider, model and persona catalog
type CatalogHandler struct {
	dispatcher DispatchService
	logger     *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(dispatcher DispatchService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// HandleListProviders handles GET /api/v1/providers
func (h *CatalogHandler) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.dispatcher.ListProviders())
}

// HandleListModels handles GET /api/v1/providers/{id}/models
func (h *CatalogHandler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "id")
	if _, ok := h.dispatcher.Catalog().Provider(providerID); !ok {
		_ = utils.WriteNotFound(w, "Provider "+providerID+" not found")
		return
	}
	_ = utils.WriteOK(w, h.dispatcher.ListModels(providerID))
}

// HandleListPersonas handles GET /api/v1/personas
func (h *CatalogHandler) HandleListPersonas(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.dispatcher.ListPersonas())
}

// HandleUI handles GET /api/v1/ui
func (h *CatalogHandler) HandleUI(w http.ResponseWriter, r *http.Request) {
	catalog := h.dispatcher.Catalog()
	_ = utils.WriteOK(w, UIResponse{
		UIConfig:     catalog.UI,
		FileHandling: catalog.FileHandling,
	})
}
