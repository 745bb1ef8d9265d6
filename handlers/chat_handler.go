package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upb/multichat/internal/observability"
	"github.com/upb/multichat/middleware"
	"github.com/upb/multichat/services/chat"
	"github.com/upb/multichat/services/providers"
	"github.com/upb/multichat/utils"
)

// SendMessageRequest is the body of POST /api/v1/chats/messages
type SendMessageRequest struct {
	ChatID      string                 `json:"chat_id,omitempty"`
	Provider    string                 `json:"provider" validate:"required"`
	Model       string                 `json:"model" validate:"required"`
	Persona     string                 `json:"persona,omitempty"`
	Message     string                 `json:"message" validate:"required"`
	Attachments []providers.Attachment `json:"attachments,omitempty"`
}

// ChatHandler handles stored conversations
type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSendMessage handles POST /api/v1/chats/messages
func (h *ChatHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.WithRequest(ctx, h.logger)

	var req SendMessageRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		logger.Warn("failed to parse request body", zap.Error(err))
		HandleValidationError(w, err, logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	reply, err := h.service.Send(ctx, &chat.Session{
		ChatID:      req.ChatID,
		ProviderID:  req.Provider,
		ModelID:     req.Model,
		PersonaID:   req.Persona,
		Attachments: req.Attachments,
	}, req.Message)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Debug("chat message sent",
		zap.String("chat_id", reply.ChatID),
		zap.String("subject", middleware.GetSubjectFromContext(ctx)))
	_ = utils.WriteOK(w, reply)
}

// HandleListChats handles GET /api/v1/chats
func (h *ChatHandler) HandleListChats(w http.ResponseWriter, r *http.Request) {
	metas, err := h.service.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, metas)
}

// HandleGetChat handles GET /api/v1/chats/{id}
func (h *ChatHandler) HandleGetChat(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Resume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, record)
}

// HandleDeleteChat handles DELETE /api/v1/chats/{id}
func (h *ChatHandler) HandleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}
