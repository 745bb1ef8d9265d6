package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/multichat/internal/observability"
	"github.com/upb/multichat/middleware"
	"github.com/upb/multichat/services/dispatch"
	"github.com/upb/multichat/utils"
)

// CompletionHandler handles stateless chat completions
type CompletionHandler struct {
	dispatcher DispatchService
	logger     *zap.Logger
}

// NewCompletionHandler creates a new CompletionHandler
func NewCompletionHandler(dispatcher DispatchService, logger *zap.Logger) *CompletionHandler {
	return &CompletionHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// HandleChatCompletion handles POST /api/v1/chat/completions.
// Provider failures are part of the result and still answer 200.
func (h *CompletionHandler) HandleChatCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.WithRequest(ctx, h.logger)

	var req dispatch.Request
	if err := utils.DecodeJSON(r, &req); err != nil {
		logger.Warn("failed to parse request body", zap.Error(err))
		HandleValidationError(w, err, logger)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		logger.Warn("request validation failed", zap.Error(err))
		HandleValidationError(w, err, logger)
		return
	}

	result := h.dispatcher.Dispatch(ctx, &req)

	logger.Info("chat completion served",
		zap.String("subject", middleware.GetSubjectFromContext(ctx)),
		zap.String("provider", req.ProviderID),
		zap.String("model", req.ModelID),
		zap.Bool("failed", result.Failed()))

	_ = utils.WriteOK(w, result)
}
