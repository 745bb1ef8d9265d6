package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/multichat/services"
	"github.com/upb/multichat/utils"
)

// HandleServiceError maps domain errors to HTTP responses. Errors from the
// chat, history and file layers are classified first.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	err = services.Classify(err)
	details := services.GetErrorDetails(err)

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, err.Error())

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, err.Error(), details)

	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, err.Error())

	case services.IsTooLargeError(err):
		writeErr = utils.WriteError(w, http.StatusRequestEntityTooLarge, err.Error(), details)

	case services.IsExternalError(err):
		writeErr = utils.WriteError(w, http.StatusBadGateway, err.Error(), details)

	default:
		// internal details stay in the log
		logger.Error("internal server error",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var writeErr error
	if utils.IsValidationError(err) {
		details := make(map[string]interface{})
		for k, v := range utils.GetValidationFields(err) {
			details[k] = v
		}
		writeErr = utils.WriteBadRequest(w, "Validation failed", details)
	} else {
		writeErr = utils.WriteBadRequest(w, err.Error(), nil)
	}

	if writeErr != nil {
		logger.Error("failed to write validation error response", zap.Error(writeErr))
	}
}
