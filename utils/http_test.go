package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusOK, map[string]string{"message": "test"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteJSON(w, http.StatusNoContent, nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteOK(w, map[string]string{"chat_id": "abc"}))
	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	dataMap := response.Data.(map[string]interface{})
	assert.Equal(t, "abc", dataMap["chat_id"])
}

func TestWriteCreatedAndNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteCreated(w, map[string]string{"id": "123"}))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	WriteNoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name            string
		write           func(w http.ResponseWriter) error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name: "bad request",
			write: func(w http.ResponseWriter) error {
				return WriteBadRequest(w, "invalid input", map[string]interface{}{"field": "model"})
			},
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "bad_request",
			expectedMessage: "invalid input",
		},
		{
			name:            "unauthorized default message",
			write:           func(w http.ResponseWriter) error { return WriteUnauthorized(w, "") },
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "unauthorized",
			expectedMessage: "Authentication required",
		},
		{
			name:            "not found default message",
			write:           func(w http.ResponseWriter) error { return WriteNotFound(w, "") },
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "Resource not found",
		},
		{
			name:            "internal error default message",
			write:           func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") },
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "Internal server error",
		},
		{
			name: "too large",
			write: func(w http.ResponseWriter) error {
				return WriteError(w, http.StatusRequestEntityTooLarge, "upload too large", nil)
			},
			expectedStatus:  http.StatusRequestEntityTooLarge,
			expectedError:   "request_too_large",
			expectedMessage: "upload too large",
		},
		{
			name: "unavailable",
			write: func(w http.ResponseWriter) error {
				return WriteError(w, http.StatusServiceUnavailable, "history store down", nil)
			},
			expectedStatus:  http.StatusServiceUnavailable,
			expectedError:   "unavailable",
			expectedMessage: "history store down",
		},
		{
			name: "unknown status maps to internal",
			write: func(w http.ResponseWriter) error {
				return WriteError(w, http.StatusTeapot, "teapot", nil)
			},
			expectedStatus:  http.StatusTeapot,
			expectedError:   "internal_error",
			expectedMessage: "teapot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.expectedStatus, w.Code)
			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Provider string `json:"provider"`
	}

	tests := []struct {
		name        string
		body        string
		expectError string
	}{
		{name: "valid", body: `{"provider": "OpenAI"}`},
		{name: "empty", body: ``, expectError: "request body is empty"},
		{name: "unknown field", body: `{"provider": "OpenAI", "extra": 1}`, expectError: "invalid JSON body"},
		{name: "malformed", body: `{"provider":`, expectError: "invalid JSON body"},
		{name: "trailing document", body: `{"provider": "a"} {"provider": "b"}`, expectError: "single JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload

			err := DecodeJSON(req, &dst)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "OpenAI", dst.Provider)
		})
	}
}
