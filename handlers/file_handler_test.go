package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/multichat/config"
	"github.com/upb/multichat/services/files"
	"github.com/upb/multichat/services/providers"
)

func multipartBody(t *testing.T, parts map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for name, data := range parts {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestHandleUpload(t *testing.T) {
	fh := files.NewHandler(config.FileHandlingConfig{
		AllowedExtensions: []string{".txt", ".md"},
		MaxFilesPerUpload: 2,
	}, zap.NewNop())
	handler := NewFileHandler(fh, zap.NewNop())

	t.Run("mixed results", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string][]byte{
			"notes.txt": []byte("hello"),
			"tool.exe":  {0x4d, 0x5a},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.HandleUpload(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Data UploadResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response.Data.Attachments, 2)

		byName := map[string]providers.Attachment{}
		for _, att := range response.Data.Attachments {
			byName[att.Filename] = att
		}
		assert.Equal(t, "hello", byName["notes.txt"].Content)
		assert.Equal(t, providers.AttachmentOK, byName["notes.txt"].Status)
		assert.Equal(t, providers.AttachmentError, byName["tool.exe"].Status)
		assert.Contains(t, response.Data.Status, "Uploaded notes.txt")
		assert.Contains(t, response.Data.Status, "Error with tool.exe")
	})

	t.Run("too many files", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string][]byte{
			"a.txt": []byte("a"),
			"b.txt": []byte("b"),
			"c.txt": []byte("c"),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		handler.HandleUpload(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/files", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		handler.HandleUpload(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
