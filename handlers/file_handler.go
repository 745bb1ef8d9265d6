package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/multichat/services"
	"github.com/upb/multichat/services/files"
	"github.com/upb/multichat/services/providers"
	"github.com/upb/multichat/utils"
)

const (
	uploadFormField  = "files"
	uploadMemory     = 32 << 20
	maxUploadRequest = 512 << 20
)

// UploadResponse reports every processed file
type UploadResponse struct {
	Attachments []providers.Attachment `json:"attachments"`
	Status      string                 `json:"status"`
}

// FileHandler turns multipart uploads into attachments
type FileHandler struct {
	files  *files.Handler
	logger *zap.Logger
}

// NewFileHandler creates a new FileHandler
func NewFileHandler(fh *files.Handler, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		files:  fh,
		logger: logger,
	}
}

// HandleUpload handles POST /api/v1/files. Files are sent in the "files"
// form field. Rejected files are reported per file and do not fail the
// request.
func (h *FileHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadRequest)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			HandleServiceError(w, services.ErrUploadTooLarge, h.logger)
			return
		}
		_ = utils.WriteBadRequest(w, "Invalid multipart form", nil)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File[uploadFormField]
	if len(headers) > h.files.MaxFiles() {
		HandleServiceError(w, services.ErrTooManyFiles.WithDetail("max_files", h.files.MaxFiles()), h.logger)
		return
	}

	atts := make([]providers.Attachment, 0, len(headers))
	for _, fh := range headers {
		atts = append(atts, h.files.ProcessStream(fh.Filename, fh.Size, openPart(fh)))
	}

	_ = utils.WriteOK(w, UploadResponse{
		Attachments: atts,
		Status:      files.StatusMessage(atts),
	})
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}
