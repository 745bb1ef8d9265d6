// Package files turns uploaded files into attachment records: it enforces
// the extension allow-list and size limits, detects the MIME type and
// decodes text content.
package files

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/upb/multichat/config"
	"github.com/upb/multichat/services/providers"
)

const (
	megabyte = 1024 * 1024

	defaultMaxFileSizeMB = 10
	defaultMaxFiles      = 100
	defaultMaxTextSizeMB = 5

	octetStream = "application/octet-stream"
)

// DefaultExtensions is the allow-list used when the catalog sets none
var DefaultExtensions = []string{
	".py", ".js", ".html", ".css", ".json", ".md", ".txt", ".csv",
	".xml", ".yml", ".yaml", ".ini", ".cfg", ".conf",
}

// ErrTooManyFiles is returned when an upload exceeds the per-upload file limit
var ErrTooManyFiles = errors.New("too many files in one upload")

// Upload is one raw file as received from a caller
type Upload struct {
	Name string
	Data []byte
}

// Handler validates and decodes uploads
type Handler struct {
	allowedList   []string
	allowed       map[string]bool
	maxFileSizeMB float64
	maxTextSizeMB float64
	maxFiles      int
	logger        *zap.Logger
}

// NewHandler builds a handler from the catalog's file handling section.
// Zero values fall back to the defaults.
func NewHandler(cfg config.FileHandlingConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	exts := cfg.AllowedExtensions
	if exts == nil {
		exts = DefaultExtensions
	}

	h := &Handler{
		allowedList:   make([]string, 0, len(exts)),
		allowed:       make(map[string]bool, len(exts)),
		maxFileSizeMB: cfg.MaxFileSizeMB,
		maxTextSizeMB: cfg.MaxTextSizeMB,
		maxFiles:      cfg.MaxFilesPerUpload,
		logger:        logger,
	}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		h.allowedList = append(h.allowedList, ext)
		h.allowed[ext] = true
	}
	if h.maxFileSizeMB <= 0 {
		h.maxFileSizeMB = defaultMaxFileSizeMB
	}
	if h.maxTextSizeMB <= 0 {
		h.maxTextSizeMB = defaultMaxTextSizeMB
	}
	if h.maxFiles <= 0 {
		h.maxFiles = defaultMaxFiles
	}

	logger.Info("file handler initialized",
		zap.Strings("allowed_extensions", h.allowedList),
		zap.Float64("max_file_size_mb", h.maxFileSizeMB),
		zap.Float64("max_text_size_mb", h.maxTextSizeMB),
		zap.Int("max_files_per_upload", h.maxFiles))

	return h
}

// AllowedExtensions returns the normalized allow-list. Empty means any extension.
func (h *Handler) AllowedExtensions() []string {
	out := make([]string, len(h.allowedList))
	copy(out, h.allowedList)
	return out
}

// MaxFiles returns the per-upload file limit
func (h *Handler) MaxFiles() int {
	return h.maxFiles
}

// ProcessAll processes every upload. Individual failures are reported in
// the attachment status; only exceeding the file count is an error.
func (h *Handler) ProcessAll(uploads []Upload) ([]providers.Attachment, error) {
	if len(uploads) > h.maxFiles {
		return nil, fmt.Errorf("%w: %d (max: %d)", ErrTooManyFiles, len(uploads), h.maxFiles)
	}

	out := make([]providers.Attachment, 0, len(uploads))
	for _, up := range uploads {
		out = append(out, h.Process(up))
	}
	return out, nil
}

// Process validates and decodes a single upload
func (h *Handler) Process(up Upload) providers.Attachment {
	name := filepath.Base(up.Name)
	ext := strings.ToLower(filepath.Ext(name))

	if att, ok := h.checkExtension(name, ext); !ok {
		return att
	}

	size := int64(len(up.Data))
	if att, ok := h.checkSize(name, ext, size); !ok {
		return att
	}

	return h.decode(name, ext, up.Data)
}

// ProcessPath reads a file from disk. The size limit is checked before reading.
func (h *Handler) ProcessPath(path string) providers.Attachment {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(name))

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		h.logger.Warn("file not found", zap.String("path", path))
		return errorAttachment(name, ext, 0, fmt.Sprintf("File not found: %s", path))
	}

	if att, ok := h.checkExtension(name, ext); !ok {
		return att
	}
	if att, ok := h.checkSize(name, ext, info.Size()); !ok {
		return att
	}

	data, err := os.ReadFile(path)
	if err != nil {
		h.logger.Error("error reading file", zap.String("path", path), zap.Error(err))
		return errorAttachment(name, ext, info.Size(), fmt.Sprintf("Error reading file: %v", err))
	}
	return h.decode(name, ext, data)
}

// ProcessStream handles an upload whose size is known before its content
// is read, such as a multipart part. open is only called when the
// extension and size checks pass.
func (h *Handler) ProcessStream(name string, size int64, open func() (io.ReadCloser, error)) providers.Attachment {
	name = filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(name))

	if att, ok := h.checkExtension(name, ext); !ok {
		return att
	}
	if att, ok := h.checkSize(name, ext, size); !ok {
		return att
	}

	rc, err := open()
	if err != nil {
		h.logger.Error("error opening upload", zap.String("filename", name), zap.Error(err))
		return errorAttachment(name, ext, size, fmt.Sprintf("Error reading file: %v", err))
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, int64(h.maxFileSizeMB*megabyte)+1))
	if err != nil {
		h.logger.Error("error reading upload", zap.String("filename", name), zap.Error(err))
		return errorAttachment(name, ext, size, fmt.Sprintf("Error reading file: %v", err))
	}
	if att, ok := h.checkSize(name, ext, int64(len(data))); !ok {
		return att
	}
	return h.decode(name, ext, data)
}

func (h *Handler) checkExtension(name, ext string) (providers.Attachment, bool) {
	if len(h.allowed) == 0 || h.allowed[ext] {
		return providers.Attachment{}, true
	}
	h.logger.Warn("unsupported file type", zap.String("filename", name), zap.String("extension", ext))
	return errorAttachment(name, ext, 0, fmt.Sprintf("Unsupported file type: %s. Allowed extensions: %s",
		ext, strings.Join(h.allowedList, ", "))), false
}

func (h *Handler) checkSize(name, ext string, size int64) (providers.Attachment, bool) {
	if float64(size) <= h.maxFileSizeMB*megabyte {
		return providers.Attachment{}, true
	}
	msg := fmt.Sprintf("File too large: %.1f MB (max: %g MB)", float64(size)/megabyte, h.maxFileSizeMB)
	h.logger.Warn("file too large", zap.String("filename", name), zap.Int64("size_bytes", size))
	return errorAttachment(name, ext, size, msg), false
}

func (h *Handler) decode(name, ext string, data []byte) providers.Attachment {
	size := int64(len(data))
	mimeType, sniffedText := detectMIME(ext, data)

	att := providers.Attachment{
		Filename:  name,
		MimeType:  mimeType,
		SizeBytes: size,
		Extension: ext,
		IsText:    sniffedText || strings.HasPrefix(mimeType, "text/") || h.allowed[ext],
		Status:    providers.AttachmentOK,
	}

	h.logger.Info("processing file",
		zap.String("filename", name),
		zap.Int64("size_bytes", size),
		zap.String("mime_type", mimeType))

	if !att.IsText {
		return att
	}

	if float64(size) > h.maxTextSizeMB*megabyte {
		h.logger.Warn("text file too large to read fully", zap.String("filename", name), zap.Int64("size_bytes", size))
		att.Status = providers.AttachmentWarning
		att.Message = "File too large to read fully"
		att.Content = fmt.Sprintf("File too large to display (%.1f MB)", float64(size)/megabyte)
		return att
	}

	content, err := DecodeText(data)
	if err != nil {
		h.logger.Warn("could not decode file", zap.String("filename", name), zap.Error(err))
		return errorAttachment(name, ext, size, "Could not decode file with any standard encoding")
	}
	att.Content = content
	return att
}

// detectMIME sniffs the content type and reports whether it is textual.
// Generic sniff results are refined by the file extension.
func detectMIME(ext string, data []byte) (string, bool) {
	detected := mimetype.Detect(data)
	isText := false
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			isText = true
			break
		}
	}

	mimeType := strings.TrimSpace(strings.SplitN(detected.String(), ";", 2)[0])
	if mimeType == octetStream || mimeType == "text/plain" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			mimeType = strings.TrimSpace(strings.SplitN(byExt, ";", 2)[0])
		}
	}
	if mimeType == "" {
		mimeType = octetStream
	}
	return mimeType, isText
}

// DecodeText decodes UTF-8 content, falling back to Windows-1252 when the
// C1 range is present and to Latin-1 otherwise
func DecodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	dec := charmap.ISO8859_1.NewDecoder()
	for _, b := range data {
		if b >= 0x80 && b <= 0x9f {
			dec = charmap.Windows1252.NewDecoder()
			break
		}
	}
	out, err := dec.Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func errorAttachment(name, ext string, size int64, msg string) providers.Attachment {
	return providers.Attachment{
		Filename:  name,
		MimeType:  octetStream,
		SizeBytes: size,
		Extension: ext,
		Status:    providers.AttachmentError,
		Message:   msg,
	}
}

// StatusMessage renders the per-file upload report shown to callers
func StatusMessage(atts []providers.Attachment) string {
	if len(atts) == 0 {
		return "No files uploaded."
	}

	lines := make([]string, 0, len(atts))
	for _, att := range atts {
		if att.Status == providers.AttachmentError {
			lines = append(lines, fmt.Sprintf("Error with %s: %s", att.Filename, att.Message))
			continue
		}
		kind := "binary"
		if att.IsText {
			kind = "text"
		}
		lines = append(lines, fmt.Sprintf("Uploaded %s (%s, %.1f KB)", att.Filename, kind, float64(att.SizeBytes)/1024))
	}
	return strings.Join(lines, "\n")
}

// Usable drops attachments that failed processing
func Usable(atts []providers.Attachment) []providers.Attachment {
	out := make([]providers.Attachment, 0, len(atts))
	for _, att := range atts {
		if att.Status != providers.AttachmentError {
			out = append(out, att)
		}
	}
	return out
}
