package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"portfolio/application/services"
	pkgerrors "portfolio/pkg/errors"

	"go.uber.org/zap"
)

// multipartMemory is how much of a multipart body is buffered before
// spilling to temporary files
const multipartMemory = 8 << 20

// AttachmentService stores uploaded files
type AttachmentService interface {
	Store(ctx context.Context, field, filename string, body io.Reader) (*services.Attachment, error)
}

// UploadHandler handles single-file uploads
type UploadHandler struct {
	service  AttachmentService
	maxBytes int64
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(service AttachmentService, maxBytes int64, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		service:  service,
		maxBytes: maxBytes,
		errors:   errorHandler,
		logger:   logger,
	}
}

// Upload returns a handler accepting one file in the given form field
func (h *UploadHandler) Upload(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Multipart framing adds a little on top of the file itself
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartMemory/8)

		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.errors.Handle(w, r, pkgerrors.NewValidationErrorf("File exceeds the %d byte limit", h.maxBytes))
				return
			}
			h.errors.Handle(w, r, pkgerrors.NewValidationError(services.MsgNoFile))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile(field)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError(services.MsgNoFile))
			return
		}
		defer file.Close()

		if header.Size > h.maxBytes {
			h.errors.Handle(w, r, pkgerrors.NewValidationErrorf("File exceeds the %d byte limit", h.maxBytes))
			return
		}

		att, err := h.service.Store(r.Context(), field, header.Filename, file)
		if err != nil {
			h.errors.Handle(w, r, err)
			return
		}
		respondJSON(w, h.logger, http.StatusOK, MutationResponse{Success: true, URL: att.URL})
	}
}
