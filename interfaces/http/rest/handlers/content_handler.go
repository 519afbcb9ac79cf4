package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"portfolio/domain/content"
	pkgerrors "portfolio/pkg/errors"
	"portfolio/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MsgMissingTypeAndData is the validation message the admin UI expects
const MsgMissingTypeAndData = "Missing required fields: type and data"

// maxContentBody bounds JSON request bodies
const maxContentBody = 1 << 20

// ContentService is the content repository as seen by the HTTP surface
type ContentService interface {
	ListAll(ctx context.Context) ([]content.TaggedItem, error)
	ListByKind(ctx context.Context, kind string) (interface{}, error)
	Create(ctx context.Context, kind string, data json.RawMessage) (string, error)
	Update(ctx context.Context, kind, id string, data json.RawMessage) error
	Delete(ctx context.Context, kind, id string) error
}

// ContentRequest is the body of create and update calls
type ContentRequest struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data" validate:"json_present"`
}

// ContentHandler handles content-related HTTP requests
type ContentHandler struct {
	service ContentService
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(service ContentService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger,
	}
}

// ListAll handles GET /api/content
func (h *ContentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAll(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, items)
}

// ListByKind handles GET /api/content/{key}
func (h *ContentHandler) ListByKind(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "key")

	value, err := h.service.ListByKind(r.Context(), kind)
	if err != nil {
		if pkgerrors.IsUnknownKind(err) {
			err = pkgerrors.NewNotFoundError(fmt.Sprintf("Content type '%s'", kind))
		}
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, value)
}

// Create handles POST /api/content
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	id, err := h.service.Create(r.Context(), req.Type, req.Data)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, MutationResponse{Success: true, ID: id})
}

// Update handles PUT /api/content/{key}
func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "key")

	req, err := h.decode(w, r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := h.service.Update(r.Context(), req.Type, id, req.Data); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, MutationResponse{Success: true})
}

// Delete handles DELETE /api/content/{key}?type=K
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "key")

	kind := r.URL.Query().Get("type")
	if kind == "" {
		kind = r.URL.Query().Get("kind")
	}
	if kind == "" {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("Missing required query parameter: type"))
		return
	}

	if err := h.service.Delete(r.Context(), kind, id); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, MutationResponse{Success: true})
}

func (h *ContentHandler) decode(w http.ResponseWriter, r *http.Request) (*ContentRequest, error) {
	var req ContentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxContentBody)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.NewValidationErrorf("Request body exceeds %d bytes", tooLarge.Limit).
				WithStatus(http.StatusRequestEntityTooLarge)
		}
		if errors.Is(err, io.EOF) {
			return nil, pkgerrors.NewValidationError(MsgMissingTypeAndData)
		}
		return nil, pkgerrors.NewValidationError("Invalid request body: " + err.Error())
	}

	if len(utils.MissingFields(req)) > 0 {
		return nil, pkgerrors.NewValidationError(MsgMissingTypeAndData)
	}
	return &req, nil
}
