package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/recipe-app/apiserver/internal/logging"
	"github.com/recipe-app/apiserver/internal/services"
	"github.com/recipe-app/apiserver/internal/storage"
	"go.uber.org/zap"
)

// MediaHandler streams stored recipe images behind signed URLs.
type MediaHandler struct {
	objects *storage.Storage
	signer  *services.MediaSigner
	logger  *zap.Logger
}

func NewMediaHandler(objects *storage.Storage, signer *services.MediaSigner, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{objects: objects, signer: signer, logger: logging.OrNop(logger)}
}

// MediaRouter registers the signed download route. No token is required;
// the sig query parameter authorizes the request.
func MediaRouter(r chi.Router, objects *storage.Storage, signer *services.MediaSigner, logger *zap.Logger) {
	handler := NewMediaHandler(objects, signer, logger)
	r.Get("/*", handler.Download)
}

func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.signer.Verify(key, r.URL.Query().Get("sig")); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	obj, err := h.objects.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warn("media stream interrupted", zap.String("key", key), zap.Error(err))
	}
}
