package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/recipe-app/apiserver/internal/logging"
	"github.com/recipe-app/apiserver/internal/services"
	"github.com/recipe-app/apiserver/types"
	"go.uber.org/zap"
)

// taxonomyService is the shape shared by the tag and ingredient services.
type taxonomyService[T any] interface {
	List(ctx context.Context, owner int, filter types.TaxonomyFilter) ([]T, error)
	Get(ctx context.Context, owner, id int) (T, error)
	Create(ctx context.Context, owner int, name string) (T, error)
	Update(ctx context.Context, owner, id int, name *string) (T, error)
	Delete(ctx context.Context, owner, id int) error
}

// taxonomyHandler serves owner-scoped name-only resources.
type taxonomyHandler[T any] struct {
	svc    taxonomyService[T]
	logger *zap.Logger
}

// TagRouter registers tag routes on the given router.
func TagRouter(r chi.Router, svc *services.TagService, authMiddleware func(http.Handler) http.Handler, logger *zap.Logger) {
	taxonomyRouter[types.Tag](r, svc, authMiddleware, logger)
}

// IngredientRouter registers ingredient routes on the given router.
func IngredientRouter(r chi.Router, svc *services.IngredientService, authMiddleware func(http.Handler) http.Handler, logger *zap.Logger) {
	taxonomyRouter[types.Ingredient](r, svc, authMiddleware, logger)
}

func taxonomyRouter[T any](r chi.Router, svc taxonomyService[T], authMiddleware func(http.Handler) http.Handler, logger *zap.Logger) {
	handler := &taxonomyHandler[T]{svc: svc, logger: logging.OrNop(logger)}

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Get("/{id}/", handler.Get)
		r.Put("/{id}/", handler.Replace)
		r.Patch("/{id}/", handler.Patch)
		r.Delete("/{id}/", handler.Delete)
	})
}

// List supports ?assigned_only=1 to restrict results to entries used by
// the caller's recipes.
func (h *taxonomyHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	assigned, err := parseFlag(r.URL.Query().Get("assigned_only"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid assigned_only")
		return
	}

	items, err := h.svc.List(r.Context(), user.ID, types.TaxonomyFilter{AssignedOnly: assigned})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *taxonomyHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	item, err := h.svc.Get(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *taxonomyHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req NameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	item, err := h.svc.Create(r.Context(), user.ID, *req.Name)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *taxonomyHandler[T]) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *taxonomyHandler[T]) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *taxonomyHandler[T]) update(w http.ResponseWriter, r *http.Request, full bool) {
	user, _ := userFromContext(r.Context())
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req NameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if full && req.Name == nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	item, err := h.svc.Update(r.Context(), user.ID, id, req.Name)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *taxonomyHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.svc.Delete(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type NameRequest struct {
	Name *string `json:"name"`
}
