package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/recipe-app/apiserver/internal/logging"
	"github.com/recipe-app/apiserver/internal/services"
	"github.com/recipe-app/apiserver/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultMaxImageBytes = 10 << 20
	maxMultipartMemory   = 8 << 20
	formFieldImage       = "image"
)

// RecipeHandler provides HTTP handlers for recipes and their images.
type RecipeHandler struct {
	recipes       *services.RecipeService
	media         *services.MediaSigner
	maxImageBytes int64
	logger        *zap.Logger
}

func NewRecipeHandler(recipes *services.RecipeService, media *services.MediaSigner, maxImageBytes int64, logger *zap.Logger) *RecipeHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = defaultMaxImageBytes
	}
	return &RecipeHandler{
		recipes:       recipes,
		media:         media,
		maxImageBytes: maxImageBytes,
		logger:        logging.OrNop(logger),
	}
}

// RecipeRouter registers recipe routes on the given router.
func RecipeRouter(
	r chi.Router,
	recipes *services.RecipeService,
	media *services.MediaSigner,
	maxImageBytes int64,
	authMiddleware func(http.Handler) http.Handler,
	logger *zap.Logger,
) {
	handler := NewRecipeHandler(recipes, media, maxImageBytes, logger)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", handler.ListRecipes)
		r.Post("/", handler.CreateRecipe)
		r.Route("/{recipeID}", func(r chi.Router) {
			r.Get("/", handler.GetRecipe)
			r.Put("/", handler.ReplaceRecipe)
			r.Patch("/", handler.PatchRecipe)
			r.Delete("/", handler.DeleteRecipe)
			r.Post("/upload-image/", handler.UploadImage)
			r.Delete("/image/", handler.DeleteImage)
		})
	})
}

// ListRecipes supports ?tags=1,2 and ?ingredients=3 filters.
func (h *RecipeHandler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	query := r.URL.Query()
	tagIDs, err := parseIDList(query.Get("tags"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tags filter")
		return
	}
	ingredientIDs, err := parseIDList(query.Get("ingredients"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ingredients filter")
		return
	}

	recipes, err := h.recipes.List(r.Context(), user.ID, types.RecipeFilter{
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := make([]RecipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		item, err := h.newRecipeResponse(recipe)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RecipeHandler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	id, err := parseID(r, "recipeID")
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	recipe, err := h.recipes.Get(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp, err := h.newRecipeDetailResponse(recipe)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RecipeHandler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req RecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.requireAll(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	input := services.RecipeInput{
		Title:       *req.Title,
		TimeMinutes: *req.TimeMinutes,
		Price:       *req.Price,
	}
	if req.Link != nil {
		input.Link = *req.Link
	}
	if req.Tags != nil {
		input.TagIDs = *req.Tags
	}
	if req.Ingredients != nil {
		input.IngredientIDs = *req.Ingredients
	}

	recipe, err := h.recipes.Create(r.Context(), user.ID, input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.writeRecipe(w, r, http.StatusCreated, recipe)
}

// ReplaceRecipe is a full update: title, time_minutes and price are
// required, and omitted optional fields are reset.
func (h *RecipeHandler) ReplaceRecipe(w http.ResponseWriter, r *http.Request) {
	var req RecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.requireAll(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	empty := ""
	if req.Link == nil {
		req.Link = &empty
	}
	if req.Tags == nil {
		req.Tags = &[]int{}
	}
	if req.Ingredients == nil {
		req.Ingredients = &[]int{}
	}
	h.updateRecipe(w, r, req)
}

func (h *RecipeHandler) PatchRecipe(w http.ResponseWriter, r *http.Request) {
	var req RecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.updateRecipe(w, r, req)
}

func (h *RecipeHandler) updateRecipe(w http.ResponseWriter, r *http.Request, req RecipeRequest) {
	user, _ := userFromContext(r.Context())
	id, err := parseID(r, "recipeID")
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	recipe, err := h.recipes.Update(r.Context(), user.ID, id, services.RecipePatch{
		Title:         req.Title,
		TimeMinutes:   req.TimeMinutes,
		Price:         req.Price,
		Link:          req.Link,
		TagIDs:        req.Tags,
		IngredientIDs: req.Ingredients,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.writeRecipe(w, r, http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	id, err := parseID(r, "recipeID")
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.recipes.Delete(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage accepts a multipart form with a single "image" file.
func (h *RecipeHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	id, err := parseID(r, "recipeID")
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	// Leave room for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+1<<20)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, errTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	data, err := h.readImage(r.MultipartForm)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recipe, err := h.recipes.AttachImage(r.Context(), user.ID, id, data)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	image, err := h.imageURL(recipe.ImageKey)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RecipeImageResponse{ID: recipe.ID, Image: image})
}

func (h *RecipeHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	id, err := parseID(r, "recipeID")
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.recipes.DetachImage(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecipeHandler) readImage(form *multipart.Form) ([]byte, error) {
	if form == nil {
		return nil, errors.New("missing form data")
	}

	files := form.File[formFieldImage]
	if len(files) == 0 {
		return nil, errors.New("image file is required")
	}
	if len(files) > 1 {
		return nil, errors.New("only one image file is allowed")
	}

	file, err := files[0].Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	defer file.Close()

	return readFileLimited(file, h.maxImageBytes)
}

func (h *RecipeHandler) writeRecipe(w http.ResponseWriter, r *http.Request, status int, recipe types.Recipe) {
	resp, err := h.newRecipeResponse(recipe)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, status, resp)
}

func (h *RecipeHandler) imageURL(key string) (*string, error) {
	if key == "" || h.media == nil {
		return nil, nil
	}
	u, err := h.media.URL(key)
	if err != nil {
		return nil, fmt.Errorf("sign image url: %w", err)
	}
	return &u, nil
}

// RecipeRequest is shared by create, full update and partial update.
// Price accepts either a JSON string ("5.25") or a number.
type RecipeRequest struct {
	Title       *string          `json:"title"`
	TimeMinutes *int             `json:"time_minutes"`
	Price       *decimal.Decimal `json:"price"`
	Link        *string          `json:"link"`
	Tags        *[]int           `json:"tags"`
	Ingredients *[]int           `json:"ingredients"`
}

func (req RecipeRequest) requireAll() error {
	switch {
	case req.Title == nil:
		return errors.New("title is required")
	case req.TimeMinutes == nil:
		return errors.New("time_minutes is required")
	case req.Price == nil:
		return errors.New("price is required")
	}
	return nil
}

// RecipeResponse is the list representation; associations are ids.
type RecipeResponse struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	TimeMinutes int     `json:"time_minutes"`
	Price       string  `json:"price"`
	Link        string  `json:"link"`
	Image       *string `json:"image"`
	Tags        []int   `json:"tags"`
	Ingredients []int   `json:"ingredients"`
}

// RecipeDetailResponse nests the associated tags and ingredients.
type RecipeDetailResponse struct {
	ID          int                `json:"id"`
	Title       string             `json:"title"`
	TimeMinutes int                `json:"time_minutes"`
	Price       string             `json:"price"`
	Link        string             `json:"link"`
	Image       *string            `json:"image"`
	Tags        []types.Tag        `json:"tags"`
	Ingredients []types.Ingredient `json:"ingredients"`
}

type RecipeImageResponse struct {
	ID    int     `json:"id"`
	Image *string `json:"image"`
}

func (h *RecipeHandler) newRecipeResponse(recipe types.Recipe) (RecipeResponse, error) {
	image, err := h.imageURL(recipe.ImageKey)
	if err != nil {
		return RecipeResponse{}, err
	}

	resp := RecipeResponse{
		ID:          recipe.ID,
		Title:       recipe.Title,
		TimeMinutes: recipe.TimeMinutes,
		Price:       recipe.Price.StringFixed(2),
		Link:        recipe.Link,
		Image:       image,
		Tags:        recipe.TagIDs,
		Ingredients: recipe.IngredientIDs,
	}
	if resp.Tags == nil {
		resp.Tags = []int{}
	}
	if resp.Ingredients == nil {
		resp.Ingredients = []int{}
	}
	return resp, nil
}

func (h *RecipeHandler) newRecipeDetailResponse(recipe types.Recipe) (RecipeDetailResponse, error) {
	image, err := h.imageURL(recipe.ImageKey)
	if err != nil {
		return RecipeDetailResponse{}, err
	}

	resp := RecipeDetailResponse{
		ID:          recipe.ID,
		Title:       recipe.Title,
		TimeMinutes: recipe.TimeMinutes,
		Price:       recipe.Price.StringFixed(2),
		Link:        recipe.Link,
		Image:       image,
		Tags:        recipe.Tags,
		Ingredients: recipe.Ingredients,
	}
	if resp.Tags == nil {
		resp.Tags = []types.Tag{}
	}
	if resp.Ingredients == nil {
		resp.Ingredients = []types.Ingredient{}
	}
	return resp, nil
}
